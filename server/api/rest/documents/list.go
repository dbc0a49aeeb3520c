package documents

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/models"
)

type ListRequest struct {
	models.Pagination
}

func NewListRequest() *ListRequest {
	return &ListRequest{Pagination: models.NewPagination(0, nil)}
}

func (d *ListRequest) Bind(r *http.Request) error {
	return nil
}

func (d *ListRequest) GetQuery() url.Values {
	return makePaginationQueryParams(d.Pagination)
}

func (d *ListRequest) FromQuery(values url.Values) error {
	pagination, err := getPaginationFromQueryParams(values)
	if err != nil {
		return fmt.Errorf("error parsing pagination: %w", err)
	}
	d.Pagination = pagination
	return nil
}

func (d *ListRequest) Next(cursor *models.DirectionalCursor) PaginatedRequest {
	next := *d
	next.Cursor = cursor
	return &next
}

// RepoListRequest lists managed repos, optionally filtered on hook activation.
type RepoListRequest struct {
	ListRequest
	models.RepoFilter
}

func NewRepoListRequest() *RepoListRequest {
	return &RepoListRequest{ListRequest: *NewListRequest()}
}

func (d *RepoListRequest) GetQuery() url.Values {
	values := d.ListRequest.GetQuery()
	if d.PushActive != nil {
		values.Set("push_active", strconv.FormatBool(*d.PushActive))
	}
	if d.PullActive != nil {
		values.Set("pull_active", strconv.FormatBool(*d.PullActive))
	}
	return values
}

func (d *RepoListRequest) FromQuery(values url.Values) error {
	err := d.ListRequest.FromQuery(values)
	if err != nil {
		return err
	}
	d.PushActive, err = parseOptionalBool(values, "push_active")
	if err != nil {
		return err
	}
	d.PullActive, err = parseOptionalBool(values, "pull_active")
	if err != nil {
		return err
	}
	return nil
}

func (d *RepoListRequest) Next(cursor *models.DirectionalCursor) PaginatedRequest {
	next := *d
	next.Cursor = cursor
	return &next
}

func parseOptionalBool(values url.Values, key string) (*bool, error) {
	str := values.Get(key)
	if str == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(str)
	if err != nil {
		return nil, gerror.NewErrValidationFailed(fmt.Sprintf("Invalid %s", key)).Wrap(err)
	}
	return &b, nil
}
