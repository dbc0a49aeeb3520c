package documents

import (
	"net/url"
	"strconv"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/models"
)

const (
	cursorQueryParam = "cursor"
	limitQueryParam  = "limit"
)

// PaginatedRequest is a list request that can be carried in a query string and moved to another page.
type PaginatedRequest interface {
	GetQuery() url.Values
	FromQuery(url.Values) error
	Next(cursor *models.DirectionalCursor) PaginatedRequest
}

// PageLinks locate the pages either side of a page of results. Empty strings mean there is no such page.
type PageLinks struct {
	PrevURL    string `json:"prev_url"`
	PrevCursor string `json:"prev_cursor"`
	NextURL    string `json:"next_url"`
	NextCursor string `json:"next_cursor"`
}

type PaginatedResponse struct {
	Kind    models.ResourceKind `json:"kind,omitempty"`
	Results interface{}         `json:"results"`
	PageLinks
}

// NewPaginatedResponse wraps a page of results, linking to the neighbouring pages named by cursor
// with req's other query parameters intact.
func NewPaginatedResponse(
	kind models.ResourceKind,
	link string,
	req PaginatedRequest,
	results interface{},
	cursor *models.Cursor) *PaginatedResponse {

	res := &PaginatedResponse{Kind: kind, Results: results}
	if cursor == nil || req == nil {
		return res
	}
	res.PrevURL, res.PrevCursor = pageLink(link, req, cursor.Prev)
	res.NextURL, res.NextCursor = pageLink(link, req, cursor.Next)
	return res
}

func pageLink(link string, req PaginatedRequest, cursor *models.DirectionalCursor) (string, string) {
	if cursor == nil {
		return "", ""
	}
	encoded, err := cursor.Encode()
	if err != nil {
		return "", ""
	}
	return AddQueryParams(link, req.Next(cursor)), encoded
}

// AddQueryParams returns link with req's query parameters set on it, replacing any of the same name.
// A link that does not parse is returned unchanged.
func AddQueryParams(link string, req PaginatedRequest) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	query := u.Query()
	for key, values := range req.GetQuery() {
		query.Del(key)
		for _, v := range values {
			query.Add(key, v)
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func makePaginationQueryParams(pagination models.Pagination) url.Values {
	values := url.Values{}
	if pagination.Cursor != nil {
		if encoded, err := pagination.Cursor.Encode(); err == nil && encoded != "" {
			values.Set(cursorQueryParam, encoded)
		}
	}
	// Normalises the limit into range
	pagination = models.NewPagination(pagination.Limit, pagination.Cursor)
	values.Set(limitQueryParam, strconv.Itoa(pagination.Limit))
	return values
}

func getPaginationFromQueryParams(values url.Values) (models.Pagination, error) {
	cursor, err := models.DecodeCursor(values.Get(cursorQueryParam))
	if err != nil {
		return models.Pagination{}, gerror.NewErrValidationFailed("Invalid cursor").Wrap(err)
	}
	var limit int
	if str := values.Get(limitQueryParam); str != "" {
		limit, err = strconv.Atoi(str)
		if err != nil {
			return models.Pagination{}, gerror.NewErrValidationFailed("Invalid limit").Wrap(err)
		}
	}
	return models.NewPagination(limit, cursor), nil
}
