package documents

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/models"
)

func TestNewPaginatedResponse(t *testing.T) {
	pushActive := true
	req := NewRepoListRequest()
	req.Limit = 5
	req.PushActive = &pushActive
	cursor := &models.Cursor{
		Next: &models.DirectionalCursor{Direction: models.CursorDirectionNext, Marker: "m1"},
	}

	res := NewPaginatedResponse(models.RepoResourceKind, "https://ci.example.com/api/v1/repos?limit=99", req, []string{}, cursor)
	require.Empty(t, res.PrevURL)
	require.Empty(t, res.PrevCursor)
	require.NotEmpty(t, res.NextCursor)

	next, err := url.Parse(res.NextURL)
	require.NoError(t, err)
	require.Equal(t, "/api/v1/repos", next.Path)
	require.Equal(t, []string{"5"}, next.Query()["limit"])
	require.Equal(t, "true", next.Query().Get("push_active"))
	require.Equal(t, res.NextCursor, next.Query().Get("cursor"))

	// The next page's query round trips into the same request moved on by one page
	parsed := NewRepoListRequest()
	require.NoError(t, parsed.FromQuery(next.Query()))
	require.Equal(t, 5, parsed.Limit)
	require.Equal(t, cursor.Next, parsed.Cursor)
	require.True(t, *parsed.PushActive)
	require.Nil(t, parsed.PullActive)

	require.Empty(t, NewPaginatedResponse(models.RepoResourceKind, "/api/v1/repos", req, nil, nil).NextURL)
}

func TestListRequestFromQuery(t *testing.T) {
	req := NewRepoListRequest()
	require.NoError(t, req.FromQuery(url.Values{}))
	require.Equal(t, models.DefaultPaginationLimit, req.Limit)
	require.Nil(t, req.Cursor)

	require.NoError(t, req.FromQuery(url.Values{"limit": {"1000"}}))
	require.Equal(t, models.MaxPaginationLimit, req.Limit)

	invalid := []url.Values{
		{"limit": {"ten"}},
		{"cursor": {"%%%"}},
		{"push_active": {"maybe"}},
	}
	for _, values := range invalid {
		err := NewRepoListRequest().FromQuery(values)
		require.True(t, gerror.IsValidationFailed(err), values.Encode())
	}
}
