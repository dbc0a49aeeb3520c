package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/models"
)

func TestNewAccountDefaults(t *testing.T) {
	now := models.NewTime(time.Now())
	account := models.NewAccount(now, 42, "alice", "Alice", "https://avatars/alice", "token")
	require.NoError(t, account.Validate())
	require.Equal(t, "en", account.Locale)
	require.Equal(t, "UTC", account.Timezone)
	require.Len(t, account.HooksToken, 32)
	require.NotEqual(t, account.HooksToken, models.NewHooksToken())

	account.ProviderID = 0
	account.Login = ""
	require.Error(t, account.Validate())
}

func TestRepoOwnershipIsExclusive(t *testing.T) {
	now := models.NewTime(time.Now())
	repo := models.NewRepoFromProvider(now, &models.ProviderRepo{ID: 7, Name: "widgets", OwnerLogin: "acme", ViewerIsAdmin: true})
	require.False(t, repo.PushActive)
	require.False(t, repo.PullActive)
	require.NoError(t, repo.Validate())

	repo.OrganizationID = models.NewOrganizationID()
	require.NoError(t, repo.Validate())
	repo.OwnerAccountID = models.NewAccountID()
	require.Error(t, repo.Validate())
}

func TestRepoApplyProvider(t *testing.T) {
	now := models.NewTime(time.Now())
	upstream := &models.ProviderRepo{ID: 7, Name: "widgets", OwnerLogin: "acme", URL: "https://github.com/acme/widgets"}
	repo := models.NewRepoFromProvider(now, upstream)
	require.False(t, repo.ApplyProvider(upstream))

	changed := *upstream
	changed.Description = "Widgets!"
	require.True(t, repo.ApplyProvider(&changed))
	require.Equal(t, "Widgets!", repo.Description)
}

func TestRepoHookFlags(t *testing.T) {
	repo := &models.Repo{}
	repo.SetHookActive(models.HookKindPull, true)
	require.True(t, repo.HookActive(models.HookKindPull))
	require.False(t, repo.HookActive(models.HookKindPush))

	f := models.HookActiveFilter(models.HookKindPush, true)
	require.NotNil(t, f.PushActive)
	require.True(t, *f.PushActive)
	require.Nil(t, f.PullActive)
}

func TestHookKind(t *testing.T) {
	kind, err := models.ParseHookKind("PUSH")
	require.NoError(t, err)
	require.Equal(t, models.HookKindPush, kind)
	require.Equal(t, "push", kind.ProviderEvent())
	require.Equal(t, "pull_request", models.HookKindPull.ProviderEvent())
	_, err = models.ParseHookKind("release")
	require.Error(t, err)
}

func TestProviderHook(t *testing.T) {
	hook := &models.ProviderHook{
		ID:     1,
		Events: []string{"pull_request"},
		Config: map[string]interface{}{"url": "https://ci.example.com/api/v1/hooks/pull/alice/widgets"},
	}
	require.True(t, hook.HasEvent("pull_request"))
	require.False(t, hook.HasEvent("push"))
	require.Equal(t, "https://ci.example.com/api/v1/hooks/pull/alice/widgets", hook.URL())
	require.Equal(t, "", (&models.ProviderHook{}).URL())
}

func TestGrantRequiresExactlyOneGrantee(t *testing.T) {
	now := models.NewTime(time.Now())
	grant := models.NewAccountGrant(now, models.NewPrivilegeID(), models.NewAccountID())
	require.NoError(t, grant.Validate())
	require.True(t, grant.IsDirect())

	grant.AuthorizedGroupID = models.NewGroupID()
	require.Error(t, grant.Validate())

	grant = models.NewGroupGrant(now, models.NewPrivilegeID(), models.NewGroupID())
	require.NoError(t, grant.Validate())
	require.False(t, grant.IsDirect())
}

func TestPrivilegeNameValidation(t *testing.T) {
	require.NoError(t, models.PrivilegeName("administrator").Validate())
	require.Error(t, models.PrivilegeName("").Validate())
	require.Error(t, models.PrivilegeName("Bad Name").Validate())
}

func TestIdentityPrivilegesAreASet(t *testing.T) {
	account := models.NewAccount(models.NewTime(time.Now()), 42, "alice", "", "", "token")
	identity := models.NewAccountIdentity(account,
		[]models.PrivilegeName{"manager"},
		[]models.PrivilegeName{"manager", "administrator"})
	require.Len(t, identity.Privileges, 2)
	require.True(t, identity.HasPrivilege("manager"))
	require.True(t, identity.IsAuthenticated())
	require.Len(t, identity.ActionNeeds(), 1)

	anon := models.NewAnonymousIdentity()
	require.True(t, anon.IsAnonymous())
	require.False(t, anon.HasPrivilege("manager"))
	require.True(t, anon.AccountID().IsZero())
}

func TestPaginationLimits(t *testing.T) {
	require.Equal(t, models.DefaultPaginationLimit, models.NewPagination(0, nil).Limit)
	require.Equal(t, models.MaxPaginationLimit, models.NewPagination(1000, nil).Limit)

	cursor := &models.DirectionalCursor{Direction: models.CursorDirectionNext, Marker: `{"id":"x"}`}
	str, err := cursor.Encode()
	require.NoError(t, err)
	decoded, err := models.DecodeCursor(str)
	require.NoError(t, err)
	require.Equal(t, cursor, decoded)
	decoded, err = models.DecodeCursor("")
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestTimeScan(t *testing.T) {
	want := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	inputs := []interface{}{
		"2023-01-01 00:00:00+00:00",
		"2023-01-01 02:00:00+02:00",
		// Seeded rows carry no offset
		"2023-01-01 00:00:00",
		[]byte("2023-01-01 00:00:00"),
		want.In(time.FixedZone("UTC+5", 5*60*60)),
	}
	for _, input := range inputs {
		var scanned models.Time
		require.NoError(t, scanned.Scan(input), "%v", input)
		require.True(t, want.Equal(scanned.Time), "%v", input)
		require.Equal(t, time.UTC, scanned.Location())
	}

	var scanned models.Time
	require.Error(t, scanned.Scan("yesterday"))
	require.Error(t, scanned.Scan(42))
}
