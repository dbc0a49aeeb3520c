package hook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/models"
)

func makeRepos(names ...string) []*models.Repo {
	now := models.NewTime(time.Now())
	var repos []*models.Repo
	for i, name := range names {
		repos = append(repos, models.NewRepoFromProvider(now, &models.ProviderRepo{ID: models.ProviderID(i + 1), Name: name}))
	}
	return repos
}

func ids(repos []*models.Repo) []models.RepoID {
	result := []models.RepoID{}
	for _, repo := range repos {
		result = append(result, repo.ID)
	}
	return result
}

func TestPlanTransitionsDisablesAllWhenNothingDesired(t *testing.T) {
	repos := makeRepos("a", "b", "c")
	repos[0].PushActive = true
	repos[2].PushActive = true
	repos[1].PullActive = true

	disable, enable := planTransitions(models.HookKindPush, repos, nil)
	require.Equal(t, ids([]*models.Repo{repos[0], repos[2]}), ids(disable))
	require.Empty(t, enable)
}

func TestPlanTransitionsEnablesDesiredWhenNothingActive(t *testing.T) {
	repos := makeRepos("a", "b", "c")
	repos[1].PushActive = true // a different kind is not considered

	disable, enable := planTransitions(models.HookKindPull, repos, []models.RepoID{repos[2].ID, repos[0].ID})
	require.Empty(t, disable)
	require.Equal(t, ids([]*models.Repo{repos[0], repos[2]}), ids(enable))
}

func TestPlanTransitionsLeavesIntersectionUntouched(t *testing.T) {
	repos := makeRepos("a", "b", "c")
	repos[0].PushActive = true
	repos[1].PushActive = true

	disable, enable := planTransitions(models.HookKindPush, repos, []models.RepoID{repos[1].ID, repos[2].ID})
	require.Equal(t, ids([]*models.Repo{repos[0]}), ids(disable))
	require.Equal(t, ids([]*models.Repo{repos[2]}), ids(enable))
}

func TestPlanTransitionsIgnoresUnmanagedRepos(t *testing.T) {
	repos := makeRepos("a")
	unmanaged := models.NewRepoID()

	disable, enable := planTransitions(models.HookKindPush, repos, []models.RepoID{unmanaged})
	require.Empty(t, disable)
	require.Empty(t, enable)
}

func TestPlanTransitionsNoChange(t *testing.T) {
	repos := makeRepos("a", "b")
	repos[0].PushActive = true

	disable, enable := planTransitions(models.HookKindPush, repos, []models.RepoID{repos[0].ID})
	require.Empty(t, disable)
	require.Empty(t, enable)
}
