package hook

import (
	"github.com/vmware-archive/salt-ci/common/models"
)

// planTransitions works out which repos to disable and enable so that the repos with an active
// hook are exactly those in desired. Both results follow the order of managed. Repos in desired
// that are not in managed are ignored.
func planTransitions(kind models.HookKind, managed []*models.Repo, desired []models.RepoID) (disable []*models.Repo, enable []*models.Repo) {
	desiredSet := make(map[models.RepoID]bool, len(desired))
	for _, id := range desired {
		desiredSet[id] = true
	}
	var current []*models.Repo
	for _, repo := range managed {
		if repo.HookActive(kind) {
			current = append(current, repo)
		}
	}

	switch {
	case len(desiredSet) == 0:
		return current, nil
	case len(current) == 0:
		for _, repo := range managed {
			if desiredSet[repo.ID] {
				enable = append(enable, repo)
			}
		}
		return nil, enable
	}

	for _, repo := range managed {
		active := repo.HookActive(kind)
		switch {
		case active && !desiredSet[repo.ID]:
			disable = append(disable, repo)
		case !active && desiredSet[repo.ID]:
			enable = append(enable, repo)
		}
	}
	return disable, enable
}
