package sync

import (
	"github.com/vmware-archive/salt-ci/common/models"
)

// repoChange is a local repo changed by a plan. Created repos are new rows; otherwise the repo is
// an existing row carrying its new attributes and ownership.
type repoChange struct {
	Repo    *models.Repo
	Created bool
	// Updated is true if an existing repo must be written, because its attributes changed or
	// it was linked to the scope.
	Updated bool
	// Linked is true if ownership of an existing repo moved to the scope being planned.
	Linked bool
}

// scopeChangeSet is the set of changes that reconciles one scope (an organization, or the account's
// personal repos) with the provider.
type scopeChangeSet struct {
	// Reconciled are the repos the account administers upstream, created, updated or unchanged.
	// Every reconciled repo ends up in the account's managed set.
	Reconciled []*repoChange
	// Unlinked are repos known locally in the scope but not reconfirmed upstream. They lose their
	// link to the scope and leave the account's managed set; the rows are kept.
	Unlinked []*models.Repo
}

// orgChangeSet reconciles one upstream organization.
type orgChangeSet struct {
	scopeChangeSet
	Organization       *models.Organization
	CreateOrganization bool
	UpdateOrganization bool
	Membership         *models.OrganizationMembership
	CreateMembership   bool
	UpdateMembership   bool
}

// orgSnapshot is the local state an organization plan is computed against.
type orgSnapshot struct {
	// Organization is the local organization with the upstream provider id, or nil.
	Organization *models.Organization
	// Membership is the account's local membership of Organization, or nil.
	Membership *models.OrganizationMembership
	// KnownRepos are the repos currently linked to Organization.
	KnownRepos []*models.Repo
	// ReposByProviderID holds the local row for each upstream repo that has one.
	ReposByProviderID map[models.ProviderID]*models.Repo
}

// personalSnapshot is the local state a personal repo plan is computed against.
type personalSnapshot struct {
	// KnownRepos are the repos currently owned by the account.
	KnownRepos        []*models.Repo
	ReposByProviderID map[models.ProviderID]*models.Repo
}

// adminRepos returns the upstream repos the viewer administers; all others are treated as absent.
func adminRepos(repos []*models.ProviderRepo) []*models.ProviderRepo {
	var result []*models.ProviderRepo
	for _, repo := range repos {
		if repo.ViewerIsAdmin {
			result = append(result, repo)
		}
	}
	return result
}

// planOrganization computes the changes that reconcile an upstream organization and its repos with
// local state, for the syncing account. It does no I/O.
func planOrganization(
	now models.Time,
	account *models.Account,
	upstreamOrg *models.ProviderOrganization,
	upstreamRepos []*models.ProviderRepo,
	snapshot *orgSnapshot,
) *orgChangeSet {
	changes := &orgChangeSet{}

	if snapshot.Organization == nil {
		changes.Organization = models.NewOrganizationFromProvider(now, upstreamOrg)
		changes.CreateOrganization = true
	} else {
		org := *snapshot.Organization
		if org.ApplyProvider(upstreamOrg) {
			org.UpdatedAt = now
			changes.UpdateOrganization = true
		}
		changes.Organization = &org
	}

	if snapshot.Membership == nil {
		changes.Membership = models.NewOrganizationMembership(now, changes.Organization.ID, account.ID, upstreamOrg.ViewerIsAdmin)
		changes.CreateMembership = true
	} else {
		membership := *snapshot.Membership
		if membership.IsAdmin != upstreamOrg.ViewerIsAdmin {
			membership.IsAdmin = upstreamOrg.ViewerIsAdmin
			changes.UpdateMembership = true
		}
		changes.Membership = &membership
	}

	changes.scopeChangeSet = planRepos(now, upstreamRepos, snapshot.KnownRepos, snapshot.ReposByProviderID,
		func(repo *models.Repo) bool {
			if repo.OrganizationID == changes.Organization.ID {
				return false
			}
			repo.OrganizationID = changes.Organization.ID
			repo.OwnerAccountID = models.AccountID{}
			return true
		},
		func(repo *models.Repo) {
			repo.OrganizationID = models.OrganizationID{}
		})
	return changes
}

// planPersonalRepos computes the changes that reconcile the account's upstream personal repos with
// local state. It does no I/O.
func planPersonalRepos(
	now models.Time,
	account *models.Account,
	upstreamRepos []*models.ProviderRepo,
	snapshot *personalSnapshot,
) *scopeChangeSet {
	changes := planRepos(now, upstreamRepos, snapshot.KnownRepos, snapshot.ReposByProviderID,
		func(repo *models.Repo) bool {
			if repo.OwnerAccountID == account.ID {
				return false
			}
			repo.OwnerAccountID = account.ID
			repo.OrganizationID = models.OrganizationID{}
			return true
		},
		func(repo *models.Repo) {
			repo.OwnerAccountID = models.AccountID{}
		})
	return &changes
}

// planRepos runs the create/update/check-list algorithm shared by both scopes. link attaches a repo
// to the scope, returning true if it was not already attached; unlink detaches it.
func planRepos(
	now models.Time,
	upstreamRepos []*models.ProviderRepo,
	knownRepos []*models.Repo,
	reposByProviderID map[models.ProviderID]*models.Repo,
	link func(repo *models.Repo) bool,
	unlink func(repo *models.Repo),
) scopeChangeSet {
	var changes scopeChangeSet

	checkList := make(map[models.RepoID]*models.Repo, len(knownRepos))
	for _, repo := range knownRepos {
		checkList[repo.ID] = repo
	}

	seen := make(map[models.ProviderID]bool)
	for _, upstream := range adminRepos(upstreamRepos) {
		if seen[upstream.ID] {
			continue
		}
		seen[upstream.ID] = true
		local, ok := reposByProviderID[upstream.ID]
		if !ok {
			repo := models.NewRepoFromProvider(now, upstream)
			link(repo)
			changes.Reconciled = append(changes.Reconciled, &repoChange{Repo: repo, Created: true})
			continue
		}
		repo := *local
		changed := repo.ApplyProvider(upstream)
		linked := link(&repo)
		if changed || linked {
			repo.UpdatedAt = now
		}
		delete(checkList, repo.ID)
		changes.Reconciled = append(changes.Reconciled, &repoChange{Repo: &repo, Updated: changed || linked, Linked: linked})
	}

	for _, known := range knownRepos {
		if _, stillListed := checkList[known.ID]; !stillListed {
			continue
		}
		repo := *known
		unlink(&repo)
		repo.UpdatedAt = now
		changes.Unlinked = append(changes.Unlinked, &repo)
	}
	return changes
}
