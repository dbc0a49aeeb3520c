package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/services"
	"github.com/vmware-archive/salt-ci/server/services/scm"
	"github.com/vmware-archive/salt-ci/server/store"
)

// DefaultLeaseDuration is how long a sync may hold an account's sync lease. A sync that crashes
// without releasing its lease blocks further syncs of the account until the lease expires.
const DefaultLeaseDuration = 5 * time.Minute

// personalScope names the personal repos scope in batch failures.
const personalScope = "personal"

type SyncConfig struct {
	LeaseDuration time.Duration
}

type SyncService struct {
	db                          *store.DB
	clock                       clock.Clock
	provider                    scm.Provider
	accountStore                store.AccountStore
	organizationStore           store.OrganizationStore
	organizationMembershipStore store.OrganizationMembershipStore
	repoStore                   store.RepoStore
	repoAdministratorStore      store.RepoAdministratorStore
	leaseDuration               time.Duration
	logger.Log
}

func NewSyncService(
	db *store.DB,
	clk clock.Clock,
	config SyncConfig,
	provider scm.Provider,
	accountStore store.AccountStore,
	organizationStore store.OrganizationStore,
	organizationMembershipStore store.OrganizationMembershipStore,
	repoStore store.RepoStore,
	repoAdministratorStore store.RepoAdministratorStore,
	logFactory logger.LogFactory,
) *SyncService {
	leaseDuration := config.LeaseDuration
	if leaseDuration <= 0 {
		leaseDuration = DefaultLeaseDuration
	}
	return &SyncService{
		db:                          db,
		clock:                       clk,
		provider:                    provider,
		accountStore:                accountStore,
		organizationStore:           organizationStore,
		organizationMembershipStore: organizationMembershipStore,
		repoStore:                   repoStore,
		repoAdministratorStore:      repoAdministratorStore,
		leaseDuration:               leaseDuration,
		Log:                         logFactory("SyncService"),
	}
}

// scopeResult counts the repo changes committed for one scope.
type scopeResult struct {
	created  int
	updated  int
	linked   int
	unlinked int
}

// syncRun is the state of one SyncAccount invocation.
type syncRun struct {
	account *models.Account
	result  *models.SyncResult
	// reconciled holds every repo reconciled so far; these stay in the account's managed set
	// even if a later scope unlinks them.
	reconciled map[models.RepoID]bool
}

// SyncAccount reconciles the account's organizations, organization repos and personal repos against
// the provider. Each organization, and the personal repos, commit in their own transaction; a
// failure stops the sync and is reported in the result alongside the work already committed.
// Returns gerror.ErrSyncInProgress if another sync of the same account is running.
func (s *SyncService) SyncAccount(ctx context.Context, accountID models.AccountID) (*models.SyncResult, error) {
	account, err := s.accountStore.Read(ctx, nil, accountID)
	if err != nil {
		return nil, fmt.Errorf("error reading account: %w", err)
	}

	now := s.clock.Now()
	err = s.accountStore.AcquireSyncLease(ctx, nil, accountID, models.NewTime(now), models.NewTime(now.Add(s.leaseDuration)))
	if err != nil {
		syncsTotal.WithLabelValues(syncOutcomeRejected).Inc()
		return nil, err
	}
	defer func() {
		// Release even if the request was cancelled, so the next sync need not wait for the lease to expire
		err := s.accountStore.ReleaseSyncLease(context.WithoutCancel(ctx), nil, accountID)
		if err != nil {
			s.Errorf("Error releasing sync lease for account %s: %v", accountID, err)
		}
	}()

	s.Infof("Beginning sync for account %s (%q)", account.ID, account.Login)
	run := &syncRun{
		account:    account,
		result:     &models.SyncResult{},
		reconciled: make(map[models.RepoID]bool),
	}
	s.doSync(ctx, run)

	syncDuration.Observe(s.clock.Since(now).Seconds())
	if run.result.IsPartial() {
		syncsTotal.WithLabelValues(syncOutcomePartial).Inc()
		s.Warnf("Sync for account %s stopped at %q after %d scopes: %s",
			account.ID, run.result.Failure.Scope, run.result.Succeeded, run.result.Failure.Message)
	} else {
		syncsTotal.WithLabelValues(syncOutcomeComplete).Inc()
		s.Infof("Sync completed for account %s; %d scopes, %d repos created, %d updated, %d linked, %d unlinked",
			account.ID, run.result.Succeeded, run.result.ReposCreated, run.result.ReposUpdated,
			run.result.ReposLinked, run.result.ReposUnlinked)
	}
	return run.result, nil
}

// doSync runs each scope in turn, stopping at the first failure.
func (s *SyncService) doSync(ctx context.Context, run *syncRun) {
	// Snapshot the organizations before mutation; upstream organizations are struck off as they
	// are reconciled and the rest are unlinked once every organization has been seen.
	knownOrgs, err := s.organizationStore.ListForAccount(ctx, nil, run.account.ID)
	if err != nil {
		run.result.Failure = services.NewBatchFailure("organizations", err)
		return
	}
	remaining := make(map[models.OrganizationID]*models.Organization, len(knownOrgs))
	for _, org := range knownOrgs {
		remaining[org.ID] = org
	}

	upstreamOrgs, err := s.provider.ListOrganizations(ctx, run.account.AccessToken)
	if err != nil {
		run.result.Failure = services.NewBatchFailure("organizations", err)
		return
	}

	for _, upstreamOrg := range upstreamOrgs {
		upstreamRepos, err := s.provider.ListOrganizationRepos(ctx, run.account.AccessToken, upstreamOrg.Login)
		if err != nil {
			run.result.Failure = services.NewBatchFailure(upstreamOrg.Login, err)
			return
		}
		org, err := s.syncOrganization(ctx, run, upstreamOrg, upstreamRepos)
		if err != nil {
			run.result.Failure = services.NewBatchFailure(upstreamOrg.Login, err)
			return
		}
		delete(remaining, org.ID)
		run.result.Succeeded++
	}

	for _, org := range knownOrgs {
		if _, ok := remaining[org.ID]; !ok {
			continue
		}
		err := s.unlinkOrganization(ctx, run, org)
		if err != nil {
			run.result.Failure = services.NewBatchFailure(org.Login, err)
			return
		}
	}

	upstreamRepos, err := s.provider.ListUserRepos(ctx, run.account.AccessToken)
	if err != nil {
		run.result.Failure = services.NewBatchFailure(personalScope, err)
		return
	}
	err = s.syncPersonalRepos(ctx, run, upstreamRepos)
	if err != nil {
		run.result.Failure = services.NewBatchFailure(personalScope, err)
		return
	}
	run.result.Succeeded++
}

// syncOrganization reconciles one upstream organization and its repos in a single transaction.
func (s *SyncService) syncOrganization(
	ctx context.Context,
	run *syncRun,
	upstreamOrg *models.ProviderOrganization,
	upstreamRepos []*models.ProviderRepo,
) (*models.Organization, error) {
	var (
		changes *orgChangeSet
		result  *scopeResult
	)
	err := s.db.WithTx(ctx, nil, func(tx *store.Tx) error {
		snapshot, err := s.readOrgSnapshot(ctx, tx, run.account, upstreamOrg, upstreamRepos)
		if err != nil {
			return err
		}
		changes = planOrganization(models.NewTime(s.clock.Now()), run.account, upstreamOrg, upstreamRepos, snapshot)
		result, err = s.applyOrganization(ctx, tx, run, changes)
		return err
	})
	if err != nil {
		return nil, err
	}
	if changes.CreateOrganization {
		run.result.OrganizationsCreated++
		s.Infof("Created organization %s (%q)", changes.Organization.ID, changes.Organization.Login)
	}
	s.recordScope(run, &changes.scopeChangeSet, result)
	s.Debugf("Reconciled organization %q for account %s: %d repos", upstreamOrg.Login, run.account.ID, len(changes.Reconciled))
	return changes.Organization, nil
}

func (s *SyncService) readOrgSnapshot(
	ctx context.Context,
	tx *store.Tx,
	account *models.Account,
	upstreamOrg *models.ProviderOrganization,
	upstreamRepos []*models.ProviderRepo,
) (*orgSnapshot, error) {
	snapshot := &orgSnapshot{}
	org, err := s.organizationStore.ReadByProviderID(ctx, tx, upstreamOrg.ID)
	if err != nil && !gerror.IsNotFound(err) {
		return nil, fmt.Errorf("error reading organization: %w", err)
	}
	if err == nil {
		snapshot.Organization = org
		membership, err := s.organizationMembershipStore.ReadByMember(ctx, tx, org.ID, account.ID)
		if err != nil && !gerror.IsNotFound(err) {
			return nil, fmt.Errorf("error reading organization membership: %w", err)
		}
		if err == nil {
			snapshot.Membership = membership
		}
		snapshot.KnownRepos, err = s.repoStore.ListForOrganization(ctx, tx, org.ID)
		if err != nil {
			return nil, fmt.Errorf("error listing organization repos: %w", err)
		}
	}
	snapshot.ReposByProviderID, err = s.readReposByProviderID(ctx, tx, upstreamRepos)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *SyncService) applyOrganization(ctx context.Context, tx *store.Tx, run *syncRun, changes *orgChangeSet) (*scopeResult, error) {
	if changes.CreateOrganization {
		err := s.organizationStore.Create(ctx, tx, changes.Organization)
		if err != nil {
			return nil, fmt.Errorf("error creating organization: %w", err)
		}
	} else if changes.UpdateOrganization {
		err := s.organizationStore.Update(ctx, tx, changes.Organization)
		if err != nil {
			return nil, fmt.Errorf("error updating organization: %w", err)
		}
	}
	if changes.CreateMembership {
		_, _, err := s.organizationMembershipStore.FindOrCreate(ctx, tx, changes.Membership)
		if err != nil {
			return nil, fmt.Errorf("error creating organization membership: %w", err)
		}
	} else if changes.UpdateMembership {
		err := s.organizationMembershipStore.Update(ctx, tx, changes.Membership)
		if err != nil {
			return nil, fmt.Errorf("error updating organization membership: %w", err)
		}
	}
	return s.applyScope(ctx, tx, run, &changes.scopeChangeSet)
}

// unlinkOrganization removes the account from an organization it is no longer a member of
// upstream, along with the organization's repos from the account's managed set.
func (s *SyncService) unlinkOrganization(ctx context.Context, run *syncRun, org *models.Organization) error {
	err := s.db.WithTx(ctx, nil, func(tx *store.Tx) error {
		err := s.organizationMembershipStore.DeleteByMember(ctx, tx, org.ID, run.account.ID)
		if err != nil {
			return fmt.Errorf("error deleting organization membership: %w", err)
		}
		repos, err := s.repoStore.ListForOrganization(ctx, tx, org.ID)
		if err != nil {
			return fmt.Errorf("error listing organization repos: %w", err)
		}
		for _, repo := range repos {
			if run.reconciled[repo.ID] {
				continue
			}
			err = s.repoAdministratorStore.DeleteByAdministrator(ctx, tx, repo.ID, run.account.ID)
			if err != nil {
				return fmt.Errorf("error removing repo %s from managed repos: %w", repo.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	run.result.OrganizationsUnlinked++
	s.Infof("Unlinked account %s from organization %s (%q)", run.account.ID, org.ID, org.Login)
	return nil
}

// syncPersonalRepos reconciles the account's personal repos in a single transaction.
func (s *SyncService) syncPersonalRepos(ctx context.Context, run *syncRun, upstreamRepos []*models.ProviderRepo) error {
	var (
		changes *scopeChangeSet
		result  *scopeResult
	)
	err := s.db.WithTx(ctx, nil, func(tx *store.Tx) error {
		knownRepos, err := s.repoStore.ListOwnedByAccount(ctx, tx, run.account.ID)
		if err != nil {
			return fmt.Errorf("error listing personal repos: %w", err)
		}
		reposByProviderID, err := s.readReposByProviderID(ctx, tx, upstreamRepos)
		if err != nil {
			return err
		}
		changes = planPersonalRepos(models.NewTime(s.clock.Now()), run.account, upstreamRepos, &personalSnapshot{
			KnownRepos:        knownRepos,
			ReposByProviderID: reposByProviderID,
		})
		result, err = s.applyScope(ctx, tx, run, changes)
		return err
	})
	if err != nil {
		return err
	}
	s.recordScope(run, changes, result)
	return nil
}

// applyScope writes a scope's repo changes and maintains the account's managed set to match.
func (s *SyncService) applyScope(ctx context.Context, tx *store.Tx, run *syncRun, changes *scopeChangeSet) (*scopeResult, error) {
	result := &scopeResult{}
	now := models.NewTime(s.clock.Now())
	for _, change := range changes.Reconciled {
		switch {
		case change.Created:
			err := s.repoStore.Create(ctx, tx, change.Repo)
			if err != nil {
				return nil, fmt.Errorf("error creating repo %q: %w", change.Repo.Name, err)
			}
			result.created++
		case change.Updated:
			err := s.repoStore.Update(ctx, tx, change.Repo)
			if err != nil {
				return nil, fmt.Errorf("error updating repo %s: %w", change.Repo.ID, err)
			}
			if change.Linked {
				result.linked++
			} else {
				result.updated++
			}
		}
		_, _, err := s.repoAdministratorStore.FindOrCreate(ctx, tx, models.NewRepoAdministrator(now, change.Repo.ID, run.account.ID))
		if err != nil {
			return nil, fmt.Errorf("error adding repo %s to managed repos: %w", change.Repo.ID, err)
		}
	}
	for _, repo := range changes.Unlinked {
		err := s.repoStore.Update(ctx, tx, repo)
		if err != nil {
			return nil, fmt.Errorf("error unlinking repo %s: %w", repo.ID, err)
		}
		if !s.isReconciled(run, changes, repo.ID) {
			err = s.repoAdministratorStore.DeleteByAdministrator(ctx, tx, repo.ID, run.account.ID)
			if err != nil {
				return nil, fmt.Errorf("error removing repo %s from managed repos: %w", repo.ID, err)
			}
		}
		result.unlinked++
	}
	return result, nil
}

// isReconciled returns true if the repo was reconciled earlier in the run or in the scope being applied.
func (s *SyncService) isReconciled(run *syncRun, changes *scopeChangeSet, repoID models.RepoID) bool {
	if run.reconciled[repoID] {
		return true
	}
	for _, change := range changes.Reconciled {
		if change.Repo.ID == repoID {
			return true
		}
	}
	return false
}

// recordScope adds a committed scope's changes to the run. Must only be called after the scope's
// transaction has committed.
func (s *SyncService) recordScope(run *syncRun, changes *scopeChangeSet, result *scopeResult) {
	for _, change := range changes.Reconciled {
		run.reconciled[change.Repo.ID] = true
	}
	run.result.ReposCreated += result.created
	run.result.ReposUpdated += result.updated
	run.result.ReposLinked += result.linked
	run.result.ReposUnlinked += result.unlinked
	recordRepoChanges(result)
}

func (s *SyncService) readReposByProviderID(ctx context.Context, tx *store.Tx, upstreamRepos []*models.ProviderRepo) (map[models.ProviderID]*models.Repo, error) {
	repos := make(map[models.ProviderID]*models.Repo)
	for _, upstream := range adminRepos(upstreamRepos) {
		repo, err := s.repoStore.ReadByProviderID(ctx, tx, upstream.ID)
		if err != nil {
			if gerror.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("error reading repo with provider id %s: %w", upstream.ID, err)
		}
		repos[upstream.ID] = repo
	}
	return repos, nil
}
