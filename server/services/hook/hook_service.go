package hook

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/services"
	"github.com/vmware-archive/salt-ci/server/services/scm"
	"github.com/vmware-archive/salt-ci/server/store"
)

// hooksPath is the path under the callback base URL that inbound hook routes are served on.
const hooksPath = "/api/v1/hooks"

type HookConfig struct {
	// CallbackBaseURL is the externally reachable base URL of this server e.g. "https://ci.example.com".
	// Provider hooks whose URL starts with this base are treated as belonging to this application.
	CallbackBaseURL string
}

type HookService struct {
	db                          *store.DB
	clock                       clock.Clock
	provider                    scm.Provider
	accountStore                store.AccountStore
	organizationStore           store.OrganizationStore
	organizationMembershipStore store.OrganizationMembershipStore
	repoStore                   store.RepoStore
	repoAdministratorStore      store.RepoAdministratorStore
	callbackBaseURL             string
	logger.Log
}

func NewHookService(
	db *store.DB,
	clk clock.Clock,
	config HookConfig,
	provider scm.Provider,
	accountStore store.AccountStore,
	organizationStore store.OrganizationStore,
	organizationMembershipStore store.OrganizationMembershipStore,
	repoStore store.RepoStore,
	repoAdministratorStore store.RepoAdministratorStore,
	logFactory logger.LogFactory,
) *HookService {
	return &HookService{
		db:                          db,
		clock:                       clk,
		provider:                    provider,
		accountStore:                accountStore,
		organizationStore:           organizationStore,
		organizationMembershipStore: organizationMembershipStore,
		repoStore:                   repoStore,
		repoAdministratorStore:      repoAdministratorStore,
		callbackBaseURL:             strings.TrimSuffix(config.CallbackBaseURL, "/"),
		Log:                         logFactory("HookService"),
	}
}

// ApplySelection makes the set of the account's managed repos with an active hook of the specified
// kind equal to desired, disabling hooks before enabling them. A provider failure stops the batch
// and is reported in the result; repos already processed keep their new state.
func (s *HookService) ApplySelection(ctx context.Context, accountID models.AccountID, kind models.HookKind, desired []models.RepoID) (*models.HookResult, error) {
	if !kind.Valid() {
		return nil, gerror.NewErrValidationFailed(fmt.Sprintf("Unknown hook kind %q", kind))
	}
	account, err := s.accountStore.Read(ctx, nil, accountID)
	if err != nil {
		return nil, fmt.Errorf("error reading account: %w", err)
	}
	managed, err := s.repoStore.ListManagedByAccount(ctx, nil, accountID, models.RepoFilter{})
	if err != nil {
		return nil, fmt.Errorf("error listing managed repos: %w", err)
	}
	disable, enable := planTransitions(kind, managed, desired)
	if len(disable)+len(enable) > 0 {
		s.Infof("Applying %s hook selection for account %s: disabling %d, enabling %d",
			kind, accountID, len(disable), len(enable))
	}

	result := &models.HookResult{
		Kind:     kind,
		Enabled:  []models.RepoID{},
		Disabled: []models.RepoID{},
	}
	for _, repo := range disable {
		err := s.DisableHook(ctx, account, kind, repo)
		if err != nil {
			result.Failure = services.NewBatchFailure(repo.ID.String(), err)
			s.Warnf("Stopping %s hook selection for account %s: %v", kind, accountID, err)
			return result, nil
		}
		result.Disabled = append(result.Disabled, repo.ID)
		result.Succeeded++
	}
	for _, repo := range enable {
		err := s.EnableHook(ctx, account, kind, repo)
		if err != nil {
			result.Failure = services.NewBatchFailure(repo.ID.String(), err)
			s.Warnf("Stopping %s hook selection for account %s: %v", kind, accountID, err)
			return result, nil
		}
		result.Enabled = append(result.Enabled, repo.ID)
		result.Succeeded++
	}
	return result, nil
}

// EnableHook ensures exactly one app hook of the specified kind exists on the repo, then marks it active.
func (s *HookService) EnableHook(ctx context.Context, account *models.Account, kind models.HookKind, repo *models.Repo) error {
	hooks, err := s.listAppHooks(ctx, account, kind, repo)
	if err != nil {
		return err
	}
	if len(hooks) == 0 {
		callbackURL, err := s.CallbackURL(ctx, kind, account, repo)
		if err != nil {
			return err
		}
		hook, err := s.provider.CreateRepoHook(ctx, account.AccessToken, repo.OwnerLogin, repo.Name, kind.ProviderEvent(), callbackURL)
		if err != nil {
			return fmt.Errorf("error creating %s hook on %s/%s: %w", kind, repo.OwnerLogin, repo.Name, err)
		}
		s.Infof("Created %s hook %s on %s/%s", kind, hook.ID, repo.OwnerLogin, repo.Name)
	} else {
		s.Debugf("Found existing %s hook %s on %s/%s", kind, hooks[0].ID, repo.OwnerLogin, repo.Name)
	}
	err = s.setHookActive(ctx, kind, repo, true)
	if err != nil {
		return err
	}
	hookTransitionsTotal.WithLabelValues(kind.String(), string(models.HookTransitionEnable)).Inc()
	return nil
}

// DisableHook deletes every app hook of the specified kind on the repo, then marks it inactive.
// The flag is cleared even if no hook was found.
func (s *HookService) DisableHook(ctx context.Context, account *models.Account, kind models.HookKind, repo *models.Repo) error {
	hooks, err := s.listAppHooks(ctx, account, kind, repo)
	if err != nil {
		return err
	}
	for _, hook := range hooks {
		err := s.provider.DeleteRepoHook(ctx, account.AccessToken, repo.OwnerLogin, repo.Name, hook.ID)
		if err != nil {
			return fmt.Errorf("error deleting %s hook %s on %s/%s: %w", kind, hook.ID, repo.OwnerLogin, repo.Name, err)
		}
		s.Infof("Deleted %s hook %s on %s/%s", kind, hook.ID, repo.OwnerLogin, repo.Name)
	}
	err = s.setHookActive(ctx, kind, repo, false)
	if err != nil {
		return err
	}
	hookTransitionsTotal.WithLabelValues(kind.String(), string(models.HookTransitionDisable)).Inc()
	return nil
}

// CallbackURL returns the URL the provider delivers hooks of the specified kind to, for a repo
// managed by the account.
func (s *HookService) CallbackURL(ctx context.Context, kind models.HookKind, account *models.Account, repo *models.Repo) (string, error) {
	segments := []string{kind.String(), account.Login}
	if repo.IsOrganizationRepo() {
		org, err := s.organizationStore.Read(ctx, nil, repo.OrganizationID)
		if err != nil {
			return "", fmt.Errorf("error reading organization for repo %s: %w", repo.ID, err)
		}
		segments = append(segments, org.Login)
	}
	segments = append(segments, repo.Name)
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return s.callbackBaseURL + path.Join(append([]string{hooksPath}, segments...)...), nil
}

// ResolveInboundTarget validates the address an inbound hook payload was delivered to.
// organizationLogin is empty for personal repos. Every mismatch returns the same gerror.ErrNotFound.
func (s *HookService) ResolveInboundTarget(
	ctx context.Context,
	kind models.HookKind,
	login string,
	organizationLogin string,
	repoName string,
) (*models.InboundHookTarget, error) {
	if !kind.Valid() {
		return nil, errInboundNotFound()
	}
	account, err := s.accountStore.ReadByLogin(ctx, nil, login)
	if err != nil {
		return nil, s.inboundError(err)
	}
	return s.resolveRepoTarget(ctx, kind, account, organizationLogin, repoName)
}

// ResolveInboundTokenTarget validates a push payload delivered to an account's hooks token URL.
// ownerLogin and repoName are taken from the payload. Every mismatch returns the same gerror.ErrNotFound.
func (s *HookService) ResolveInboundTokenTarget(ctx context.Context, token string, ownerLogin string, repoName string) (*models.InboundHookTarget, error) {
	account, err := s.accountStore.ReadByHooksToken(ctx, nil, token)
	if err != nil {
		return nil, s.inboundError(err)
	}
	var organizationLogin string
	if ownerLogin != account.Login {
		organizationLogin = ownerLogin
	}
	return s.resolveRepoTarget(ctx, models.HookKindPush, account, organizationLogin, repoName)
}

// HandleInboundPayload accepts a validated hook payload.
func (s *HookService) HandleInboundPayload(ctx context.Context, target *models.InboundHookTarget, payload []byte) error {
	hookPayloadsTotal.WithLabelValues(target.Kind.String()).Inc()
	s.WithFields(logger.Fields{
		"kind":    target.Kind,
		"account": target.Account.Login,
		"repo":    target.Repo.ID,
		"bytes":   len(payload),
	}).Infof("Accepted %s hook payload for %s/%s", target.Kind, target.Repo.OwnerLogin, target.Repo.Name)
	return nil
}

func (s *HookService) resolveRepoTarget(
	ctx context.Context,
	kind models.HookKind,
	account *models.Account,
	organizationLogin string,
	repoName string,
) (*models.InboundHookTarget, error) {
	target := &models.InboundHookTarget{Kind: kind, Account: account}
	var organizationID models.OrganizationID
	if organizationLogin != "" {
		org, err := s.organizationStore.ReadByLogin(ctx, nil, organizationLogin)
		if err != nil {
			return nil, s.inboundError(err)
		}
		_, err = s.organizationMembershipStore.ReadByMember(ctx, nil, org.ID, account.ID)
		if err != nil {
			return nil, s.inboundError(err)
		}
		target.Organization = org
		organizationID = org.ID
	}
	repo, err := s.repoStore.ReadByOwnerAndName(ctx, nil, account.ID, organizationID, repoName)
	if err != nil {
		return nil, s.inboundError(err)
	}
	if !repo.HookActive(kind) {
		return nil, errInboundNotFound()
	}
	isAdministrator, err := s.repoAdministratorStore.IsAdministrator(ctx, nil, repo.ID, account.ID)
	if err != nil {
		return nil, s.inboundError(err)
	}
	if !isAdministrator {
		return nil, errInboundNotFound()
	}
	target.Repo = repo
	return target, nil
}

// listAppHooks returns the hooks on the repo that belong to this application and cover kind.
func (s *HookService) listAppHooks(ctx context.Context, account *models.Account, kind models.HookKind, repo *models.Repo) ([]*models.ProviderHook, error) {
	hooks, err := s.provider.ListRepoHooks(ctx, account.AccessToken, repo.OwnerLogin, repo.Name)
	if err != nil {
		return nil, fmt.Errorf("error listing hooks on %s/%s: %w", repo.OwnerLogin, repo.Name, err)
	}
	var appHooks []*models.ProviderHook
	for _, hook := range hooks {
		if s.isAppHook(hook) && hook.HasEvent(kind.ProviderEvent()) {
			appHooks = append(appHooks, hook)
		}
	}
	return appHooks, nil
}

func (s *HookService) isAppHook(hook *models.ProviderHook) bool {
	return strings.HasPrefix(hook.URL(), s.callbackBaseURL+hooksPath+"/")
}

// setHookActive records the hook state of a repo, re-reading it so the update applies to the latest row.
func (s *HookService) setHookActive(ctx context.Context, kind models.HookKind, repo *models.Repo, active bool) error {
	return s.db.WithTx(ctx, nil, func(tx *store.Tx) error {
		latest, err := s.repoStore.Read(ctx, tx, repo.ID)
		if err != nil {
			return fmt.Errorf("error reading repo: %w", err)
		}
		if latest.HookActive(kind) == active {
			repo.SetHookActive(kind, active)
			return nil
		}
		latest.SetHookActive(kind, active)
		latest.UpdatedAt = models.NewTime(s.clock.Now())
		err = s.repoStore.Update(ctx, tx, latest)
		if err != nil {
			return fmt.Errorf("error updating repo: %w", err)
		}
		*repo = *latest
		return nil
	})
}

// inboundError hides why an inbound hook was rejected. Store failures other than not found are logged.
func (s *HookService) inboundError(err error) error {
	if !gerror.IsNotFound(err) {
		s.Errorf("Error validating inbound hook: %v", err)
	}
	return errInboundNotFound()
}

func errInboundNotFound() error {
	return gerror.NewErrNotFound("Not Found")
}
