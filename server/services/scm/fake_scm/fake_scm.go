package fake_scm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
)

const FakeProviderName = "fake-scm"

// Operation names a provider call, for failure injection.
type Operation string

const (
	OpExchangeCode          Operation = "ExchangeCode"
	OpGetAuthenticatedUser  Operation = "GetAuthenticatedUser"
	OpListOrganizations     Operation = "ListOrganizations"
	OpListOrganizationRepos Operation = "ListOrganizationRepos"
	OpListUserRepos         Operation = "ListUserRepos"
	OpListRepoHooks         Operation = "ListRepoHooks"
	OpCreateRepoHook        Operation = "CreateRepoHook"
	OpDeleteRepoHook        Operation = "DeleteRepoHook"
)

// fakeState contains the information stored in the provider. The data structure is loosely modelled on GitHub.
type fakeState struct {
	usersByLogin map[string]*fakeUser
	loginByToken map[string]string
	tokenByCode  map[string]string
	orgsByLogin  map[string]*fakeOrg
	repos        map[models.ProviderID]*fakeRepo
	// failures are returned by the next matching call; the key "op" or "op:scope" e.g.
	// "ListOrganizationRepos:acme" for only the acme organization.
	failures map[string]error
	calls    map[Operation]int
	nextID   models.ProviderID
}

type fakeUser struct {
	id        models.ProviderID
	login     string
	name      string
	avatarURL string
}

type fakeOrg struct {
	id      models.ProviderID
	login   string
	name    string
	members map[string]bool // login -> is admin
}

type fakeRepo struct {
	id          models.ProviderID
	name        string
	ownerLogin  string
	isOrg       bool
	description string
	fork        bool
	private     bool
	admins      map[string]bool
	hooks       []*models.ProviderHook
}

// FakeProvider is an in-memory implementation of scm.Provider designed for testing. It is loosely
// based on GitHub, but allows complete control of the data on the provider.
type FakeProvider struct {
	state *fakeState
	mu    sync.Mutex
	logger.Log
}

func NewFakeProvider(logFactory logger.LogFactory) *FakeProvider {
	return &FakeProvider{
		state: &fakeState{
			usersByLogin: make(map[string]*fakeUser),
			loginByToken: make(map[string]string),
			tokenByCode:  make(map[string]string),
			orgsByLogin:  make(map[string]*fakeOrg),
			repos:        make(map[models.ProviderID]*fakeRepo),
			failures:     make(map[string]error),
			calls:        make(map[Operation]int),
			nextID:       1000,
		},
		Log: logFactory("FakeProvider"),
	}
}

func (s *FakeProvider) allocateID() models.ProviderID {
	s.state.nextID++
	return s.state.nextID
}

// CreateUser adds a user to the provider and returns the access token that authenticates as the user.
func (s *FakeProvider) CreateUser(login string, name string) (models.ProviderID, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &fakeUser{
		id:        s.allocateID(),
		login:     login,
		name:      name,
		avatarURL: fmt.Sprintf("https://avatars.example.com/%s", login),
	}
	s.state.usersByLogin[login] = user
	token := fmt.Sprintf("token-%s-%d", login, user.id)
	s.state.loginByToken[token] = login
	return user.id, token
}

// RevokeToken makes subsequent calls with the token fail authentication.
func (s *FakeProvider) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.loginByToken, token)
}

// RegisterCode makes the OAuth authorization code exchangeable for the token.
func (s *FakeProvider) RegisterCode(code string, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.tokenByCode[code] = token
}

// CreateOrganization adds an organization, or returns the ID of the existing organization with the same login.
func (s *FakeProvider) CreateOrganization(login string, name string) models.ProviderID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.state.orgsByLogin[login]; ok {
		return existing.id
	}
	org := &fakeOrg{
		id:      s.allocateID(),
		login:   login,
		name:    name,
		members: make(map[string]bool),
	}
	s.state.orgsByLogin[login] = org
	return org.id
}

// SetOrganizationMember adds a user to an organization, or changes their admin role if already a member.
func (s *FakeProvider) SetOrganizationMember(orgLogin string, userLogin string, isAdmin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustOrg(orgLogin).members[userLogin] = isAdmin
}

func (s *FakeProvider) RemoveOrganizationMember(orgLogin string, userLogin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mustOrg(orgLogin).members, userLogin)
}

// CreateOrganizationRepo adds a repo to an organization. Organization admins are admins of every
// repo in the organization; admins lists any other users with admin permission.
func (s *FakeProvider) CreateOrganizationRepo(orgLogin string, name string, admins ...string) models.ProviderID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustOrg(orgLogin)
	return s.createRepo(orgLogin, true, name, admins)
}

// CreateUserRepo adds a personal repo owned by the user. The owner is always an admin.
func (s *FakeProvider) CreateUserRepo(userLogin string, name string) models.ProviderID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRepo(userLogin, false, name, []string{userLogin})
}

func (s *FakeProvider) createRepo(ownerLogin string, isOrg bool, name string, admins []string) models.ProviderID {
	repo := &fakeRepo{
		id:         s.allocateID(),
		name:       name,
		ownerLogin: ownerLogin,
		isOrg:      isOrg,
		admins:     make(map[string]bool),
	}
	for _, login := range admins {
		repo.admins[login] = true
	}
	s.state.repos[repo.id] = repo
	return repo.id
}

// SetRepoAdmin grants or revokes a user's admin permission on a repo.
func (s *FakeProvider) SetRepoAdmin(repoID models.ProviderID, userLogin string, isAdmin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustRepo(repoID).admins[userLogin] = isAdmin
}

// UpdateRepo changes the mutable attributes of a repo.
func (s *FakeProvider) UpdateRepo(repoID models.ProviderID, name string, description string, private bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo := s.mustRepo(repoID)
	repo.name = name
	repo.description = description
	repo.private = private
}

func (s *FakeProvider) DeleteRepo(repoID models.ProviderID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.repos, repoID)
}

// AddRepoHook registers a hook directly, as another application would.
func (s *FakeProvider) AddRepoHook(repoID models.ProviderID, event string, url string) models.ProviderID {
	s.mu.Lock()
	defer s.mu.Unlock()
	hook := &models.ProviderHook{
		ID:     s.allocateID(),
		Events: []string{event},
		Config: map[string]interface{}{"url": url, "content_type": "json"},
	}
	repo := s.mustRepo(repoID)
	repo.hooks = append(repo.hooks, hook)
	return hook.ID
}

// RepoHooks returns a copy of the hooks registered on a repo.
func (s *FakeProvider) RepoHooks(repoID models.ProviderID) []*models.ProviderHook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.ProviderHook(nil), s.mustRepo(repoID).hooks...)
}

// FailNext makes the next call of op fail with err. An optional scope (organization login or
// "owner/repo") restricts the failure to calls for that scope.
func (s *FakeProvider) FailNext(op Operation, scope string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.failures[failureKey(op, scope)] = err
}

// CallCount returns the number of calls made to op.
func (s *FakeProvider) CallCount(op Operation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.calls[op]
}

func failureKey(op Operation, scope string) string {
	if scope == "" {
		return string(op)
	}
	return fmt.Sprintf("%s:%s", op, scope)
}

// begin records a call and returns any injected failure. Must be called with the lock held.
func (s *FakeProvider) begin(ctx context.Context, op Operation, scope string) error {
	s.state.calls[op]++
	if ctx.Err() != nil {
		return gerror.NewErrTimeout(string(op)).Wrap(ctx.Err())
	}
	for _, key := range []string{failureKey(op, scope), failureKey(op, "")} {
		if err, ok := s.state.failures[key]; ok {
			delete(s.state.failures, key)
			return err
		}
	}
	return nil
}

func (s *FakeProvider) authenticate(token string) (*fakeUser, error) {
	login, ok := s.state.loginByToken[token]
	if !ok {
		return nil, gerror.NewErrProviderAuthFailed("Bad credentials")
	}
	return s.state.usersByLogin[login], nil
}

func (s *FakeProvider) mustOrg(login string) *fakeOrg {
	org, ok := s.state.orgsByLogin[login]
	if !ok {
		panic(fmt.Sprintf("fake provider: organization %q does not exist", login))
	}
	return org
}

func (s *FakeProvider) mustRepo(id models.ProviderID) *fakeRepo {
	repo, ok := s.state.repos[id]
	if !ok {
		panic(fmt.Sprintf("fake provider: repo %d does not exist", id))
	}
	return repo
}

func (s *FakeProvider) findRepo(owner string, name string) (*fakeRepo, error) {
	for _, repo := range s.state.repos {
		if repo.ownerLogin == owner && repo.name == name {
			return repo, nil
		}
	}
	return nil, gerror.NewErrProviderAPIFailed(fmt.Sprintf("Repo %s/%s not found", owner, name))
}

func (s *FakeProvider) Name() string {
	return FakeProviderName
}

func (s *FakeProvider) AuthCodeURL(state string) string {
	return fmt.Sprintf("https://fake-scm.example.com/login/oauth/authorize?state=%s", state)
}

func (s *FakeProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpExchangeCode, ""); err != nil {
		return "", err
	}
	token, ok := s.state.tokenByCode[code]
	if !ok {
		return "", gerror.NewErrProviderAuthFailed("Invalid authorization code")
	}
	delete(s.state.tokenByCode, code)
	return token, nil
}

func (s *FakeProvider) GetAuthenticatedUser(ctx context.Context, token string) (*models.ProviderUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpGetAuthenticatedUser, ""); err != nil {
		return nil, err
	}
	user, err := s.authenticate(token)
	if err != nil {
		return nil, err
	}
	return &models.ProviderUser{ID: user.id, Login: user.login, Name: user.name, AvatarURL: user.avatarURL}, nil
}

func (s *FakeProvider) ListOrganizations(ctx context.Context, token string) ([]*models.ProviderOrganization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpListOrganizations, ""); err != nil {
		return nil, err
	}
	user, err := s.authenticate(token)
	if err != nil {
		return nil, err
	}
	var orgs []*models.ProviderOrganization
	for _, org := range s.state.orgsByLogin {
		isAdmin, isMember := org.members[user.login]
		if !isMember {
			continue
		}
		orgs = append(orgs, &models.ProviderOrganization{
			ID:            org.id,
			Name:          org.name,
			Login:         org.login,
			AvatarURL:     fmt.Sprintf("https://avatars.example.com/%s", org.login),
			ViewerIsAdmin: isAdmin,
		})
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].ID < orgs[j].ID })
	return orgs, nil
}

func (s *FakeProvider) ListOrganizationRepos(ctx context.Context, token string, organizationLogin string) ([]*models.ProviderRepo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpListOrganizationRepos, organizationLogin); err != nil {
		return nil, err
	}
	user, err := s.authenticate(token)
	if err != nil {
		return nil, err
	}
	org, ok := s.state.orgsByLogin[organizationLogin]
	if !ok {
		return nil, gerror.NewErrProviderAPIFailed(fmt.Sprintf("Organization %s not found", organizationLogin))
	}
	orgAdmin, isMember := org.members[user.login]
	if !isMember {
		return nil, gerror.NewErrProviderAPIFailed(fmt.Sprintf("Not a member of %s", organizationLogin))
	}
	var repos []*models.ProviderRepo
	for _, repo := range s.state.repos {
		if repo.isOrg && repo.ownerLogin == organizationLogin {
			repos = append(repos, s.toProviderRepo(repo, orgAdmin || repo.admins[user.login]))
		}
	}
	sortRepos(repos)
	return repos, nil
}

func (s *FakeProvider) ListUserRepos(ctx context.Context, token string) ([]*models.ProviderRepo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpListUserRepos, ""); err != nil {
		return nil, err
	}
	user, err := s.authenticate(token)
	if err != nil {
		return nil, err
	}
	var repos []*models.ProviderRepo
	for _, repo := range s.state.repos {
		if !repo.isOrg && repo.ownerLogin == user.login {
			repos = append(repos, s.toProviderRepo(repo, repo.admins[user.login]))
		}
	}
	sortRepos(repos)
	return repos, nil
}

func (s *FakeProvider) ListRepoHooks(ctx context.Context, token string, owner string, repo string) ([]*models.ProviderHook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpListRepoHooks, owner+"/"+repo); err != nil {
		return nil, err
	}
	if _, err := s.authenticate(token); err != nil {
		return nil, err
	}
	fakeRepo, err := s.findRepo(owner, repo)
	if err != nil {
		return nil, err
	}
	return append([]*models.ProviderHook(nil), fakeRepo.hooks...), nil
}

func (s *FakeProvider) CreateRepoHook(
	ctx context.Context,
	token string,
	owner string,
	repo string,
	event string,
	callbackURL string,
) (*models.ProviderHook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpCreateRepoHook, owner+"/"+repo); err != nil {
		return nil, err
	}
	if _, err := s.authenticate(token); err != nil {
		return nil, err
	}
	fakeRepo, err := s.findRepo(owner, repo)
	if err != nil {
		return nil, err
	}
	hook := &models.ProviderHook{
		ID:     s.allocateID(),
		Events: []string{event},
		Config: map[string]interface{}{"url": callbackURL, "content_type": "json"},
	}
	fakeRepo.hooks = append(fakeRepo.hooks, hook)
	s.Debugf("Created %s hook %d on %s/%s", event, hook.ID, owner, repo)
	return hook, nil
}

func (s *FakeProvider) DeleteRepoHook(ctx context.Context, token string, owner string, repo string, hookID models.ProviderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpDeleteRepoHook, owner+"/"+repo); err != nil {
		return err
	}
	if _, err := s.authenticate(token); err != nil {
		return err
	}
	fakeRepo, err := s.findRepo(owner, repo)
	if err != nil {
		return err
	}
	kept := fakeRepo.hooks[:0]
	for _, hook := range fakeRepo.hooks {
		if hook.ID != hookID {
			kept = append(kept, hook)
		}
	}
	fakeRepo.hooks = kept
	s.Debugf("Deleted hook %d on %s/%s", hookID, owner, repo)
	return nil
}

func (s *FakeProvider) toProviderRepo(repo *fakeRepo, viewerIsAdmin bool) *models.ProviderRepo {
	return &models.ProviderRepo{
		ID:            repo.id,
		Name:          repo.name,
		OwnerLogin:    repo.ownerLogin,
		URL:           fmt.Sprintf("https://fake-scm.example.com/%s/%s", repo.ownerLogin, repo.name),
		Description:   repo.description,
		Fork:          repo.fork,
		Private:       repo.private,
		ViewerIsAdmin: viewerIsAdmin,
	}
}

func sortRepos(repos []*models.ProviderRepo) {
	sort.Slice(repos, func(i, j int) bool { return repos[i].ID < repos[j].ID })
}
