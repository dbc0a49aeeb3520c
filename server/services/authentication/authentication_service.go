package authentication

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/services"
	"github.com/vmware-archive/salt-ci/server/services/scm"
)

type AuthenticationService struct {
	provider       scm.Provider
	accountService services.AccountService
	logger.Log
}

func NewAuthenticationService(
	provider scm.Provider,
	accountService services.AccountService,
	logFactory logger.LogFactory,
) *AuthenticationService {
	return &AuthenticationService{
		provider:       provider,
		accountService: accountService,
		Log:            logFactory("AuthenticationService"),
	}
}

// NewOAuthState returns a fresh random state value to bind an OAuth redirect to the session that started it.
func (s *AuthenticationService) NewOAuthState() string {
	return uuid.NewString()
}

// AuthCodeURL returns the provider URL to redirect the user to in order to sign in.
func (s *AuthenticationService) AuthCodeURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// AuthenticateWithCode exchanges an OAuth authorization code for an access token, reads the
// authenticated user from the provider and signs the user in, creating their account if required.
func (s *AuthenticationService) AuthenticateWithCode(ctx context.Context, code string) (*models.Account, error) {
	if code == "" {
		return nil, gerror.NewErrProviderAuthFailed("Missing authorization code")
	}
	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("error exchanging authorization code: %w", err)
	}
	user, err := s.provider.GetAuthenticatedUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error reading authenticated user: %w", err)
	}
	account, err := s.accountService.SignIn(ctx, nil, token, user)
	if err != nil {
		return nil, err
	}
	s.Infof("Authenticated account %s via %s", account.ID, s.provider.Name())
	return account, nil
}
