package account

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

const maxLocaleLength = 16

type AccountService struct {
	db           *store.DB
	clock        clock.Clock
	accountStore store.AccountStore
	logger.Log
}

func NewAccountService(
	db *store.DB,
	clk clock.Clock,
	accountStore store.AccountStore,
	logFactory logger.LogFactory,
) *AccountService {
	return &AccountService{
		db:           db,
		clock:        clk,
		accountStore: accountStore,
		Log:          logFactory("AccountService"),
	}
}

// SignIn creates or refreshes the account for the authenticated provider user, storing the new
// access token and recording the sign-in time.
func (s *AccountService) SignIn(ctx context.Context, txOrNil *store.Tx, accessToken string, user *models.ProviderUser) (*models.Account, error) {
	if user == nil || !user.ID.Valid() || user.Login == "" {
		return nil, gerror.NewErrProviderAuthFailed("Provider did not return a valid user")
	}
	if accessToken == "" {
		return nil, gerror.NewErrProviderAuthFailed("Provider did not return an access token")
	}
	displayName := user.Name
	if displayName == "" {
		displayName = user.Login
	}
	account := models.NewAccount(models.NewTime(s.clock.Now()), user.ID, user.Login, displayName, user.AvatarURL, accessToken)
	created, _, err := s.accountStore.Upsert(ctx, txOrNil, account)
	if err != nil {
		return nil, fmt.Errorf("error upserting account for %q: %w", user.Login, err)
	}
	if created {
		s.Infof("Registered account %s for %q", account.ID, account.Login)
	} else {
		s.Debugf("Account %s signed in as %q", account.ID, account.Login)
	}
	return account, nil
}

func (s *AccountService) Read(ctx context.Context, txOrNil *store.Tx, id models.AccountID) (*models.Account, error) {
	return s.accountStore.Read(ctx, txOrNil, id)
}

func (s *AccountService) ReadByLogin(ctx context.Context, txOrNil *store.Tx, login string) (*models.Account, error) {
	return s.accountStore.ReadByLogin(ctx, txOrNil, login)
}

// UpdatePreferences sets the account's locale and timezone. Empty values are left unchanged.
func (s *AccountService) UpdatePreferences(ctx context.Context, txOrNil *store.Tx, id models.AccountID, locale string, timezone string) (*models.Account, error) {
	if len(locale) > maxLocaleLength {
		return nil, gerror.NewErrValidationFailed("Locale is too long")
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return nil, gerror.NewErrValidationFailed(fmt.Sprintf("Unknown timezone %q", timezone))
		}
	}
	var account *models.Account
	err := s.db.WithTx(ctx, txOrNil, func(tx *store.Tx) error {
		var err error
		account, err = s.accountStore.Read(ctx, tx, id)
		if err != nil {
			return err
		}
		if locale != "" {
			account.Locale = locale
		}
		if timezone != "" {
			account.Timezone = timezone
		}
		account.UpdatedAt = models.NewTime(s.clock.Now())
		return s.accountStore.Update(ctx, tx, account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) RegenerateHooksToken(ctx context.Context, txOrNil *store.Tx, id models.AccountID) (*models.Account, error) {
	var account *models.Account
	err := s.db.WithTx(ctx, txOrNil, func(tx *store.Tx) error {
		var err error
		account, err = s.accountStore.Read(ctx, tx, id)
		if err != nil {
			return err
		}
		account.HooksToken = models.NewHooksToken()
		account.UpdatedAt = models.NewTime(s.clock.Now())
		return s.accountStore.Update(ctx, tx, account)
	})
	if err != nil {
		return nil, err
	}
	s.Infof("Regenerated hooks token for account %s", id)
	return account, nil
}
