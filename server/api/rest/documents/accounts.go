package documents

import (
	"net/http"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/api/rest/routes"
)

// Account is the signed in account. The provider access token is never included.
type Account struct {
	resourceLink

	ID        models.AccountID `json:"id"`
	CreatedAt models.Time      `json:"registered_at"`
	UpdatedAt models.Time      `json:"updated_at"`
	ETag      models.ETag      `json:"etag" hash:"ignore"`

	Login       string       `json:"login"`
	DisplayName string       `json:"display_name"`
	AvatarURL   string       `json:"avatar_url"`
	LastLoginAt *models.Time `json:"last_login_at,omitempty"`
	Locale      string       `json:"locale"`
	Timezone    string       `json:"timezone"`
	HooksToken  string       `json:"hooks_token"`

	ReposURL      string `json:"repos_url"`
	SyncURL       string `json:"sync_url"`
	HooksTokenURL string `json:"hooks_token_url"`
}

func MakeAccount(rctx routes.RequestContext, account *models.Account) *Account {
	return &Account{
		resourceLink: resourceLink{
			URL: routes.MakeAccountLink(rctx),
		},

		ID:        account.ID,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
		ETag:      account.ETag,

		Login:       account.Login,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
		LastLoginAt: account.LastLoginAt,
		Locale:      account.Locale,
		Timezone:    account.Timezone,
		HooksToken:  account.HooksToken,

		ReposURL:      routes.MakeReposLink(rctx),
		SyncURL:       routes.MakeSyncLink(rctx),
		HooksTokenURL: routes.MakeHooksTokenLink(rctx),
	}
}

func (d *Account) GetID() models.ResourceID {
	return d.ID.ResourceID
}

func (d *Account) GetKind() models.ResourceKind {
	return models.AccountResourceKind
}

func (d *Account) GetCreatedAt() models.Time {
	return d.CreatedAt
}

type PatchAccountRequest struct {
	Locale   *string `json:"locale"`
	Timezone *string `json:"timezone"`
}

func (d *PatchAccountRequest) Bind(r *http.Request) error {
	if d.Locale == nil && d.Timezone == nil {
		return gerror.NewErrValidationFailed("One of locale or timezone must be specified")
	}
	return nil
}
