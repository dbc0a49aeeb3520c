package models

import (
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

const (
	AccountResourceKind ResourceKind = "account"

	DefaultAccountLocale   = "en"
	DefaultAccountTimezone = "UTC"
)

type AccountID struct {
	ResourceID
}

func NewAccountID() AccountID {
	return AccountID{ResourceID: NewResourceID(AccountResourceKind)}
}

func AccountIDFromResourceID(id ResourceID) AccountID {
	return AccountID{ResourceID: id}
}

type AccountMetadata struct {
	ID AccountID `json:"id" goqu:"skipupdate" db:"account_id"`
	// CreatedAt is the time the account first signed in.
	CreatedAt Time `json:"registered_at" goqu:"skipupdate" db:"account_created_at"`
	UpdatedAt Time `json:"updated_at" db:"account_updated_at"`
	ETag      ETag `json:"etag" db:"account_etag" hash:"ignore"`
}

// Account is a user identity at the provider, created on first sign-in and refreshed on every
// subsequent sign-in.
type Account struct {
	AccountMetadata
	// ProviderID uniquely identifies the account at the provider; login names can change.
	ProviderID  ProviderID `json:"provider_id" db:"account_provider_id"`
	Login       string     `json:"login" db:"account_login"`
	DisplayName string     `json:"display_name" db:"account_display_name"`
	// AccessToken is the provider OAuth token. It must never be logged or returned to clients.
	AccessToken string `json:"-" db:"account_access_token"`
	AvatarURL   string `json:"avatar_url" db:"account_avatar_url"`
	LastLoginAt *Time  `json:"last_login_at,omitempty" db:"account_last_login_at"`
	Locale      string `json:"locale" db:"account_locale"`
	Timezone    string `json:"timezone" db:"account_timezone"`
	// HooksToken is an opaque identifier that can be used in place of the account's login
	// when the provider delivers hook payloads.
	HooksToken string `json:"hooks_token" db:"account_hooks_token"`
	// SyncLeaseExpiresAt is only written by the sync lease queries.
	SyncLeaseExpiresAt *Time `json:"-" goqu:"skipupdate" db:"account_sync_lease_expires_at" hash:"ignore"`
}

func NewAccount(now Time, providerID ProviderID, login string, displayName string, avatarURL string, accessToken string) *Account {
	return &Account{
		AccountMetadata: AccountMetadata{
			ID:        NewAccountID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ProviderID:  providerID,
		Login:       login,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		AccessToken: accessToken,
		LastLoginAt: &now,
		Locale:      DefaultAccountLocale,
		Timezone:    DefaultAccountTimezone,
		HooksToken:  NewHooksToken(),
	}
}

// NewHooksToken returns a random 32 character hex token.
func NewHooksToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func (m *Account) GetKind() ResourceKind {
	return AccountResourceKind
}

func (m *Account) GetID() ResourceID {
	return m.ID.ResourceID
}

func (m *Account) GetCreatedAt() Time {
	return m.CreatedAt
}

func (m *Account) GetUpdatedAt() Time {
	return m.UpdatedAt
}

func (m *Account) SetUpdatedAt(t Time) {
	m.UpdatedAt = t
}

func (m *Account) GetETag() ETag {
	return m.ETag
}

func (m *Account) SetETag(eTag ETag) {
	m.ETag = eTag
}

func (m *Account) Validate() error {
	var result *multierror.Error
	if !m.ID.Valid() {
		result = multierror.Append(result, errors.New("error id must be set"))
	}
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	if m.UpdatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error updated at must be set"))
	}
	if !m.ProviderID.Valid() {
		result = multierror.Append(result, errors.New("error provider id must be set"))
	}
	if m.Login == "" {
		result = multierror.Append(result, errors.New("error login must be set"))
	}
	if m.Locale == "" {
		result = multierror.Append(result, errors.New("error locale must be set"))
	}
	if m.Timezone == "" {
		result = multierror.Append(result, errors.New("error timezone must be set"))
	}
	if len(m.HooksToken) != 32 {
		result = multierror.Append(result, errors.New("error hooks token must be 32 characters"))
	}
	return result.ErrorOrNil()
}
