package models

import "strconv"

// ProviderID is the numeric identifier the source-hosting provider assigns to a user,
// organization, repository or hook.
type ProviderID int64

func (p ProviderID) String() string {
	return strconv.FormatInt(int64(p), 10)
}

func (p ProviderID) Valid() bool {
	return p > 0
}
