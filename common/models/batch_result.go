package models

// BatchFailure describes the item that stopped a batch.
type BatchFailure struct {
	// Scope names the item being processed when the batch stopped e.g. an organization login or repo id.
	Scope   string `json:"scope"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchResult reports how much of a batch was committed before it finished or stopped.
type BatchResult struct {
	Succeeded int           `json:"succeeded"`
	Failure   *BatchFailure `json:"failure,omitempty"`
}

func (r *BatchResult) IsPartial() bool {
	return r.Failure != nil
}

// SyncResult is the outcome of synchronizing one account with the provider.
type SyncResult struct {
	BatchResult
	OrganizationsCreated  int `json:"organizations_created"`
	OrganizationsUnlinked int `json:"organizations_unlinked"`
	ReposCreated          int `json:"repos_created"`
	ReposUpdated          int `json:"repos_updated"`
	ReposLinked           int `json:"repos_linked"`
	ReposUnlinked         int `json:"repos_unlinked"`
}

// HasChanges returns true if the sync changed any local rows.
func (r *SyncResult) HasChanges() bool {
	return r.OrganizationsCreated+r.OrganizationsUnlinked+r.ReposCreated+r.ReposUpdated+r.ReposLinked+r.ReposUnlinked > 0
}

// HookResult is the outcome of applying a hook selection for one kind.
type HookResult struct {
	BatchResult
	Kind     HookKind `json:"kind"`
	Enabled  []RepoID `json:"enabled"`
	Disabled []RepoID `json:"disabled"`
}
