package documents

import "github.com/vmware-archive/salt-ci/common/models"

// SyncResponse reports what a sync changed. A sync that stopped early carries a failure, with the
// counts covering only the work committed before it stopped.
type SyncResponse struct {
	*models.SyncResult
	Partial bool `json:"partial"`
}

func MakeSyncResponse(result *models.SyncResult) *SyncResponse {
	return &SyncResponse{SyncResult: result, Partial: result.IsPartial()}
}
