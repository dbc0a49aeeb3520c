package services

import (
	"errors"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/models"
)

// NewBatchFailure describes the error that stopped a batch while processing scope. Messages of
// internal errors are not exposed.
func NewBatchFailure(scope string, err error) *models.BatchFailure {
	failure := &models.BatchFailure{
		Scope:   scope,
		Code:    string(gerror.ErrCodeInternal),
		Message: gerror.NewErrInternal().Message(),
	}
	var gErr gerror.Error
	if errors.As(err, &gErr) {
		failure.Code = string(gErr.Code())
		if gErr.Audience() == gerror.AudienceExternal {
			failure.Message = gErr.Message()
		}
	}
	return failure
}
