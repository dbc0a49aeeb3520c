package documents

import (
	"database/sql"
	"errors"

	"github.com/vmware-archive/salt-ci/common/gerror"
)

// ErrorDocument is a standard error representation returned by the API
type ErrorDocument struct {
	Code           gerror.Code                      `json:"code"`
	HTTPStatusCode int                              `json:"http_status_code"`
	Message        string                           `json:"message"`
	Details        map[gerror.DetailKey]interface{} `json:"details"`
}

// MakeErrorDocument sanitizes err for public display. The first gerror.Error in the chain is
// used if it is meant for external audiences, otherwise the document describes an internal error.
// Only external details are included.
func MakeErrorDocument(err error) *ErrorDocument {
	if errors.Is(err, sql.ErrNoRows) {
		err = gerror.NewErrNotFound("Resource not found").Wrap(err)
	}
	var gErr gerror.Error
	if !errors.As(err, &gErr) || gErr.Audience() != gerror.AudienceExternal {
		gErr = gerror.NewErrInternal()
	}
	doc := &ErrorDocument{
		Code:           gErr.Code(),
		HTTPStatusCode: gErr.HTTPStatusCode(),
		Message:        gErr.Message(),
		Details:        make(map[gerror.DetailKey]interface{}),
	}
	for key, detail := range gErr.Details() {
		if detail.Audience() == gerror.AudienceExternal {
			doc.Details[key] = detail.Value()
		}
	}
	return doc
}
