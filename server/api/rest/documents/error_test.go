package documents

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
)

func TestMakeErrorDocument(t *testing.T) {
	t.Run("External", func(t *testing.T) {
		err := gerror.NewErrValidationFailed("Invalid timezone").
			EDetail("timezone", "Mars/Olympus_Mons").
			IDetail("query", "UPDATE accounts ...")
		doc := MakeErrorDocument(fmt.Errorf("error updating preferences: %w", err))
		require.Equal(t, gerror.ErrCodeValidationFailed, doc.Code)
		require.Equal(t, http.StatusBadRequest, doc.HTTPStatusCode)
		require.Equal(t, "Invalid timezone", doc.Message)
		require.Equal(t, map[gerror.DetailKey]interface{}{"timezone": "Mars/Olympus_Mons"}, doc.Details)
	})

	t.Run("Internal", func(t *testing.T) {
		doc := MakeErrorDocument(gerror.NewErrConfiguration("session key missing"))
		require.Equal(t, gerror.ErrCodeInternal, doc.Code)
		require.NotContains(t, doc.Message, "session key")

		doc = MakeErrorDocument(fmt.Errorf("plain error"))
		require.Equal(t, gerror.ErrCodeInternal, doc.Code)
		require.Equal(t, http.StatusInternalServerError, doc.HTTPStatusCode)
	})

	t.Run("NoRows", func(t *testing.T) {
		doc := MakeErrorDocument(fmt.Errorf("error reading repo: %w", sql.ErrNoRows))
		require.Equal(t, gerror.ErrCodeNotFound, doc.Code)
		require.Equal(t, http.StatusNotFound, doc.HTTPStatusCode)
	})
}
