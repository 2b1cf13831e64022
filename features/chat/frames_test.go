package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Zero-valued protocol fields must still reach the client: ok:false and
// count:0 are meaningful, not absent.
func TestFramesKeepZeroValues(t *testing.T) {
	t.Run("auth_result false", func(t *testing.T) {
		raw, err := json.Marshal(authResultFrame(false))
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"auth_result","ok":false}`, string(raw))
	})

	t.Run("retrieval_info zero count", func(t *testing.T) {
		raw, err := json.Marshal(retrievalInfoFrame(0, nil))
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"retrieval_info","count":0}`, string(raw))
	})

	t.Run("upload_result duplicate has zero chunk_count", func(t *testing.T) {
		raw, err := json.Marshal(uploadResultFrame("duplicate", 0, ""))
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"upload_result","status":"duplicate","chunk_count":0}`, string(raw))
	})
}
