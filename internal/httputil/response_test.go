package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	t.Run("encodes the payload with status and content type", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		WriteJSONOK(rec, map[string]int{"frames": 12})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]int
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 12, body["frames"])
	})

	t.Run("error helpers carry the message", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		NotFound(rec, "no result store configured")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "no result store configured")

		rec = httptest.NewRecorder()
		MethodNotAllowed(rec)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

		rec = httptest.NewRecorder()
		InternalServerError(rec, "render failed")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "render failed")
	})
}
