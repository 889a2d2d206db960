package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gograph/gograph/log"
)

func TestRegisterHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServer("test", log.New("test"))

	var params map[string]string
	srv.RegisterHandler("/graphs/:owner/:name", "GET", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ = r.Context().Value("params").(map[string]string)
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, httptest.NewRequest("GET", "/graphs/alice/network", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, map[string]string{"owner": "alice", "name": "network"}, params)
}

func TestUnknownRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServer("test", log.New("test"))

	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
