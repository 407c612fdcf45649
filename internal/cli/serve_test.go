package cli

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestDocsRouter(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/index.html", []byte("<h1>Index</h1>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/out/Game/BP_Door.html", []byte("door"), 0o644))

	srv := httptest.NewServer(newDocsRouter(fs, "/out", log.New(io.Discard)))
	defer srv.Close()

	get := func(path string) (int, string, http.Header) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body), resp.Header
	}

	status, body, header := get("/")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "Index")
	require.Contains(t, header.Get("Server"), "bpdoc")

	status, body, _ = get("/Game/BP_Door.html")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "door", body)

	status, _, _ = get("/healthz")
	require.Equal(t, http.StatusOK, status)

	status, _, _ = get("/missing.html")
	require.Equal(t, http.StatusNotFound, status)
}
