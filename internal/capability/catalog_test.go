package capability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteSourceCapabilities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/capabilities":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{
					"name": "job_searcher",
					"description": "search jobs",
					"parameters": {
						"job_titles": {"type": "array", "description": "titles", "required": true}
					}
				},
				{
					"name": "resume_parser",
					"description": "parse resumes",
					"parameters": {
						"resume": {"type": "string", "description": "ref", "required": true}
					}
				}
			]`))
		case r.Method == http.MethodPost && r.URL.Path == "/capabilities/resume_parser/invoke":
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"resume": "cv.pdf"}`, string(body))
			_ = json.NewEncoder(w).Encode(map[string]string{"output": `{"potential_job_titles": ["Go Developer"]}`})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	source := NewRemoteSource(srv.URL, srv.Client())
	registry := NewRegistry(source)

	entries, err := registry.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// 快照按名称排序
	assert.Equal(t, "job_searcher", entries[0].Name)
	assert.Equal(t, "resume_parser", entries[1].Name)
	assert.True(t, entries[1].Params["resume"].Required)

	out, err := registry.Invoke(context.Background(), "resume_parser", `{"resume": "cv.pdf"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"potential_job_titles": ["Go Developer"]}`, out)
}

func TestRemoteSourceCatalogUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	registry := NewRegistry(NewRemoteSource(srv.URL, srv.Client()))

	_, err := registry.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRemoteToolInvokeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/capabilities" {
			_, _ = w.Write([]byte(`[{"name": "echo", "description": "", "parameters": {}}]`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	registry := NewRegistry(NewRemoteSource(srv.URL, srv.Client()))

	_, err := registry.Invoke(context.Background(), "echo", `{}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
