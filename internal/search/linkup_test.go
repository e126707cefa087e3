package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchJobs(t *testing.T) {
	var gotRequest searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		_, _ = w.Write([]byte(`{"jobs": [
			{"job_title": "Go Developer", "company": "Acme", "job_post_url": "https://jobs.acme/1",
			 "remote": true, "required_skills": ["Go"], "experience_level": "mid-level"},
			{"job_title": "Backend Engineer", "company": "Globex", "job_post_url": "https://jobs.globex/2",
			 "remote": false, "required_skills": ["Go", "Kafka"], "experience_level": "senior"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		TopN:        5,
		RecencyDays: 7,
		Regions:     []string{"EU"},
	}, srv.Client())

	jobs, err := client.SearchJobs(context.Background(), []string{"Go Developer", "Backend Engineer"})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Acme", jobs[0].Company)
	assert.True(t, jobs[0].Remote)

	// 请求携带结构化输出和时间窗口
	assert.Equal(t, "structured", gotRequest.OutputType)
	assert.Equal(t, "standard", gotRequest.Depth)
	assert.NotEmpty(t, gotRequest.StructuredOutputSchema)
	expectedFrom := time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	assert.Equal(t, expectedFrom, gotRequest.FromDate)
	assert.Contains(t, gotRequest.Query, "Go Developer, Backend Engineer")
	assert.Contains(t, gotRequest.Query, "EU")
}

func TestSearchJobsCapsTopN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jobs": [
			{"job_title": "A", "company": "A", "job_post_url": "u1", "remote": true, "required_skills": [], "experience_level": "junior"},
			{"job_title": "B", "company": "B", "job_post_url": "u2", "remote": true, "required_skills": [], "experience_level": "junior"},
			{"job_title": "C", "company": "C", "job_post_url": "u3", "remote": true, "required_skills": [], "experience_level": "junior"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, TopN: 2}, srv.Client())

	jobs, err := client.SearchJobs(context.Background(), []string{"Engineer"})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestSearchJobsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jobs": []}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())

	jobs, err := client.SearchJobs(context.Background(), []string{"Underwater Welder"})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSearchJobsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())

	_, err := client.SearchJobs(context.Background(), []string{"Engineer"})
	assert.Error(t, err)
}

func TestSearchJobsRequiresTitles(t *testing.T) {
	client := NewClient(Config{APIKey: "k"}, nil)
	_, err := client.SearchJobs(context.Background(), nil)
	assert.Error(t, err)
}
