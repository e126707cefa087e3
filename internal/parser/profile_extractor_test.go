package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/agent"
	"resume-match-go/internal/types"
)

func TestExtractProfile(t *testing.T) {
	mock := agent.NewMockChatModel(agent.MockResponse{
		Content: "```json\n" + `{
			"potential_job_titles": ["Go Developer", "Backend Engineer"],
			"seniority": "mid-level",
			"skills": ["Go", "MySQL"],
			"based_in": "Berlin",
			"work_location": "remote"
		}` + "\n```",
	})
	extractor := NewLLMProfileExtractor(mock)

	profile, err := extractor.ExtractProfile(context.Background(), "John Doe, Go developer in Berlin")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go Developer", "Backend Engineer"}, profile.JobTitles)
	assert.Equal(t, types.SeniorityMid, profile.Seniority)
	assert.Equal(t, "Berlin", profile.BasedIn)
	assert.Equal(t, "remote", profile.WorkLocation)
}

func TestExtractProfileRejectsMissingTitles(t *testing.T) {
	mock := agent.NewMockChatModel(agent.MockResponse{
		Content: `{"potential_job_titles": [], "seniority": "junior", "skills": []}`,
	})
	extractor := NewLLMProfileExtractor(mock)

	_, err := extractor.ExtractProfile(context.Background(), "some resume")
	assert.Error(t, err)
}

func TestExtractProfileRejectsNonJSONResponse(t *testing.T) {
	mock := agent.NewMockChatModel(agent.MockResponse{Content: "I cannot parse this resume."})
	extractor := NewLLMProfileExtractor(mock)

	_, err := extractor.ExtractProfile(context.Background(), "some resume")
	assert.Error(t, err)
}
