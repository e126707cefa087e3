package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/agent"
	"resume-match-go/internal/types"
)

func evalPosting() types.JobPosting {
	return types.JobPosting{
		JobTitle:        "Go Developer",
		Company:         "Acme",
		JobPostURL:      "https://jobs.acme/1",
		Remote:          true,
		RequiredSkills:  []string{"Go"},
		ExperienceLevel: types.SeniorityMid,
	}
}

func TestEvaluateMatch(t *testing.T) {
	mock := agent.NewMockChatModel(agent.MockResponse{
		Content: `{"match_score": 85, "reasons": "strong overlap on Go and seniority"}`,
	})
	evaluator := NewLLMMatchEvaluator(mock)

	result, err := evaluator.EvaluateMatch(context.Background(), "Potential job titles: Go Developer", evalPosting())
	require.NoError(t, err)

	assert.Equal(t, 85, result.MatchScore)
	assert.Equal(t, "strong overlap on Go and seniority", result.Reasons)
	assert.Equal(t, "https://jobs.acme/1", result.PostingKey)
	assert.Equal(t, "Acme", result.Company)

	// 画像和职位卡片都进入了提示消息
	require.Len(t, mock.ReceivedMessages, 1)
	messages := mock.ReceivedMessages[0]
	require.Len(t, messages, 3)
	assert.Contains(t, messages[1].Content, "Here is my profile:")
	assert.Contains(t, messages[2].Content, "JSON card of a job")
	assert.Contains(t, messages[2].Content, "Acme")
}

func TestEvaluateMatchClampsScore(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    int
	}{
		{"超过上限", `{"match_score": 140, "reasons": "r"}`, 100},
		{"低于下限", `{"match_score": -5, "reasons": "r"}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := agent.NewMockChatModel(agent.MockResponse{Content: tc.content})
			evaluator := NewLLMMatchEvaluator(mock)

			result, err := evaluator.EvaluateMatch(context.Background(), "p", evalPosting())
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.MatchScore)
		})
	}
}

func TestEvaluateMatchRejectsEmptyResponse(t *testing.T) {
	mock := agent.NewMockChatModel(agent.MockResponse{Content: ""})
	evaluator := NewLLMMatchEvaluator(mock)

	_, err := evaluator.EvaluateMatch(context.Background(), "p", evalPosting())
	assert.Error(t, err)
}
