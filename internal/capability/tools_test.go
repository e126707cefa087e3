package capability

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/types"
)

type stubFetcher struct {
	data []byte
	err  error
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	return f.data, f.err
}

type stubProfileExtractor struct {
	profile *types.CandidateProfile
	err     error
	gotText string
}

func (e *stubProfileExtractor) ExtractProfile(_ context.Context, text string) (*types.CandidateProfile, error) {
	e.gotText = text
	return e.profile, e.err
}

func TestResumeParserToolPlainText(t *testing.T) {
	extractor := &stubProfileExtractor{
		profile: &types.CandidateProfile{
			JobTitles: []string{"Backend Engineer"},
			Seniority: types.SeniorityMid,
			Skills:    []string{"Go", "MySQL"},
		},
	}
	entry := NewResumeParserEntry(&stubFetcher{data: []byte("John Doe\nGo developer")}, nil, extractor)

	out, err := entry.Tool.InvokableRun(context.Background(), `{"resume": "cv.txt"}`)
	require.NoError(t, err)
	assert.Equal(t, "John Doe\nGo developer", extractor.gotText)

	var profile types.CandidateProfile
	require.NoError(t, json.Unmarshal([]byte(out), &profile))
	assert.Equal(t, []string{"Backend Engineer"}, profile.JobTitles)
	assert.Equal(t, types.SeniorityMid, profile.Seniority)
}

func TestResumeParserToolFetchFailure(t *testing.T) {
	entry := NewResumeParserEntry(&stubFetcher{err: errors.New("not found")}, nil, &stubProfileExtractor{})

	_, err := entry.Tool.InvokableRun(context.Background(), `{"resume": "missing.pdf"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestResumeParserToolEmptyArgument(t *testing.T) {
	entry := NewResumeParserEntry(&stubFetcher{}, nil, &stubProfileExtractor{})

	_, err := entry.Tool.InvokableRun(context.Background(), `{"resume": "  "}`)
	require.Error(t, err)
}

type stubSearcher struct {
	postings  []types.JobPosting
	err       error
	gotTitles []string
}

func (s *stubSearcher) SearchJobs(_ context.Context, titles []string) ([]types.JobPosting, error) {
	s.gotTitles = titles
	return s.postings, s.err
}

func TestJobSearcherToolReturnsPostings(t *testing.T) {
	searcher := &stubSearcher{postings: []types.JobPosting{
		{JobTitle: "Go Developer", Company: "Acme", JobPostURL: "https://jobs.acme/1", Remote: true},
	}}
	entry := NewJobSearcherEntry(searcher)

	out, err := entry.Tool.InvokableRun(context.Background(), `{"job_titles": ["Go Developer", "Backend Engineer"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go Developer", "Backend Engineer"}, searcher.gotTitles)

	var postings []types.JobPosting
	require.NoError(t, json.Unmarshal([]byte(out), &postings))
	require.Len(t, postings, 1)
	assert.Equal(t, "Acme", postings[0].Company)
}

func TestJobSearcherToolEmptyResultIsNotAnError(t *testing.T) {
	entry := NewJobSearcherEntry(&stubSearcher{postings: nil})

	out, err := entry.Tool.InvokableRun(context.Background(), `{"job_titles": ["Underwater Welder"]}`)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestJobSearcherToolSearchFailure(t *testing.T) {
	entry := NewJobSearcherEntry(&stubSearcher{err: errors.New("search api down")})

	_, err := entry.Tool.InvokableRun(context.Background(), `{"job_titles": ["Go Developer"]}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

type stubEvaluator struct {
	result     *types.MatchResult
	err        error
	gotProfile string
	gotPosting types.JobPosting
}

func (e *stubEvaluator) EvaluateMatch(_ context.Context, profileText string, posting types.JobPosting) (*types.MatchResult, error) {
	e.gotProfile = profileText
	e.gotPosting = posting
	return e.result, e.err
}

func TestEvaluateMatchToolReturnsResult(t *testing.T) {
	evaluator := &stubEvaluator{result: &types.MatchResult{
		PostingKey: "https://jobs.acme/1",
		JobTitle:   "Go Developer",
		Company:    "Acme",
		JobPostURL: "https://jobs.acme/1",
		MatchScore: 82,
		Reasons:    "strong skill overlap",
	}}
	entry := NewEvaluateMatchEntry(evaluator)

	args := `{"profile": "Job titles: Go Developer", "job": {"job_title": "Go Developer", "company": "Acme", "job_post_url": "https://jobs.acme/1"}}`
	out, err := entry.Tool.InvokableRun(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "Acme", evaluator.gotPosting.Company)

	var result types.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 82, result.MatchScore)
	assert.Equal(t, "strong skill overlap", result.Reasons)
}

func TestEvaluateMatchToolEvaluatorFailure(t *testing.T) {
	entry := NewEvaluateMatchEntry(&stubEvaluator{err: errors.New("llm error")})

	args := `{"profile": "p", "job": {"job_title": "x"}}`
	_, err := entry.Tool.InvokableRun(context.Background(), args)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
