package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateProfileFormatText(t *testing.T) {
	p := &CandidateProfile{
		JobTitles: []string{"Go Developer", "Backend Engineer"},
		Seniority: SeniorityMid,
		Skills:    []string{"Go", "MySQL"},
		BasedIn:   "Berlin",
	}

	text := p.FormatText()
	assert.Contains(t, text, "Potential job titles: Go Developer, Backend Engineer")
	assert.Contains(t, text, "Seniority: mid-level")
	assert.Contains(t, text, "Skills: Go, MySQL")
	assert.Contains(t, text, "Based in: Berlin")
	// 缺失的可选字段用占位文案标注
	assert.Contains(t, text, "Work location: "+NotAvailableMarker)
}

func TestCandidateProfileFormatTextEmpty(t *testing.T) {
	p := &CandidateProfile{}
	text := p.FormatText()
	assert.Contains(t, text, "Potential job titles: "+NotAvailableMarker)
	assert.Contains(t, text, "Skills: "+NotAvailableMarker)
}

func TestJobPostingKey(t *testing.T) {
	withURL := &JobPosting{JobTitle: "Go Developer", Company: "Acme", JobPostURL: "https://jobs.acme/1"}
	assert.Equal(t, "https://jobs.acme/1", withURL.Key())

	withoutURL := &JobPosting{JobTitle: "Go Developer", Company: "Acme"}
	assert.Equal(t, "Go Developer@Acme", withoutURL.Key())
}
