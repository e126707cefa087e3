package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceRender(t *testing.T) {
	trace := NewTrace()
	trace.AppendCall("resume_parser", `{"resume": "cv.pdf"}`)
	trace.AppendResult("resume_parser", `{"potential_job_titles": ["Go Developer"]}`)

	rendered := trace.Render()
	assert.Equal(t,
		"Calling tool **resume_parser** with arguments:\n```json\n{\n    \"resume\": \"cv.pdf\"\n}\n```\n\n"+
			"Results from tool **resume_parser**:\n{\"potential_job_titles\": [\"Go Developer\"]}\n\n",
		rendered)
}

func TestTraceRenderFailureAndCancelled(t *testing.T) {
	trace := NewTrace()
	trace.AppendCall("evaluate_job_match", `{"profile": "p"}`)
	trace.AppendFailure("evaluate_job_match", "timeout")
	trace.AppendCall("evaluate_job_match", `{"profile": "p"}`)
	trace.AppendCancelled("evaluate_job_match")

	rendered := trace.Render()
	assert.Contains(t, rendered, "[failed] timeout")
	assert.Contains(t, rendered, "[cancelled] cancelled")
}

func TestTraceRenderKeepsInvalidArgumentsVerbatim(t *testing.T) {
	trace := NewTrace()
	trace.AppendCall("job_searcher", `not json`)

	assert.Contains(t, trace.Render(), "not json")
}

func TestTraceRecordsAreCopied(t *testing.T) {
	trace := NewTrace()
	trace.AppendCall("resume_parser", `{}`)

	records := trace.Records()
	records[0].Capability = "mutated"

	assert.Equal(t, "resume_parser", trace.Records()[0].Capability)
}

func TestTraceMarshalJSON(t *testing.T) {
	trace := NewTrace()
	trace.AppendCall("job_searcher", `{"job_titles": ["Go Developer"]}`)
	trace.AppendResult("job_searcher", `[]`)

	data, err := trace.MarshalJSON()
	require.NoError(t, err)

	var records []ToolInvocationRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, RecordKindCall, records[0].Kind)
	assert.Equal(t, RecordKindResult, records[1].Kind)
	assert.NotEmpty(t, records[0].ID)
}
