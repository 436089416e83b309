package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	res   *CompletionResult
	err   error
	calls int
	last  *CompletionRequest
}

func (s *stubCompleter) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

func newTestManager(extractorOutput string) (*Manager, *stubCompleter) {
	extractor := &stubCompleter{res: &CompletionResult{
		Text:  extractorOutput,
		Usage: NewUsage(100, 50),
	}}
	m := NewManager(nil, nil, extractor, nil, ManagerConfig{MaxInputChars: 1000})
	return m, extractor
}

func TestExtractRecordParsesFencedJSON(t *testing.T) {
	output := "```json\n" + `{
		"patient": {"name": "John Doe", "age": 58, "sex": "male"},
		"conditions": [{"name": "hypertension", "onset": "2 years ago", "status": "active"}],
		"medications": [{"name": "lisinopril", "dose": "10 mg", "route": "oral", "frequency": "daily"}],
		"vitals": [{"type": "blood pressure", "value": "150/95", "unit": "mmHg", "taken_at": null}],
		"labs": [],
		"plan": [{"description": "increase lisinopril to 20 mg"}]
	}` + "\n```"
	m, _ := newTestManager(output)

	record, usage, err := m.ExtractRecord(context.Background(), "note text")
	require.NoError(t, err)
	require.NotNil(t, record.Patient)
	require.Equal(t, "John Doe", *record.Patient.Name)
	require.Equal(t, 58, *record.Patient.Age)
	require.Len(t, record.Conditions, 1)
	require.Equal(t, "hypertension", record.Conditions[0].Name)
	require.Len(t, record.Medications, 1)
	require.Len(t, record.Vitals, 1)
	require.Empty(t, record.Labs)
	require.Equal(t, int64(150), usage.TotalTokens)
}

func TestExtractRecordRejectsNonJSON(t *testing.T) {
	m, _ := newTestManager("The patient has hypertension and takes lisinopril.")
	_, usage, err := m.ExtractRecord(context.Background(), "note")
	require.ErrorIs(t, err, ErrBadOutput)
	// Tokens were spent even though the output was unusable.
	require.Equal(t, int64(150), usage.TotalTokens)
}

func TestExtractRecordRejectsUnknownFields(t *testing.T) {
	m, _ := newTestManager(`{"patient": null, "conditions": [], "medications": [], "vitals": [], "labs": [], "plan": [], "confidence": 0.9}`)
	_, _, err := m.ExtractRecord(context.Background(), "note")
	require.ErrorIs(t, err, ErrBadOutput)
}

func TestExtractRecordRejectsMissingRequiredFields(t *testing.T) {
	cases := map[string]string{
		"condition without name": `{"conditions": [{"name": "  "}], "medications": [], "vitals": [], "labs": [], "plan": []}`,
		"vital without value":    `{"conditions": [], "medications": [], "vitals": [{"type": "heart rate", "value": ""}], "labs": [], "plan": []}`,
		"plan without text":      `{"conditions": [], "medications": [], "vitals": [], "labs": [], "plan": [{"description": ""}]}`,
	}
	for name, output := range cases {
		t.Run(name, func(t *testing.T) {
			m, _ := newTestManager(output)
			_, _, err := m.ExtractRecord(context.Background(), "note")
			require.ErrorIs(t, err, ErrBadOutput)
		})
	}
}

func TestExtractRecordPropagatesProviderError(t *testing.T) {
	extractor := &stubCompleter{err: ErrUnavailable}
	m := NewManager(nil, nil, extractor, nil, ManagerConfig{})
	_, _, err := m.ExtractRecord(context.Background(), "note")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestSummarizeRejectsEmptyResponse(t *testing.T) {
	summarizer := &stubCompleter{res: &CompletionResult{Text: "   \n", Usage: NewUsage(10, 0)}}
	m := NewManager(summarizer, nil, nil, nil, ManagerConfig{})
	_, _, err := m.Summarize(context.Background(), "note")
	require.ErrorIs(t, err, ErrBadOutput)
}

func TestAnswerPromptIncludesContextAndNote(t *testing.T) {
	answerer := &stubCompleter{res: &CompletionResult{Text: "answer", Usage: NewUsage(5, 5)}}
	m := NewManager(nil, answerer, nil, nil, ManagerConfig{})

	_, _, err := m.Answer(context.Background(), "What dose?", "BP 150/95", []ContextDocument{
		{ID: "doc-1", Title: "HTN guideline", Content: "titrate to effect"},
	})
	require.NoError(t, err)
	require.Contains(t, answerer.last.User, "doc-1")
	require.Contains(t, answerer.last.User, "titrate to effect")
	require.Contains(t, answerer.last.User, "BP 150/95")
	require.Contains(t, answerer.last.User, "Question: What dose?")
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                      `{"a":1}`,
		"```json\n{\"a\":1}\n```":        `{"a":1}`,
		"```\n{\"a\":1}\n```":            `{"a":1}`,
		"  ```json\n{\"a\":1}\n```  \n ": `{"a":1}`,
	}
	for input, want := range cases {
		require.Equal(t, want, stripCodeFence(input))
	}
}

func TestUsageTotalAlwaysSumsParts(t *testing.T) {
	u := NewUsage(120, 45)
	require.Equal(t, int64(165), u.TotalTokens)

	sum := NewUsage(10, 5).Add(NewUsage(20, 15)).Add(Usage{})
	require.Equal(t, int64(30), sum.InputTokens)
	require.Equal(t, int64(20), sum.OutputTokens)
	require.Equal(t, sum.InputTokens+sum.OutputTokens, sum.TotalTokens)
}
