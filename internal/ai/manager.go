package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/opencarelabs/clinicore/internal/model"
)

type ManagerConfig struct {
	Timeout       int
	MaxInputChars int
}

// Manager binds the bound completers/embedder to the clinical prompts. It
// is the only place prompt text lives.
type Manager struct {
	summarizer ICompleter
	answerer   ICompleter
	extractor  ICompleter
	embedder   IEmbedder
	cfg        ManagerConfig
}

func NewManager(
	summarizer ICompleter,
	answerer ICompleter,
	extractor ICompleter,
	embedder IEmbedder,
	cfg ManagerConfig,
) *Manager {
	return &Manager{
		summarizer: summarizer,
		answerer:   answerer,
		extractor:  extractor,
		embedder:   embedder,
		cfg:        cfg,
	}
}

// ContextDocument is one retrieved reference document handed to the
// answering prompt.
type ContextDocument struct {
	ID      string
	Title   string
	Content string
}

const summarizeSystemPrompt = `You are a clinical documentation assistant.
Summarize the following medical note into 3-5 concise bullet points,
focusing on chief complaint, key history, exam findings, and plan.`

const answerSystemPrompt = `You are a clinical assistant.
Synthesize an answer by applying the principles in the Context Documents to the specific situation in the Clinical Note.
Combine information from both sources to provide a comprehensive answer.
If the answer is not contained in the context documents or the clinical note, say:
"I don't know based on the provided information."`

const extractSystemPrompt = `You are an assistant that extracts structured data from clinical notes.
You MUST respond with valid JSON ONLY, with this exact structure:

{
  "patient": {"name": string or null, "age": integer or null, "sex": string or null},
  "conditions": [ {"name": string, "onset": string or null, "status": string or null} ],
  "medications": [ {"name": string, "dose": string or null, "route": string or null, "frequency": string or null} ],
  "vitals": [ {"type": string, "value": string, "unit": string or null, "taken_at": string or null} ],
  "labs": [ {"name": string, "value": string or null, "unit": string or null, "reference_range": string or null, "taken_at": string or null} ],
  "plan": [ {"description": string} ]
}

Only use information present in the note. If some sections are not present,
return empty lists or nulls for those fields. Do NOT include any extra keys
or comments.`

func (m *Manager) Embed(ctx context.Context, text string, taskType string) (*EmbedResult, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.embedder.Embed(ctx, text, taskType)
}

func (m *Manager) Summarize(ctx context.Context, note string) (string, Usage, error) {
	if m.summarizer == nil {
		return "", Usage{}, fmt.Errorf("summarizer not configured")
	}
	return m.complete(ctx, m.summarizer, &CompletionRequest{
		System:      summarizeSystemPrompt,
		User:        "Medical note:\n" + note,
		Temperature: 0.2,
	})
}

func (m *Manager) Answer(ctx context.Context, question string, note string, contexts []ContextDocument) (string, Usage, error) {
	if m.answerer == nil {
		return "", Usage{}, fmt.Errorf("answerer not configured")
	}
	var sb strings.Builder
	sb.WriteString("Context Documents:\n")
	if len(contexts) == 0 {
		sb.WriteString("No background documents found.\n")
	}
	for _, doc := range contexts {
		fmt.Fprintf(&sb, "Document %s (%s):\n%s\n\n", doc.ID, doc.Title, doc.Content)
	}
	if note != "" {
		sb.WriteString("\nCurrent Clinical Note:\n")
		sb.WriteString(note)
		sb.WriteString("\n")
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return m.complete(ctx, m.answerer, &CompletionRequest{
		System:      answerSystemPrompt,
		User:        sb.String(),
		Temperature: 0.2,
	})
}

// ExtractRecord asks the model for a strict-JSON clinical record and
// validates the reply. Any shape deviation is ErrBadOutput; no coercion is
// attempted.
func (m *Manager) ExtractRecord(ctx context.Context, note string) (*model.ClinicalRecord, Usage, error) {
	if m.extractor == nil {
		return nil, Usage{}, fmt.Errorf("extractor not configured")
	}
	text, usage, err := m.complete(ctx, m.extractor, &CompletionRequest{
		System:      extractSystemPrompt,
		User:        "Clinical note:\n\n" + note + "\n\nExtract the structured data now.",
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return nil, usage, err
	}
	record, err := parseRecord(text)
	if err != nil {
		return nil, usage, err
	}
	return record, usage, nil
}

func (m *Manager) complete(ctx context.Context, c ICompleter, req *CompletionRequest) (string, Usage, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	res, err := c.Complete(ctx, req)
	if err != nil {
		return "", Usage{}, err
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", res.Usage, fmt.Errorf("%w: empty ai response", ErrBadOutput)
	}
	return text, res.Usage, nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
	}
	return ctx, func() {}
}

func (m *Manager) MaxInputChars() int {
	return m.cfg.MaxInputChars
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func parseRecord(output string) (*model.ClinicalRecord, error) {
	clean := stripCodeFence(output)
	decoder := json.NewDecoder(strings.NewReader(clean))
	decoder.DisallowUnknownFields()
	var record model.ClinicalRecord
	if err := decoder.Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: parse record: %v", ErrBadOutput, err)
	}
	if err := validateRecord(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

func validateRecord(record *model.ClinicalRecord) error {
	for i, cond := range record.Conditions {
		if strings.TrimSpace(cond.Name) == "" {
			return fmt.Errorf("%w: condition %d has no name", ErrBadOutput, i)
		}
	}
	for i, med := range record.Medications {
		if strings.TrimSpace(med.Name) == "" {
			return fmt.Errorf("%w: medication %d has no name", ErrBadOutput, i)
		}
	}
	for i, vital := range record.Vitals {
		if strings.TrimSpace(vital.Type) == "" || strings.TrimSpace(vital.Value) == "" {
			return fmt.Errorf("%w: vital %d missing type or value", ErrBadOutput, i)
		}
	}
	for i, lab := range record.Labs {
		if strings.TrimSpace(lab.Name) == "" {
			return fmt.Errorf("%w: lab %d has no name", ErrBadOutput, i)
		}
	}
	for i, item := range record.Plan {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: plan item %d has no description", ErrBadOutput, i)
		}
	}
	return nil
}

func stripCodeFence(output string) string {
	clean := strings.TrimSpace(output)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}
