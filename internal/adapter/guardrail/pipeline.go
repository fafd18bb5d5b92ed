package guardrail

import (
	"context"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// RefusalMessage replaces the answer when an output stage rejects it.
const RefusalMessage = "I'm sorry, I can't provide that answer based on the document. Please try rephrasing your question."

// Settings carries the thresholds shared by the built-in stages.
type Settings struct {
	MaxQueryLength     int
	Languages          []string
	GroundingThreshold float64
}

type factory func(Settings) (port.Guardrail, error)

var inputRegistry = map[string]factory{
	"safety": func(Settings) (port.Guardrail, error) { return InputSafety{}, nil },
	"length": func(s Settings) (port.Guardrail, error) { return Length{Max: s.MaxQueryLength}, nil },
	"language": func(s Settings) (port.Guardrail, error) {
		return NewLanguage(s.Languages)
	},
}

var outputRegistry = map[string]factory{
	"grounding": func(s Settings) (port.Guardrail, error) {
		return Grounding{Threshold: s.GroundingThreshold}, nil
	},
	"safety": func(Settings) (port.Guardrail, error) { return OutputSafety{}, nil },
}

// Pipeline runs an ordered list of guardrail stages over one value.
type Pipeline struct {
	name   string
	stages []port.Guardrail
}

// NewInputPipeline builds the query-side pipeline from configured stage
// names. Unknown names fail construction, not first use.
func NewInputPipeline(names []string, s Settings) (*Pipeline, error) {
	return newPipeline("input", names, inputRegistry, s)
}

// NewOutputPipeline builds the answer-side pipeline.
func NewOutputPipeline(names []string, s Settings) (*Pipeline, error) {
	return newPipeline("output", names, outputRegistry, s)
}

func newPipeline(name string, names []string, registry map[string]factory, s Settings) (*Pipeline, error) {
	stages := make([]port.Guardrail, 0, len(names))
	for _, n := range names {
		f, ok := registry[n]
		if !ok {
			return nil, &domain.GuardrailConfigError{Stage: n, Reason: "unknown stage name"}
		}
		stage, err := f(s)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return &Pipeline{name: name, stages: stages}, nil
}

// Run executes the stages in order against in.Text. A Modify verdict
// replaces the text for subsequent stages; the first Reject stops the
// pipeline. A runtime stage failure degrades to Pass with a recorded
// warning instead of blocking the flow. Returns the final text and
// every stage's verdict.
func (p *Pipeline) Run(ctx context.Context, in port.CheckInput) (string, []domain.Verdict) {
	text := in.Text
	verdicts := make([]domain.Verdict, 0, len(p.stages))

	for _, g := range p.stages {
		in.Text = text
		v, err := g.Check(ctx, in)
		if err != nil {
			v = domain.Verdict{Status: domain.VerdictPass, Warning: err.Error()}
		}
		v.Stage = p.name + ":" + g.Name()
		verdicts = append(verdicts, v)

		switch v.Status {
		case domain.VerdictReject:
			return text, verdicts
		case domain.VerdictModify:
			text = v.NewValue
		}
	}

	return text, verdicts
}

// Rejected reports whether a run ended in rejection, with the reason.
func Rejected(verdicts []domain.Verdict) (string, bool) {
	if n := len(verdicts); n > 0 && verdicts[n-1].Status == domain.VerdictReject {
		return verdicts[n-1].Reason, true
	}
	return "", false
}
