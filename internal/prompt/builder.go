// Package prompt assembles generation requests for style rewrites and
// plain writing assistance.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/easeaico/style-echo/internal/types"
)

// MaxRelated is the most related profiles a prompt may mention.
const MaxRelated = 3

// Options configures an Assembler. Zero values fall back to defaults;
// a nil DefaultTemperature selects 0.7 while a set 0 is kept.
type Options struct {
	HistoryLimit       int
	RelatedLimit       int
	DescriptionPreview int
	DefaultTemperature *float64
	MaxOutputTokens    int
}

// RewriteInput contains all inputs for request assembly. A nil Target
// selects assist mode: no style constraint and the default temperature.
type RewriteInput struct {
	Text           string
	Target         *types.StyleProfile
	Related        []types.RankedResult
	History        []types.Turn
	Strength       float64
	CurrentContent string
}

// InputError reports an unusable RewriteInput field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Assembler builds GenerationRequests.
type Assembler struct {
	opts        Options
	temperature float64
	rewrite     *template.Template
	assist      *template.Template
}

// NewAssembler creates an Assembler.
func NewAssembler(opts Options) *Assembler {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.RelatedLimit <= 0 || opts.RelatedLimit > MaxRelated {
		opts.RelatedLimit = MaxRelated
	}
	if opts.DescriptionPreview <= 0 {
		opts.DescriptionPreview = 100
	}
	temperature := 0.7
	if opts.DefaultTemperature != nil {
		temperature = *opts.DefaultTemperature
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 1000
	}
	rewrite, assist := newTemplates(opts.DescriptionPreview)
	return &Assembler{opts: opts, temperature: temperature, rewrite: rewrite, assist: assist}
}

// BuildRewriteRequest assembles the system instruction and the message list:
// the bounded history oldest first, then the new user turn last.
func (a *Assembler) BuildRewriteRequest(in RewriteInput) (*types.GenerationRequest, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, &InputError{Field: "text", Reason: "is required"}
	}

	var (
		system      string
		temperature float64
		err         error
	)
	if in.Target == nil {
		system, err = a.render(a.assist, struct{ CurrentContent string }{strings.TrimSpace(in.CurrentContent)})
		temperature = a.temperature
	} else {
		if in.Strength < 0 || in.Strength > 1 {
			return nil, &InputError{Field: "strength", Reason: "must be between 0 and 1"}
		}
		system, err = a.render(a.rewrite, struct {
			Target         *types.StyleProfile
			Strength       float64
			SampleLabel    string
			Related        []types.RankedResult
			CurrentContent string
		}{
			Target:         in.Target,
			Strength:       in.Strength,
			SampleLabel:    sampleLabel,
			Related:        a.related(in.Target.ID, in.Related),
			CurrentContent: strings.TrimSpace(in.CurrentContent),
		})
		temperature = StrengthToTemperature(in.Strength)
	}
	if err != nil {
		return nil, err
	}

	history := in.History
	if len(history) > a.opts.HistoryLimit {
		history = history[len(history)-a.opts.HistoryLimit:]
	}
	messages := make([]types.Turn, 0, len(history)+1)
	for _, turn := range history {
		if !turn.Role.Valid() || strings.TrimSpace(turn.Content) == "" {
			continue
		}
		messages = append(messages, types.Turn{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, types.Turn{Role: types.RoleUser, Content: text})

	return &types.GenerationRequest{
		System:          system,
		Messages:        messages,
		Temperature:     temperature,
		MaxOutputTokens: a.opts.MaxOutputTokens,
	}, nil
}

// StrengthToTemperature maps style strength to sampling temperature.
// The mapping is the identity on [0,1].
func StrengthToTemperature(strength float64) float64 {
	return min(max(strength, 0), 1)
}

// related drops the target itself and caps the list.
func (a *Assembler) related(targetID string, in []types.RankedResult) []types.RankedResult {
	out := make([]types.RankedResult, 0, min(len(in), a.opts.RelatedLimit))
	for _, r := range in {
		if len(out) == a.opts.RelatedLimit {
			break
		}
		if targetID != "" && r.Profile.ID == targetID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (a *Assembler) render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}
	return strings.TrimSpace(strings.ReplaceAll(buf.String(), "\r\n", "\n")), nil
}
