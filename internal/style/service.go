// Package style implements style search and style-imitating rewrites.
package style

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/easeaico/style-echo/internal/embedding"
	"github.com/easeaico/style-echo/internal/history"
	"github.com/easeaico/style-echo/internal/metrics"
	"github.com/easeaico/style-echo/internal/models"
	"github.com/easeaico/style-echo/internal/prompt"
	"github.com/easeaico/style-echo/internal/ranking"
	"github.com/easeaico/style-echo/internal/revision"
	"github.com/easeaico/style-echo/internal/types"
)

const (
	DefaultSearchLimit  = 5
	DefaultRelatedLimit = 3
)

// ProfileRepo persists style profiles. Lists are in creation order.
type ProfileRepo interface {
	Create(ctx context.Context, profile *types.StyleProfile) error
	Update(ctx context.Context, profile *types.StyleProfile) error
	Delete(ctx context.Context, ownerID, id string) error
	Get(ctx context.Context, ownerID, id string) (*types.StyleProfile, error)
	ListByOwner(ctx context.Context, ownerID string) ([]types.StyleProfile, error)
}

// streamer is implemented by generators that can report partial text.
type streamer interface {
	Stream(ctx context.Context, req *types.GenerationRequest, onChunk models.StreamFunc) (string, error)
}

// Deps are the collaborators of a Service. Ledger and Metrics are optional.
type Deps struct {
	Profiles  ProfileRepo
	Embedder  embedding.Embedder
	Generator models.Generator
	History   history.Store
	Assembler *prompt.Assembler
	Ledger    *revision.Ledger
	Metrics   *metrics.Metrics
}

// Options tunes result sizes. Zero values fall back to defaults.
type Options struct {
	SearchLimit  int
	RelatedLimit int
}

// Service runs search and imitation for profile owners.
type Service struct {
	profiles     ProfileRepo
	embedder     embedding.Embedder
	generator    models.Generator
	history      history.Store
	locker       *history.Locker
	assembler    *prompt.Assembler
	ledger       *revision.Ledger
	metrics      *metrics.Metrics
	ranker       ranking.Ranker
	searchLimit  int
	relatedLimit int
}

func NewService(deps Deps, opts Options) *Service {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	if opts.RelatedLimit <= 0 || opts.RelatedLimit > prompt.MaxRelated {
		opts.RelatedLimit = DefaultRelatedLimit
	}
	if deps.Assembler == nil {
		deps.Assembler = prompt.NewAssembler(prompt.Options{RelatedLimit: opts.RelatedLimit})
	}
	s := &Service{
		profiles:     deps.Profiles,
		embedder:     deps.Embedder,
		generator:    deps.Generator,
		history:      deps.History,
		locker:       history.NewLocker(),
		assembler:    deps.Assembler,
		ledger:       deps.Ledger,
		metrics:      deps.Metrics,
		searchLimit:  opts.SearchLimit,
		relatedLimit: opts.RelatedLimit,
	}
	s.ranker = ranking.Ranker{OnExclude: func(id string, reason ranking.ExclusionReason) {
		slog.Debug("profile excluded from ranking", "profile_id", id, "reason", reason)
		s.metrics.Excluded(string(reason))
	}}
	return s
}

// ImitateRequest is the input of Imitate. An empty StyleID selects assist
// mode. A nil Strength uses the profile's stored strength.
type ImitateRequest struct {
	SessionID      string
	OwnerID        string
	Text           string
	StyleID        string
	Strength       *float64
	ClearHistory   bool
	SubjectID      string
	CurrentContent string
	// OnChunk, when set, receives partial text from streaming generators.
	OnChunk models.StreamFunc
}

// ImitateResult is the output of Imitate.
type ImitateResult struct {
	Result        string               `json:"result"`
	RelatedStyles []types.RankedResult `json:"related_styles"`
	RevisionID    string               `json:"revision_id,omitempty"`
}

// Search ranks the owner's profiles against queryText.
func (s *Service) Search(ctx context.Context, ownerID, queryText string, limit int) ([]types.RankedResult, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, types.Invalid("ownerId", "is required")
	}
	if strings.TrimSpace(queryText) == "" {
		return nil, types.Invalid("query", "is required")
	}
	if limit <= 0 {
		limit = s.searchLimit
	}

	profiles, err := s.profiles.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list style profiles: %w", err)
	}
	if !anyEmbedded(profiles) {
		return []types.RankedResult{}, nil
	}

	query, err := s.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, &UpstreamError{Stage: StageAnalyze, Err: err}
	}
	return s.rank(query, profiles, "", limit), nil
}

// Imitate rewrites Text in the selected style, or answers it as a writing
// assistant when no style is selected. Appends to the session history are
// serialized per session; other sessions proceed independently.
func (s *Service) Imitate(ctx context.Context, req ImitateRequest) (*ImitateResult, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, &history.StateError{Op: "imitate"}
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, types.Invalid("ownerId", "is required")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, types.Invalid("text", "is required")
	}
	if req.Strength != nil && (*req.Strength < 0 || *req.Strength > 1) {
		return nil, types.Invalid("strength", "must be between 0 and 1")
	}

	var target *types.StyleProfile
	strength := 0.0
	if req.StyleID != "" {
		profile, err := s.profiles.Get(ctx, req.OwnerID, req.StyleID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return nil, profileNotFound(req.StyleID, err)
			}
			return nil, fmt.Errorf("failed to load style profile: %w", err)
		}
		target = profile
		strength = profile.Strength
		if req.Strength != nil {
			strength = *req.Strength
		}
	}
	if req.SubjectID != "" {
		if s.ledger == nil {
			return nil, types.Invalid("subjectId", "revisions are not enabled")
		}
		if _, err := s.ledger.Subject(ctx, req.OwnerID, req.SubjectID); err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return nil, &types.ValidationError{Field: "subjectId", Reason: "not found", Err: err}
			}
			return nil, fmt.Errorf("failed to load subject: %w", err)
		}
	}

	related := []types.RankedResult{}
	if target != nil {
		var err error
		related, err = s.relatedStyles(ctx, req.OwnerID, target.ID, text)
		if err != nil {
			return nil, err
		}
	}

	unlock, err := s.locker.Lock(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if req.ClearHistory {
		if err := s.history.Clear(ctx, req.SessionID); err != nil {
			return nil, fmt.Errorf("failed to clear history: %w", err)
		}
	}
	turns, err := s.history.Snapshot(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	genReq, err := s.assembler.BuildRewriteRequest(prompt.RewriteInput{
		Text:           text,
		Target:         target,
		Related:        related,
		History:        turns,
		Strength:       strength,
		CurrentContent: req.CurrentContent,
	})
	if err != nil {
		var inputErr *prompt.InputError
		if errors.As(err, &inputErr) {
			return nil, types.Invalid(inputErr.Field, inputErr.Reason)
		}
		return nil, err
	}

	result, err := s.generate(ctx, genReq, req.OnChunk)
	if err != nil {
		return nil, &UpstreamError{Stage: StageGenerate, Err: err}
	}

	err = s.history.Append(ctx, req.SessionID,
		types.Turn{Role: types.RoleUser, Content: text},
		types.Turn{Role: types.RoleAssistant, Content: result},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append history: %w", err)
	}

	out := &ImitateResult{Result: result, RelatedStyles: related}
	if req.SubjectID != "" {
		rev, err := s.ledger.Record(ctx, req.OwnerID, req.SubjectID, types.RevisionGenerated, result, text)
		if err != nil {
			// The generation already succeeded; keep the result.
			slog.Error("failed to record generated revision", "subject_id", req.SubjectID, "error", err.Error())
		} else {
			out.RevisionID = rev.ID
		}
	}

	slog.Debug("imitation completed",
		"session_id", req.SessionID,
		"style_id", req.StyleID,
		"strength", strength,
		"history_turns", len(turns),
		"related", len(related),
	)
	return out, nil
}

// History returns the session's window, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]types.Turn, error) {
	return s.history.Snapshot(ctx, sessionID)
}

// ClearHistory empties the session's window.
func (s *Service) ClearHistory(ctx context.Context, sessionID string) error {
	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()
	return s.history.Clear(ctx, sessionID)
}

func (s *Service) relatedStyles(ctx context.Context, ownerID, targetID, text string) ([]types.RankedResult, error) {
	profiles, err := s.profiles.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list style profiles: %w", err)
	}
	others := profiles[:0:0]
	for _, p := range profiles {
		if p.ID != targetID {
			others = append(others, p)
		}
	}
	if !anyEmbedded(others) {
		return []types.RankedResult{}, nil
	}

	query, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, &UpstreamError{Stage: StageAnalyze, Err: err}
	}
	return s.rank(query, others, targetID, s.relatedLimit), nil
}

func (s *Service) rank(query []float32, profiles []types.StyleProfile, skipID string, limit int) []types.RankedResult {
	candidates := make([]ranking.Candidate, 0, len(profiles))
	byID := make(map[string]types.StyleProfile, len(profiles))
	for _, p := range profiles {
		if p.ID == skipID {
			continue
		}
		candidates = append(candidates, ranking.Candidate{ID: p.ID, Vector: p.Embedding})
		byID[p.ID] = p
	}

	scored := s.ranker.Rank(query, candidates, limit)
	results := make([]types.RankedResult, 0, len(scored))
	for _, sc := range scored {
		results = append(results, types.RankedResult{Profile: byID[sc.ID], Similarity: sc.Similarity})
	}
	return results
}

func (s *Service) generate(ctx context.Context, req *types.GenerationRequest, onChunk models.StreamFunc) (string, error) {
	if onChunk != nil {
		if st, ok := s.generator.(streamer); ok {
			return st.Stream(ctx, req, onChunk)
		}
	}
	return s.generator.Generate(ctx, req)
}

func anyEmbedded(profiles []types.StyleProfile) bool {
	for i := range profiles {
		if profiles[i].HasEmbedding() {
			return true
		}
	}
	return false
}
