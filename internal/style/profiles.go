package style

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/easeaico/style-echo/internal/types"
)

// DefaultStrength is used when a new profile does not set one.
const DefaultStrength = 0.5

// ProfileInput carries the editable fields of a profile. A nil Strength keeps
// the current value, or DefaultStrength on create.
type ProfileInput struct {
	Name        string
	Description string
	SampleText  string
	Strength    *float64
	Extras      map[string]any
}

// CreateProfile validates and embeds a new profile, then stores it.
func (s *Service) CreateProfile(ctx context.Context, ownerID string, in ProfileInput) (*types.StyleProfile, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, types.Invalid("ownerId", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, types.Invalid("name", "is required")
	}
	strength := DefaultStrength
	if in.Strength != nil {
		if err := checkStrength(*in.Strength); err != nil {
			return nil, err
		}
		strength = *in.Strength
	}

	profile := &types.StyleProfile{
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		SampleText:  in.SampleText,
		Strength:    strength,
		Extras:      in.Extras,
	}
	vec, err := s.embedder.EmbedDocument(ctx, embeddingText(profile))
	if err != nil {
		return nil, &UpstreamError{Stage: StageAnalyze, Err: err}
	}
	profile.Embedding = vec

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create style profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies the non-empty fields of in. The profile is
// re-embedded when the text it is embedded from changes or it has no
// vector yet.
func (s *Service) UpdateProfile(ctx context.Context, ownerID, id string, in ProfileInput) (*types.StyleProfile, error) {
	profile, err := s.GetProfile(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	before := embeddingText(profile)
	if name := strings.TrimSpace(in.Name); name != "" {
		profile.Name = name
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		profile.Description = desc
	}
	if strings.TrimSpace(in.SampleText) != "" {
		profile.SampleText = in.SampleText
	}
	if in.Strength != nil {
		if err := checkStrength(*in.Strength); err != nil {
			return nil, err
		}
		profile.Strength = *in.Strength
	}
	if in.Extras != nil {
		profile.Extras = in.Extras
	}

	if !profile.HasEmbedding() || embeddingText(profile) != before {
		vec, err := s.embedder.EmbedDocument(ctx, embeddingText(profile))
		if err != nil {
			return nil, &UpstreamError{Stage: StageAnalyze, Err: err}
		}
		profile.Embedding = vec
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, profileNotFound(id, err)
		}
		return nil, fmt.Errorf("failed to update style profile: %w", err)
	}
	return profile, nil
}

func (s *Service) DeleteProfile(ctx context.Context, ownerID, id string) error {
	if err := s.profiles.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return profileNotFound(id, err)
		}
		return fmt.Errorf("failed to delete style profile: %w", err)
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, ownerID, id string) (*types.StyleProfile, error) {
	profile, err := s.profiles.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, profileNotFound(id, err)
		}
		return nil, fmt.Errorf("failed to load style profile: %w", err)
	}
	return profile, nil
}

// ListProfiles returns the owner's profiles in creation order.
func (s *Service) ListProfiles(ctx context.Context, ownerID string) ([]types.StyleProfile, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, types.Invalid("ownerId", "is required")
	}
	profiles, err := s.profiles.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list style profiles: %w", err)
	}
	return profiles, nil
}

func checkStrength(v float64) error {
	if v < 0 || v > 1 {
		return types.Invalid("strength", "must be between 0 and 1")
	}
	return nil
}

// embeddingText prefers the sample; name and description stand in when it is blank.
func embeddingText(p *types.StyleProfile) string {
	if text := strings.TrimSpace(p.SampleText); text != "" {
		return text
	}
	return strings.TrimSpace(p.Name + "\n" + p.Description)
}
