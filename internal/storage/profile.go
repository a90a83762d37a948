package storage

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/easeaico/style-echo/internal/style"
	"github.com/easeaico/style-echo/internal/types"
	"github.com/easeaico/style-echo/internal/vector"
)

// legacyEmbeddingKey is where older records kept the embedding, either as
// a JSON array or as its "[...]" string form.
const legacyEmbeddingKey = "embedding"

// profileModel maps to the style_profiles table.
type profileModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	OwnerID     string `gorm:"index;not null"`
	Name        string `gorm:"not null"`
	Description string
	SampleText  string  `gorm:"type:text"`
	Strength    float64 `gorm:"not null"`
	// Embedding is nullable; unconstrained so providers may change dimensions.
	Embedding *pgvector.Vector  `gorm:"type:vector"`
	Extras    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"index"`
	UpdatedAt time.Time
}

func (profileModel) TableName() string {
	return "style_profiles"
}

// ProfileOption customizes a profile repository.
type ProfileOption func(*profileRepo)

// WithDecodeHook observes stored embeddings that fail to decode.
func WithDecodeHook(fn func(profileID string, err error)) ProfileOption {
	return func(r *profileRepo) {
		r.onDecodeError = fn
	}
}

type profileRepo struct {
	db            *gorm.DB
	onDecodeError func(profileID string, err error)
}

// NewProfileRepo returns a style.ProfileRepo.
func NewProfileRepo(db *gorm.DB, opts ...ProfileOption) style.ProfileRepo {
	r := &profileRepo{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *profileRepo) Create(ctx context.Context, profile *types.StyleProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	record := profileToModel(profile)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert style profile: %w", err)
	}
	profile.CreatedAt = record.CreatedAt
	profile.UpdatedAt = record.UpdatedAt
	return nil
}

func (r *profileRepo) Update(ctx context.Context, profile *types.StyleProfile) error {
	record := profileToModel(profile)
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&profileModel{}).
		Where("id = ? AND owner_id = ?", profile.ID, profile.OwnerID).
		Updates(map[string]any{
			"name":        record.Name,
			"description": record.Description,
			"sample_text": record.SampleText,
			"strength":    record.Strength,
			"embedding":   record.Embedding,
			"extras":      record.Extras,
			"updated_at":  now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update style profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("style profile %s: %w", profile.ID, types.ErrNotFound)
	}
	profile.UpdatedAt = now
	return nil
}

func (r *profileRepo) Delete(ctx context.Context, ownerID, id string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&profileModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete style profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("style profile %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func (r *profileRepo) Get(ctx context.Context, ownerID, id string) (*types.StyleProfile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("style profile %s: %w", id, types.ErrNotFound)
	}
	var record profileModel
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get style profile: %w", notFound(err, "style profile "+id))
	}
	profile := r.fromModel(record)
	return &profile, nil
}

// ListByOwner returns profiles in creation order.
func (r *profileRepo) ListByOwner(ctx context.Context, ownerID string) ([]types.StyleProfile, error) {
	var records []profileModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query style profiles: %w", err)
	}

	results := make([]types.StyleProfile, 0, len(records))
	for _, record := range records {
		results = append(results, r.fromModel(record))
	}
	return results, nil
}

func profileToModel(profile *types.StyleProfile) profileModel {
	var embedding *pgvector.Vector
	if len(profile.Embedding) > 0 {
		v := pgvector.NewVector(profile.Embedding)
		embedding = &v
	}
	var extras datatypes.JSONMap
	if len(profile.Extras) > 0 {
		extras = datatypes.JSONMap(maps.Clone(profile.Extras))
		// The typed column is authoritative.
		delete(extras, legacyEmbeddingKey)
	}
	return profileModel{
		ID:          profile.ID,
		OwnerID:     profile.OwnerID,
		Name:        profile.Name,
		Description: profile.Description,
		SampleText:  profile.SampleText,
		Strength:    profile.Strength,
		Embedding:   embedding,
		Extras:      extras,
		CreatedAt:   profile.CreatedAt,
		UpdatedAt:   profile.UpdatedAt,
	}
}

// fromModel decodes the embedding column, falling back to the legacy extras
// entry. A value that cannot be decoded leaves the profile without a vector.
func (r *profileRepo) fromModel(record profileModel) types.StyleProfile {
	profile := types.StyleProfile{
		ID:          record.ID,
		OwnerID:     record.OwnerID,
		Name:        record.Name,
		Description: record.Description,
		SampleText:  record.SampleText,
		Strength:    record.Strength,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}

	var raw any
	if record.Embedding != nil {
		raw = record.Embedding
	}
	if len(record.Extras) > 0 {
		extras := maps.Clone(map[string]any(record.Extras))
		if legacy, ok := extras[legacyEmbeddingKey]; ok {
			if raw == nil {
				raw = legacy
			}
			delete(extras, legacyEmbeddingKey)
		}
		if len(extras) > 0 {
			profile.Extras = extras
		}
	}

	vec, err := vector.Decode(raw)
	if err != nil {
		slog.Warn("failed to decode stored embedding", "profile_id", record.ID, "error", err.Error())
		if r.onDecodeError != nil {
			r.onDecodeError(record.ID, err)
		}
		return profile
	}
	profile.Embedding = vec
	return profile
}
