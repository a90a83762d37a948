package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easeaico/style-echo/internal/revision"
	"github.com/easeaico/style-echo/internal/types"
)

// revisionModel maps to the revisions table. Rows are never updated.
type revisionModel struct {
	ID              string `gorm:"type:uuid;primaryKey"`
	OwnerID         string `gorm:"index;not null"`
	SubjectID       string `gorm:"type:uuid;index;not null"`
	Kind            string `gorm:"size:16;not null"`
	Content         string `gorm:"type:text"`
	PreviousContent string `gorm:"type:text"`
	CreatedAt       time.Time
}

func (revisionModel) TableName() string {
	return "revisions"
}

// subjectModel maps to the subjects table.
type subjectModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	OwnerID   string `gorm:"index;not null"`
	Title     string
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (subjectModel) TableName() string {
	return "subjects"
}

type revisionRepo struct {
	db *gorm.DB
}

// NewRevisionRepo returns a revision.Repository.
func NewRevisionRepo(db *gorm.DB) revision.Repository {
	return &revisionRepo{db: db}
}

func (r *revisionRepo) InTx(ctx context.Context, fn func(revision.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&revisionRepo{db: tx})
	})
}

func (r *revisionRepo) CreateRevision(ctx context.Context, rev *types.Revision) error {
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	record := revisionModel{
		ID:              rev.ID,
		OwnerID:         rev.OwnerID,
		SubjectID:       rev.SubjectID,
		Kind:            string(rev.Kind),
		Content:         rev.Content,
		PreviousContent: rev.PreviousContent,
		CreatedAt:       rev.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert revision: %w", err)
	}
	rev.CreatedAt = record.CreatedAt
	return nil
}

func (r *revisionRepo) GetRevision(ctx context.Context, ownerID, id string) (*types.Revision, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("revision %s: %w", id, types.ErrNotFound)
	}
	var record revisionModel
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get revision: %w", notFound(err, "revision "+id))
	}
	rev := revisionFromModel(record)
	return &rev, nil
}

// ListRevisions returns newest first. An empty subjectID lists every subject.
func (r *revisionRepo) ListRevisions(ctx context.Context, ownerID, subjectID string) ([]types.Revision, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC, id DESC")
	if subjectID != "" {
		query = query.Where("subject_id = ?", subjectID)
	}
	var records []revisionModel
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	results := make([]types.Revision, 0, len(records))
	for _, record := range records {
		results = append(results, revisionFromModel(record))
	}
	return results, nil
}

func (r *revisionRepo) DeleteAllRevisions(ctx context.Context, ownerID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&revisionModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete revisions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *revisionRepo) DeleteRevisions(ctx context.Context, ownerID string, ids []string) (int64, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("owner_id = ? AND id IN ?", ownerID, valid).Delete(&revisionModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete revisions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *revisionRepo) CreateSubject(ctx context.Context, subject *types.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	record := subjectModel{
		ID:      subject.ID,
		OwnerID: subject.OwnerID,
		Title:   subject.Title,
		Content: subject.Content,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert subject: %w", err)
	}
	subject.CreatedAt = record.CreatedAt
	subject.UpdatedAt = record.UpdatedAt
	return nil
}

func (r *revisionRepo) GetSubject(ctx context.Context, ownerID, id string) (*types.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("subject %s: %w", id, types.ErrNotFound)
	}
	var record subjectModel
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get subject: %w", notFound(err, "subject "+id))
	}
	subject := subjectFromModel(record)
	return &subject, nil
}

func (r *revisionRepo) ListSubjects(ctx context.Context, ownerID string) ([]types.Subject, error) {
	var records []subjectModel
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	results := make([]types.Subject, 0, len(records))
	for _, record := range records {
		results = append(results, subjectFromModel(record))
	}
	return results, nil
}

func (r *revisionRepo) UpdateSubjectContent(ctx context.Context, ownerID, id, content string) error {
	result := r.db.WithContext(ctx).
		Model(&subjectModel{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]any{"content": content, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to update subject: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subject %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func revisionFromModel(record revisionModel) types.Revision {
	return types.Revision{
		ID:              record.ID,
		OwnerID:         record.OwnerID,
		SubjectID:       record.SubjectID,
		Kind:            types.RevisionKind(record.Kind),
		Content:         record.Content,
		PreviousContent: record.PreviousContent,
		CreatedAt:       record.CreatedAt,
	}
}

func subjectFromModel(record subjectModel) types.Subject {
	return types.Subject{
		ID:        record.ID,
		OwnerID:   record.OwnerID,
		Title:     record.Title,
		Content:   record.Content,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
