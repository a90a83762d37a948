// Package revision records content changes and restores earlier versions.
//
// Revisions are append-only. The only removal paths are DeleteAll for an
// owner and DeleteSelected for an explicit id set.
package revision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/easeaico/style-echo/internal/types"
)

// Repository persists revisions and the subjects they belong to.
type Repository interface {
	CreateRevision(ctx context.Context, rev *types.Revision) error
	GetRevision(ctx context.Context, ownerID, id string) (*types.Revision, error)
	ListRevisions(ctx context.Context, ownerID, subjectID string) ([]types.Revision, error)
	DeleteAllRevisions(ctx context.Context, ownerID string) (int64, error)
	DeleteRevisions(ctx context.Context, ownerID string, ids []string) (int64, error)

	CreateSubject(ctx context.Context, subject *types.Subject) error
	GetSubject(ctx context.Context, ownerID, id string) (*types.Subject, error)
	ListSubjects(ctx context.Context, ownerID string) ([]types.Subject, error)
	UpdateSubjectContent(ctx context.Context, ownerID, id, content string) error

	// InTx runs fn against a repository bound to one transaction.
	InTx(ctx context.Context, fn func(Repository) error) error
}

// Ledger is the revision service.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Record appends a revision for an existing subject.
func (l *Ledger) Record(ctx context.Context, ownerID, subjectID string, kind types.RevisionKind, content, previousContent string) (*types.Revision, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, types.Invalid("owner", "is required")
	}
	if strings.TrimSpace(subjectID) == "" {
		return nil, types.Invalid("subject", "is required")
	}
	if !kind.Valid() {
		return nil, types.Invalid("kind", fmt.Sprintf("unknown revision kind %q", kind))
	}

	if _, err := l.repo.GetSubject(ctx, ownerID, subjectID); err != nil {
		return nil, subjectError(err)
	}

	rev := &types.Revision{
		OwnerID:         ownerID,
		SubjectID:       subjectID,
		Kind:            kind,
		Content:         content,
		PreviousContent: previousContent,
	}
	if err := l.repo.CreateRevision(ctx, rev); err != nil {
		return nil, fmt.Errorf("failed to record revision: %w", err)
	}
	slog.Debug("revision recorded", "revision_id", rev.ID, "subject_id", subjectID, "kind", kind)
	return rev, nil
}

// Restore sets the subject's content to exactly rev.Content, the state
// after that revision was recorded, whatever the subject holds now. The
// overwritten content is kept as a new manual revision.
func (l *Ledger) Restore(ctx context.Context, ownerID, revisionID string) (string, error) {
	var restored string
	err := l.repo.InTx(ctx, func(tx Repository) error {
		rev, err := tx.GetRevision(ctx, ownerID, revisionID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return &types.ValidationError{Field: "revision", Reason: "not found", Err: err}
			}
			return err
		}
		subject, err := tx.GetSubject(ctx, ownerID, rev.SubjectID)
		if err != nil {
			return subjectError(err)
		}
		if err := tx.UpdateSubjectContent(ctx, ownerID, subject.ID, rev.Content); err != nil {
			return err
		}
		if subject.Content != rev.Content {
			lineage := &types.Revision{
				OwnerID:         ownerID,
				SubjectID:       subject.ID,
				Kind:            types.RevisionManual,
				Content:         rev.Content,
				PreviousContent: subject.Content,
			}
			if err := tx.CreateRevision(ctx, lineage); err != nil {
				return err
			}
		}
		restored = rev.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to restore revision %s: %w", revisionID, err)
	}
	slog.Info("revision restored", "revision_id", revisionID, "owner_id", ownerID)
	return restored, nil
}

// List returns revisions newest first, optionally limited to one subject.
func (l *Ledger) List(ctx context.Context, ownerID, subjectID string) ([]types.Revision, error) {
	return l.repo.ListRevisions(ctx, ownerID, subjectID)
}

func (l *Ledger) Get(ctx context.Context, ownerID, id string) (*types.Revision, error) {
	return l.repo.GetRevision(ctx, ownerID, id)
}

// DeleteAll removes every revision of an owner.
func (l *Ledger) DeleteAll(ctx context.Context, ownerID string) (int64, error) {
	if strings.TrimSpace(ownerID) == "" {
		return 0, types.Invalid("owner", "is required")
	}
	n, err := l.repo.DeleteAllRevisions(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	slog.Info("revisions deleted", "owner_id", ownerID, "count", n)
	return n, nil
}

// DeleteSelected removes the given revisions of an owner. Ids of other
// owners are ignored.
func (l *Ledger) DeleteSelected(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if strings.TrimSpace(ownerID) == "" {
		return 0, types.Invalid("owner", "is required")
	}
	if len(ids) == 0 {
		return 0, types.Invalid("ids", "at least one revision id is required")
	}
	n, err := l.repo.DeleteRevisions(ctx, ownerID, ids)
	if err != nil {
		return 0, err
	}
	slog.Info("revisions deleted", "owner_id", ownerID, "requested", len(ids), "count", n)
	return n, nil
}

// CreateSubject registers an editable unit of text.
func (l *Ledger) CreateSubject(ctx context.Context, ownerID, title, content string) (*types.Subject, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, types.Invalid("owner", "is required")
	}
	subject := &types.Subject{OwnerID: ownerID, Title: strings.TrimSpace(title), Content: content}
	if err := l.repo.CreateSubject(ctx, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (l *Ledger) Subject(ctx context.Context, ownerID, id string) (*types.Subject, error) {
	return l.repo.GetSubject(ctx, ownerID, id)
}

func (l *Ledger) Subjects(ctx context.Context, ownerID string) ([]types.Subject, error) {
	return l.repo.ListSubjects(ctx, ownerID)
}

func subjectError(err error) error {
	if errors.Is(err, types.ErrNotFound) {
		return &types.ValidationError{Field: "subject", Reason: "not found", Err: err}
	}
	return err
}
