package style

import (
	"context"
	"fmt"
	"sync"

	"github.com/easeaico/style-echo/internal/revision"
	"github.com/easeaico/style-echo/internal/types"
)

// ledgerRepo is an in-memory revision.Repository.
type ledgerRepo struct {
	mu        sync.Mutex
	revisions []types.Revision
	subjects  map[string]types.Subject
	seq       int
}

func newLedgerRepo() *ledgerRepo {
	return &ledgerRepo{subjects: map[string]types.Subject{}}
}

func (r *ledgerRepo) CreateRevision(_ context.Context, rev *types.Revision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rev.ID = fmt.Sprintf("rev-%d", r.seq)
	r.revisions = append(r.revisions, *rev)
	return nil
}

func (r *ledgerRepo) GetRevision(_ context.Context, ownerID, id string) (*types.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rev := range r.revisions {
		if rev.ID == id && rev.OwnerID == ownerID {
			return &rev, nil
		}
	}
	return nil, types.ErrNotFound
}

func (r *ledgerRepo) ListRevisions(_ context.Context, ownerID, subjectID string) ([]types.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Revision
	for i := len(r.revisions) - 1; i >= 0; i-- {
		rev := r.revisions[i]
		if rev.OwnerID == ownerID && (subjectID == "" || rev.SubjectID == subjectID) {
			out = append(out, rev)
		}
	}
	return out, nil
}

func (r *ledgerRepo) DeleteAllRevisions(context.Context, string) (int64, error) {
	return 0, nil
}

func (r *ledgerRepo) DeleteRevisions(context.Context, string, []string) (int64, error) {
	return 0, nil
}

func (r *ledgerRepo) CreateSubject(_ context.Context, subject *types.Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	subject.ID = fmt.Sprintf("subject-%d", r.seq)
	r.subjects[subject.ID] = *subject
	return nil
}

func (r *ledgerRepo) GetSubject(_ context.Context, ownerID, id string) (*types.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok || s.OwnerID != ownerID {
		return nil, types.ErrNotFound
	}
	return &s, nil
}

func (r *ledgerRepo) ListSubjects(context.Context, string) ([]types.Subject, error) {
	return nil, nil
}

func (r *ledgerRepo) UpdateSubjectContent(_ context.Context, ownerID, id, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok || s.OwnerID != ownerID {
		return types.ErrNotFound
	}
	s.Content = content
	r.subjects[id] = s
	return nil
}

func (r *ledgerRepo) InTx(_ context.Context, fn func(revision.Repository) error) error {
	return fn(r)
}
