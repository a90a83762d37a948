package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/easeaico/style-echo/internal/revision"
	"github.com/easeaico/style-echo/internal/types"
)

type decodeFailures struct {
	mu  sync.Mutex
	ids []string
}

func (d *decodeFailures) record(id string, _ error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
}

func newTestStore(t *testing.T, opts ...ProfileOption) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcPostgres.Run(ctx, "pgvector/pgvector:pg16",
		tcPostgres.WithDatabase("styleecho"),
		tcPostgres.WithUsername("styleecho"),
		tcPostgres.WithPassword("styleecho"),
		tcPostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	store, err := NewStore(ctx, dsn, opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if ok, err := store.VectorExtensionInstalled(ctx); err != nil || !ok {
		t.Fatalf("pgvector not enabled after migrate (err %v)", err)
	}
	return store
}

func TestProfileRepo(t *testing.T) {
	failures := &decodeFailures{}
	store := newTestStore(t, WithDecodeHook(failures.record))
	ctx := context.Background()
	repo := store.Profiles

	first := &types.StyleProfile{
		OwnerID:    "owner",
		Name:       "Terse",
		SampleText: "Short. Sharp.",
		Strength:   0,
		Embedding:  []float32{0.1, 0.2, 0.3},
		Extras:     map[string]any{"tone": "dry"},
	}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := &types.StyleProfile{OwnerID: "owner", Name: "Lush", SampleText: "Long rolling sentences.", Strength: 0.9}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, &types.StyleProfile{OwnerID: "other", Name: "Theirs", Strength: 0.5}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, "owner", first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Strength != 0 {
		t.Fatalf("zero strength must round trip, got %v", got.Strength)
	}
	if len(got.Embedding) != 3 || got.Embedding[2] != 0.3 {
		t.Fatalf("embedding did not round trip: %v", got.Embedding)
	}
	if got.Extras["tone"] != "dry" {
		t.Fatalf("extras did not round trip: %v", got.Extras)
	}

	if _, err := repo.Get(ctx, "other", first.ID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
	if _, err := repo.Get(ctx, "owner", "not-a-uuid"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}

	list, err := repo.ListByOwner(ctx, "owner")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("expected creation order, got %+v", list)
	}
	if list[1].HasEmbedding() {
		t.Fatal("profile without embedding should stay without one")
	}

	second.Embedding = []float32{1, 0, 0}
	second.Name = "Lush prose"
	if err := repo.Update(ctx, second); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = repo.Get(ctx, "owner", second.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Lush prose" || len(got.Embedding) != 3 {
		t.Fatalf("update not persisted: %+v", got)
	}

	foreign := *second
	foreign.OwnerID = "other"
	if err := repo.Update(ctx, &foreign); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found for foreign update, got %v", err)
	}
	if err := repo.Delete(ctx, "other", second.ID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found for foreign delete, got %v", err)
	}
	if err := repo.Delete(ctx, "owner", second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(failures.ids) != 0 {
		t.Fatalf("unexpected decode failures: %v", failures.ids)
	}
}

func TestProfileRepoLegacyEmbeddings(t *testing.T) {
	failures := &decodeFailures{}
	store := newTestStore(t, WithDecodeHook(failures.record))
	ctx := context.Background()

	insert := func(extras string) string {
		id := uuid.NewString()
		err := store.DB().WithContext(ctx).Exec(
			`INSERT INTO style_profiles (id, owner_id, name, description, sample_text, strength, extras, created_at, updated_at)
			 VALUES (?, 'legacy', 'imported', '', '', 0.5, ?::jsonb, clock_timestamp(), clock_timestamp())`,
			id, extras,
		).Error
		if err != nil {
			t.Fatalf("insert legacy row: %v", err)
		}
		return id
	}
	asString := insert(`{"embedding": "[0.5, 0.25, 1]", "genre": "noir"}`)
	asArray := insert(`{"embedding": [1, 2]}`)
	broken := insert(`{"embedding": "[1, oops]"}`)

	got, err := store.Profiles.Get(ctx, "legacy", asString)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.25 {
		t.Fatalf("string embedding not decoded: %v", got.Embedding)
	}
	if _, ok := got.Extras["embedding"]; ok || got.Extras["genre"] != "noir" {
		t.Fatalf("extras should keep only open-ended fields: %v", got.Extras)
	}

	got, err = store.Profiles.Get(ctx, "legacy", asArray)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Embedding) != 2 {
		t.Fatalf("array embedding not decoded: %v", got.Embedding)
	}

	got, err = store.Profiles.Get(ctx, "legacy", broken)
	if err != nil {
		t.Fatalf("broken embedding must not fail the read: %v", err)
	}
	if got.HasEmbedding() {
		t.Fatal("broken embedding should leave the profile without a vector")
	}
	if len(failures.ids) != 1 || failures.ids[0] != broken {
		t.Fatalf("expected one decode failure for %s, got %v", broken, failures.ids)
	}

	list, err := store.Profiles.ListByOwner(ctx, "legacy")
	if err != nil {
		t.Fatalf("list must survive a malformed row: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(list))
	}
}

func TestRevisionLedgerRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ledger := revision.NewLedger(store.Revisions)

	subject, err := ledger.CreateSubject(ctx, "owner", "Chapter 1", "v0")
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	first, err := ledger.Record(ctx, "owner", subject.ID, types.RevisionManual, "v1", "v0")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Revisions.UpdateSubjectContent(ctx, "owner", subject.ID, "v2"); err != nil {
		t.Fatalf("update subject: %v", err)
	}
	if _, err := ledger.Record(ctx, "owner", subject.ID, types.RevisionGenerated, "v2", "v1"); err != nil {
		t.Fatalf("record: %v", err)
	}

	restored, err := ledger.Restore(ctx, "owner", first.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored != "v1" {
		t.Fatalf("restore returned %q, want v1", restored)
	}
	current, err := ledger.Subject(ctx, "owner", subject.ID)
	if err != nil {
		t.Fatalf("subject: %v", err)
	}
	if current.Content != "v1" {
		t.Fatalf("subject content = %q, want v1", current.Content)
	}

	revs, err := ledger.List(ctx, "owner", subject.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(revs) != 3 {
		t.Fatalf("expected 3 revisions including lineage, got %d", len(revs))
	}
	if revs[0].Kind != types.RevisionManual || revs[0].PreviousContent != "v2" {
		t.Fatalf("newest revision should capture the overwritten content, got %+v", revs[0])
	}

	if _, err := ledger.Get(ctx, "intruder", first.ID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
	n, err := ledger.DeleteSelected(ctx, "intruder", []string{first.ID})
	if err != nil || n != 0 {
		t.Fatalf("foreign delete removed %d rows (err %v)", n, err)
	}
	n, err = ledger.DeleteSelected(ctx, "owner", []string{first.ID})
	if err != nil || n != 1 {
		t.Fatalf("selective delete removed %d rows (err %v)", n, err)
	}
	n, err = ledger.DeleteAll(ctx, "owner")
	if err != nil || n != 2 {
		t.Fatalf("delete all removed %d rows (err %v)", n, err)
	}
}
