package types

import "time"

// RevisionKind describes how a content change was produced.
type RevisionKind string

const (
	RevisionManual    RevisionKind = "manual"
	RevisionGenerated RevisionKind = "generated"
)

// Valid reports whether k is a known revision kind.
func (k RevisionKind) Valid() bool {
	return k == RevisionManual || k == RevisionGenerated
}

// Revision is an immutable record of one content change.
type Revision struct {
	ID              string       `json:"id"`
	OwnerID         string       `json:"owner_id"`
	SubjectID       string       `json:"subject_id"`
	Kind            RevisionKind `json:"kind"`
	Content         string       `json:"content"`
	PreviousContent string       `json:"previous_content"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Subject is an editable unit of text (a document or chapter) whose content revisions track.
type Subject struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
