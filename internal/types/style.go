package types

import "time"

// StyleProfile is a named writing sample used as a rewrite target.
type StyleProfile struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// SampleText is the analysis reference; it is never meant to be reproduced verbatim.
	SampleText string `json:"sample_text"`
	// Strength is the default rewrite strength in [0,1].
	Strength float64 `json:"strength"`
	// Embedding is nil when the profile has no usable vector.
	Embedding []float32 `json:"-"`
	// Extras holds forward-compatible fields that have no typed home yet.
	Extras    map[string]any `json:"extras,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// HasEmbedding reports whether the profile carries a vector.
func (p *StyleProfile) HasEmbedding() bool {
	return p != nil && len(p.Embedding) > 0
}

// RankedResult pairs a profile with its similarity to a query.
type RankedResult struct {
	Profile    StyleProfile `json:"profile"`
	Similarity float64      `json:"similarity"`
}
