// Package ranking scores candidate embeddings against a query by cosine similarity.
package ranking

import (
	"math"
	"sort"
)

// ExclusionReason explains why a candidate was left out of a ranking.
type ExclusionReason string

const (
	ExcludedMissing           ExclusionReason = "missing"
	ExcludedZeroNorm          ExclusionReason = "zero_norm"
	ExcludedDimensionMismatch ExclusionReason = "dimension_mismatch"
)

// Candidate is a rankable item. A nil Vector means the item has no usable embedding.
type Candidate struct {
	ID     string
	Vector []float32
}

// Scored is a ranked candidate.
type Scored struct {
	ID         string
	Similarity float64
}

// Ranker ranks candidates. OnExclude, when set, observes every dropped candidate.
type Ranker struct {
	OnExclude func(id string, reason ExclusionReason)
}

// Rank is shorthand for a Ranker without an exclusion hook.
func Rank(query []float32, candidates []Candidate, limit int) []Scored {
	return Ranker{}.Rank(query, candidates, limit)
}

// Rank orders candidates by descending cosine similarity to query and keeps at
// most limit of them. Candidates without a vector, with a zero norm, or with a
// dimension different from the query are excluded rather than scored. Equal
// scores keep their input order.
func (r Ranker) Rank(query []float32, candidates []Candidate, limit int) []Scored {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}
	queryNorm := norm(query)

	results := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		switch {
		case len(c.Vector) == 0:
			r.exclude(c.ID, ExcludedMissing)
			continue
		case len(c.Vector) != len(query):
			r.exclude(c.ID, ExcludedDimensionMismatch)
			continue
		}
		candNorm := norm(c.Vector)
		if queryNorm == 0 || candNorm == 0 {
			r.exclude(c.ID, ExcludedZeroNorm)
			continue
		}
		results = append(results, Scored{
			ID:         c.ID,
			Similarity: clamp(dot(query, c.Vector) / (queryNorm * candNorm)),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// CosineSimilarity returns dot(a,b)/(|a||b|). ok is false when the vectors
// differ in length, are empty, or either has a zero norm.
func CosineSimilarity(a, b []float32) (similarity float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0, false
	}
	return clamp(dot(a, b) / (na * nb)), true
}

func (r Ranker) exclude(id string, reason ExclusionReason) {
	if r.OnExclude != nil {
		r.OnExclude(id, reason)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
