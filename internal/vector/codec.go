// Package vector converts stored embeddings between their persisted encodings and []float32.
//
// An embedding may reach the application as a native numeric slice, a pgvector
// value, a JSON array decoded into []any, or the text form "[0.1,0.2,0.3]".
// Decode folds all of them into one in-memory representation so that ranking
// and prompt assembly never branch on the storage encoding.
package vector

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/pgvector/pgvector-go"
)

// DecodeError reports a stored embedding that cannot be interpreted as a vector.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode embedding: %s: %v", e.Reason, e.Err)
	}
	return "decode embedding: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode returns the vector held by raw. A nil raw value or a blank string
// decodes to a nil vector without error: the profile simply has no embedding.
func Decode(raw any) ([]float32, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []float32:
		return checkFinite(append([]float32(nil), v...))
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return checkFinite(out)
	case []any:
		return decodeAnySlice(v)
	case pgvector.Vector:
		return checkFinite(append([]float32(nil), v.Slice()...))
	case *pgvector.Vector:
		if v == nil {
			return nil, nil
		}
		return checkFinite(append([]float32(nil), v.Slice()...))
	case json.RawMessage:
		return decodeText(string(v), true)
	case []byte:
		return decodeText(string(v), true)
	case string:
		return decodeText(v, true)
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unsupported type %T", raw)}
	}
}

// Encode renders vec in the pgvector text form accepted by Decode.
func Encode(vec []float32) string {
	return pgvector.NewVector(vec).String()
}

// CheckDimension verifies vec has exactly dim elements.
func CheckDimension(vec []float32, dim int) error {
	if len(vec) == 0 {
		return fmt.Errorf("embedding cannot be empty")
	}
	if len(vec) != dim {
		return fmt.Errorf("embedding dimension mismatch: got %d want %d", len(vec), dim)
	}
	return nil
}

func decodeText(s string, allowQuoted bool) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil, nil
	}
	// A JSON string wrapping the array, e.g. "\"[0.1,0.2]\"".
	if allowQuoted && strings.HasPrefix(s, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			return nil, &DecodeError{Reason: "invalid quoted vector", Err: err}
		}
		return decodeText(inner, false)
	}
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, &DecodeError{Reason: "vector text must be enclosed in brackets"}
	}
	compact := strings.Join(strings.Fields(s), "")
	if compact == "[]" {
		return []float32{}, nil
	}

	var v pgvector.Vector
	if err := v.Scan(compact); err != nil {
		return nil, &DecodeError{Reason: "invalid vector element", Err: err}
	}
	return checkFinite(v.Slice())
}

func decodeAnySlice(items []any) ([]float32, error) {
	out := make([]float32, len(items))
	for i, item := range items {
		switch n := item.(type) {
		case float64:
			out[i] = float32(n)
		case float32:
			out[i] = n
		case int:
			out[i] = float32(n)
		case int64:
			out[i] = float32(n)
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return nil, &DecodeError{Reason: fmt.Sprintf("element %d is not a number", i), Err: err}
			}
			out[i] = float32(f)
		default:
			return nil, &DecodeError{Reason: fmt.Sprintf("element %d has type %T", i, item)}
		}
	}
	return checkFinite(out)
}

func checkFinite(vec []float32) ([]float32, error) {
	for i, f := range vec {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, &DecodeError{Reason: fmt.Sprintf("element %d is not finite", i)}
		}
	}
	return vec, nil
}
