package types

// GenerationRequest is a provider-neutral chat request.
// Messages are ordered oldest first; the last one is the new user turn.
type GenerationRequest struct {
	System          string  `json:"system"`
	Messages        []Turn  `json:"messages"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}
