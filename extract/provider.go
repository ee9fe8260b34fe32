package extract

import "context"

// Provider is a generative-language backend. Generate returns the raw text
// of one completion. Implementations wrap credential refusals with
// RejectedCredential so the pipeline can stop early.
type Provider interface {
	Name() string
	Models() []string
	Generate(ctx context.Context, credential, model, prompt string) (string, error)
}

// Candidates puts preferred first, then the fallback models, skipping blanks
// and duplicates.
func Candidates(preferred string, fallback []string) []string {
	seen := make(map[string]bool, len(fallback)+1)
	out := make([]string, 0, len(fallback)+1)
	for _, m := range append([]string{preferred}, fallback...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
