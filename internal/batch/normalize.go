package batch

import (
	"strings"

	"vetdesk/internal/apperr"
)

// MaxBatchSize is the hard cap of one submission. One call always suffices, so
// batches are never chunked.
const MaxBatchSize = 1000

// Batch is an ordered, deduplicated list of candidate addresses.
type Batch []string

// Normalize turns pasted text into a Batch. Pieces are split on newlines,
// commas and semicolons; anything without an '@' is dropped. Oversized input is
// rejected, never truncated.
func Normalize(raw string) (Batch, error) {
	pieces := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == ';'
	})

	seen := make(map[string]struct{}, len(pieces))
	out := make(Batch, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" || !strings.Contains(p, "@") {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// FromList normalizes an already split list, e.g. rows read from a CSV file.
func FromList(emails []string) (Batch, error) {
	return Normalize(strings.Join(emails, "\n"))
}

// Validate checks the batch invariants: 1..MaxBatchSize trimmed, unique
// candidates that contain '@'.
func (b Batch) Validate() error {
	if len(b) == 0 {
		return apperr.ErrEmptyBatch
	}
	if len(b) > MaxBatchSize {
		return apperr.Input(apperr.BatchTooLarge,
			"maximum %d emails allowed per batch, got %d", MaxBatchSize, len(b))
	}

	seen := make(map[string]struct{}, len(b))
	for _, e := range b {
		if e == "" || e != strings.TrimSpace(e) || !strings.Contains(e, "@") {
			return apperr.Input(apperr.InvalidCandidate, "invalid candidate %q", e)
		}
		if _, dup := seen[e]; dup {
			return apperr.Input(apperr.InvalidCandidate, "duplicate candidate %q", e)
		}
		seen[e] = struct{}{}
	}
	return nil
}
