// Package session ties one user's credential, result store, submitter and
// exporter together. Nothing here is global: two sessions never see each
// other's results.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vetdesk/internal/batch"
	"vetdesk/internal/export"
	"vetdesk/internal/guard"
	"vetdesk/internal/models"
	"vetdesk/internal/remote"
	"vetdesk/internal/results"
	"vetdesk/internal/upload"
)

// DefaultTimeout bounds one submission. A hung remote call fails with
// NetworkUnavailable once it passes.
const DefaultTimeout = 60 * time.Second

// ExportMode picks who renders an export.
type ExportMode int

const (
	ExportLocal ExportMode = iota
	ExportRemoteCSV
	ExportRemoteExcel
)

type Options struct {
	// ID identifies the session; a random one is generated when empty.
	ID      string
	Timeout time.Duration
	// Redis, when set, guards submissions of the same session ID across
	// processes.
	Redis  *redis.Client
	Remote []remote.Option
	Now    func() time.Time
}

type Session struct {
	ID         string
	Credential remote.Credential

	client    *remote.Client
	results   *results.Store
	submitter *Submitter
	exports   *export.Codec
}

func New(baseURL string, cred remote.Credential, opts Options) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := remote.New(baseURL, cred, append([]remote.Option{remote.WithTimeout(timeout)}, opts.Remote...)...)
	store := results.New()

	var lock guard.Lock
	if opts.Redis != nil {
		// the lock outlives the longest submission
		lock = guard.NewSessionLock(opts.Redis, id, timeout+30*time.Second)
	}

	return &Session{
		ID:         id,
		Credential: cred,
		client:     client,
		results:    store,
		submitter:  NewSubmitter(client, store, lock, timeout),
		exports:    export.NewCodec(client, export.NewNamer(opts.Now)),
	}
}

// Submit normalizes pasted text and validates it as one batch.
func (s *Session) Submit(ctx context.Context, raw string) (models.ResultSet, error) {
	b, err := batch.Normalize(raw)
	if err != nil {
		return models.ResultSet{}, err
	}
	return s.submitter.SubmitBatch(ctx, b)
}

func (s *Session) SubmitBatch(ctx context.Context, b batch.Batch) (models.ResultSet, error) {
	return s.submitter.SubmitBatch(ctx, b)
}

func (s *Session) SubmitFile(ctx context.Context, f upload.UploadedFile, immediate bool) (models.ResultSet, error) {
	return s.submitter.SubmitFile(ctx, f, immediate)
}

// Check validates one address without touching the result store.
func (s *Session) Check(ctx context.Context, email string) (models.ValidationResult, error) {
	return s.client.ValidateEmail(ctx, email)
}

func (s *Session) State() (State, error) {
	return s.submitter.State()
}

func (s *Session) Statistics() models.Statistics {
	return s.results.Statistics()
}

// Results returns a snapshot of the current result set.
func (s *Session) Results() models.ResultSet {
	return s.results.ResultSet()
}

// Load replaces the current results with a previously saved list, e.g. one
// read back from disk. Statistics are recomputed locally.
func (s *Session) Load(results []models.ValidationResult) models.ResultSet {
	rs := models.NewResultSet(append([]models.ValidationResult(nil), results...))
	s.results.Replace(rs)
	return rs
}

// Clear drops the current results ("Clear Results").
func (s *Session) Clear() {
	s.results.Clear()
}

// Export renders the results as they are at call time. A Clear or a new
// submission afterwards does not affect the file being produced.
func (s *Session) Export(ctx context.Context, mode ExportMode) (export.File, error) {
	snapshot := s.results.Snapshot()
	switch mode {
	case ExportLocal:
		return s.exports.Export(snapshot)
	case ExportRemoteCSV:
		return s.exports.RequestExport(ctx, snapshot)
	case ExportRemoteExcel:
		return s.exports.RequestExcel(ctx, snapshot)
	}
	return export.File{}, fmt.Errorf("unknown export mode %d", mode)
}

func (s *Session) ValidationLogs(ctx context.Context, page, limit int) (models.LogPage, error) {
	return s.client.ValidationLogs(ctx, page, limit)
}

func (s *Session) Health(ctx context.Context) (models.Health, error) {
	return s.client.Health(ctx)
}
