package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vetdesk/internal/apperr"
	"vetdesk/internal/batch"
	"vetdesk/internal/guard"
	"vetdesk/internal/models"
	"vetdesk/internal/pkg/logger"
	"vetdesk/internal/results"
	"vetdesk/internal/upload"
)

// State of the submitter. Succeeded and Failed accept a new submission just
// like Idle; only Submitting turns one away.
type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Validator is the remote side of a submission.
type Validator interface {
	ValidateEmails(ctx context.Context, emails []string) (models.BatchResponse, error)
	ValidateCSV(ctx context.Context, f upload.UploadedFile, immediate bool) (models.ResultSet, error)
}

// Submitter sends batches one at a time and publishes successful results to
// the session's store.
type Submitter struct {
	remote  Validator
	store   *results.Store
	lock    guard.Lock
	timeout time.Duration

	mu      sync.Mutex
	state   State
	lastErr error
}

func NewSubmitter(remote Validator, store *results.Store, lock guard.Lock, timeout time.Duration) *Submitter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Submitter{remote: remote, store: store, lock: lock, timeout: timeout}
}

// State reports the current state and the error of the last failed attempt.
func (s *Submitter) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.lastErr
}

// begin moves to Submitting or returns ErrBusy. The returned func must be
// deferred; it records the outcome and releases the cross-process lock.
func (s *Submitter) begin(ctx context.Context) (func(err *error), error) {
	s.mu.Lock()
	if s.state == Submitting {
		s.mu.Unlock()
		return nil, apperr.ErrBusy
	}
	prev, prevErr := s.state, s.lastErr
	s.state = Submitting
	s.mu.Unlock()

	restore := func() {
		s.mu.Lock()
		s.state, s.lastErr = prev, prevErr
		s.mu.Unlock()
	}

	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx)
		if err != nil {
			restore()
			return nil, &apperr.SubmitError{Kind: apperr.NetworkUnavailable, Message: "submission lock unavailable", Err: err}
		}
		if !ok {
			restore()
			return nil, apperr.ErrBusy
		}
	}

	return func(errp *error) {
		r := recover()
		if s.lock != nil {
			if err := s.lock.Release(context.Background()); err != nil {
				logger.Warn("release submission lock", "error", err)
			}
		}

		s.mu.Lock()
		switch {
		case r != nil:
			s.state, s.lastErr = Failed, fmt.Errorf("submission panicked: %v", r)
		case *errp != nil:
			s.state, s.lastErr = Failed, *errp
		default:
			s.state, s.lastErr = Succeeded, nil
		}
		s.mu.Unlock()

		if r != nil {
			panic(r)
		}
	}, nil
}

// SubmitBatch validates b in a single remote call.
func (s *Submitter) SubmitBatch(ctx context.Context, b batch.Batch) (rs models.ResultSet, err error) {
	if err := b.Validate(); err != nil {
		return rs, err
	}

	done, err := s.begin(ctx)
	if err != nil {
		return rs, err
	}
	defer done(&err)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.remote.ValidateEmails(ctx, b)
	if err != nil {
		logger.Warn("batch submission failed", "size", len(b), "kind", apperr.KindOf(err), "error", err)
		return rs, err
	}

	rs = models.NewResultSet(resp.Results)
	s.store.Replace(rs)
	logger.Info("batch validated", "size", len(b), "results", len(rs.Results),
		"duplicates_removed", resp.Processing.DuplicatesRemoved, "took", time.Since(start))
	return rs, nil
}

// SubmitFile admits f and hands it to the remote service whole.
func (s *Submitter) SubmitFile(ctx context.Context, f upload.UploadedFile, immediate bool) (rs models.ResultSet, err error) {
	if err := upload.Admit(f); err != nil {
		return rs, err
	}

	done, err := s.begin(ctx)
	if err != nil {
		return rs, err
	}
	defer done(&err)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rs, err = s.remote.ValidateCSV(ctx, f, immediate)
	if err != nil {
		logger.Warn("csv submission failed", "file", f.Name, "kind", apperr.KindOf(err), "error", err)
		return models.ResultSet{}, err
	}

	rs = models.NewResultSet(rs.Results)
	s.store.Replace(rs)
	logger.Info("csv validated", "file", f.Name, "bytes", f.Size, "results", len(rs.Results))
	return rs, nil
}
