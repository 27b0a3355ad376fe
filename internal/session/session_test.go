package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetdesk/internal/apperr"
	"vetdesk/internal/batch"
	"vetdesk/internal/models"
	"vetdesk/internal/remote"
	"vetdesk/internal/upload"
)

// fakeService scores addresses by their local part so tests can pick tiers:
// "valid*" → 95, "risky*" → 65, anything else invalid.
type fakeService struct {
	calls   int32
	gate    chan struct{}
	status  atomic.Int32
	entered chan struct{}
}

func remoteCred() remote.Credential {
	return remote.Credential{BearerToken: "test-token"}
}

func score(email string) models.ValidationResult {
	switch {
	case strings.HasPrefix(email, "valid"):
		return models.ValidationResult{Email: email, Valid: true, Score: 95}
	case strings.HasPrefix(email, "risky"):
		return models.ValidationResult{Email: email, Valid: true, Score: 65, Reason: []string{"role"}}
	}
	return models.ValidationResult{Email: email, Valid: false, Score: 10, Reason: []string{"no_mx"}}
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&f.calls, 1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	w.Header().Set("Content-Type", "application/json")
	if status := int(f.status.Load()); status != 0 {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(models.Failure("nope"))
		return
	}

	switch r.URL.Path {
	case "/api/email-validation/validate-emails":
		var body struct {
			Emails []string `json:"emails"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		var out []models.ValidationResult
		for _, e := range body.Emails {
			out = append(out, score(e))
		}
		json.NewEncoder(w).Encode(models.OK(models.BatchResponse{Results: out}))
	case "/api/files/validate-csv":
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		emails, _ := upload.ReadEmails(file)
		var out []models.ValidationResult
		for _, e := range emails {
			out = append(out, score(e))
		}
		json.NewEncoder(w).Encode(models.OK(map[string]any{"results": out}))
	case "/api/email-validation/validate-email":
		var body struct {
			Email string `json:"email"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(models.OK(score(body.Email)))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newSession(t *testing.T, svc *fakeService, opts Options) *Session {
	t.Helper()
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	return New(srv.URL, remoteCred(), opts)
}

func TestSubmitPublishesResults(t *testing.T) {
	svc := &fakeService{}
	s := newSession(t, svc, Options{})

	rs, err := s.Submit(context.Background(), "valid1@x.com, risky@x.com\nbad@x.com;valid1@x.com")
	require.NoError(t, err)
	assert.Len(t, rs.Results, 3)
	assert.Equal(t, models.Statistics{Total: 3, Valid: 1, Risky: 1, Invalid: 1}, s.Statistics())

	state, lastErr := s.State()
	assert.Equal(t, Succeeded, state)
	assert.NoError(t, lastErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&svc.calls))
}

func TestInputErrorsMakeNoCall(t *testing.T) {
	svc := &fakeService{}
	s := newSession(t, svc, Options{})

	_, err := s.Submit(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrEmptyBatch)

	var sb strings.Builder
	for i := 0; i <= batch.MaxBatchSize; i++ {
		fmt.Fprintf(&sb, "u%d@x.com\n", i)
	}
	_, err = s.Submit(context.Background(), sb.String())
	assert.ErrorIs(t, err, apperr.ErrBatchTooLarge)

	_, err = s.SubmitFile(context.Background(), upload.UploadedFile{Name: "big.csv", Size: 101 << 20}, true)
	assert.ErrorIs(t, err, apperr.ErrFileTooLarge)

	_, err = s.SubmitFile(context.Background(), upload.UploadedFile{Name: "list.txt", Size: 1}, true)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)

	_, err = s.Export(context.Background(), ExportRemoteCSV)
	assert.ErrorIs(t, err, apperr.ErrEmptyResultSet)

	assert.Zero(t, atomic.LoadInt32(&svc.calls))
	state, _ := s.State()
	assert.Equal(t, Idle, state)
}

func TestConcurrentSubmitRejectedLocally(t *testing.T) {
	svc := &fakeService{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := newSession(t, svc, Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = s.Submit(context.Background(), "valid@x.com")
	}()

	<-svc.entered
	state, _ := s.State()
	assert.Equal(t, Submitting, state)

	_, err := s.Submit(context.Background(), "risky@x.com")
	assert.ErrorIs(t, err, apperr.ErrBusy)
	_, err = s.SubmitFile(context.Background(), upload.UploadedFile{Name: "a.csv", Size: 1, Body: strings.NewReader("a@x.com")}, true)
	assert.ErrorIs(t, err, apperr.ErrBusy)

	close(svc.gate)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&svc.calls))

	state, _ = s.State()
	assert.Equal(t, Succeeded, state)
	assert.Equal(t, "valid@x.com", s.Results().Results[0].Email)
}

func TestFailureKeepsPreviousResults(t *testing.T) {
	svc := &fakeService{}
	s := newSession(t, svc, Options{})

	_, err := s.Submit(context.Background(), "valid@x.com\nrisky@x.com")
	require.NoError(t, err)

	svc.status.Store(http.StatusInternalServerError)
	_, err = s.Submit(context.Background(), "other@x.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrServerError)

	state, lastErr := s.State()
	assert.Equal(t, Failed, state)
	assert.ErrorIs(t, lastErr, apperr.ErrServerError)
	assert.Equal(t, 2, s.Statistics().Total)

	// failed is a resting state: the next submission goes through
	svc.status.Store(0)
	_, err = s.Submit(context.Background(), "valid2@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Statistics().Total)
}

func TestUnauthenticatedIsServerRejected(t *testing.T) {
	svc := &fakeService{}
	svc.status.Store(http.StatusUnauthorized)
	s := newSession(t, svc, Options{})

	_, err := s.Submit(context.Background(), "valid@x.com")
	assert.ErrorIs(t, err, apperr.ErrServerRejected)
}

func TestTimeoutFailsAsNetworkUnavailable(t *testing.T) {
	svc := &fakeService{gate: make(chan struct{})}
	defer close(svc.gate)
	s := newSession(t, svc, Options{Timeout: 50 * time.Millisecond})

	_, err := s.Submit(context.Background(), "valid@x.com")
	assert.ErrorIs(t, err, apperr.ErrNetworkUnavailable)

	state, _ := s.State()
	assert.Equal(t, Failed, state)
}

func TestSubmitFile(t *testing.T) {
	s := newSession(t, &fakeService{}, Options{})

	body := "email\nvalid@x.com\nrisky@x.com\n"
	f := upload.UploadedFile{Name: "List.CSV", Size: int64(len(body)), Body: strings.NewReader(body)}
	rs, err := s.SubmitFile(context.Background(), f, true)
	require.NoError(t, err)
	assert.Equal(t, models.Statistics{Total: 2, Valid: 1, Risky: 1}, rs.Statistics)
	assert.Equal(t, 2, s.Statistics().Total)
}

func TestExportSnapshotAndRoundTrip(t *testing.T) {
	s := newSession(t, &fakeService{}, Options{})

	_, err := s.Submit(context.Background(), "valid@x.com, risky@x.com, bad@x.com")
	require.NoError(t, err)
	before := s.Results()

	f, err := s.Export(context.Background(), ExportLocal)
	require.NoError(t, err)
	s.Clear()
	assert.Equal(t, 0, s.Statistics().Total)

	// re-ingest the produced file
	rs, err := s.SubmitFile(context.Background(),
		upload.UploadedFile{Name: f.Name, Size: int64(len(f.Data)), Body: strings.NewReader(string(f.Data))}, true)
	require.NoError(t, err)

	tiers := func(results []models.ValidationResult) map[string]models.Tier {
		m := map[string]models.Tier{}
		for _, r := range results {
			m[r.Email] = r.Tier()
		}
		return m
	}
	assert.Equal(t, tiers(before.Results), tiers(rs.Results))
}

func TestSessionsAreIsolated(t *testing.T) {
	svc := &fakeService{}
	a := newSession(t, svc, Options{})
	b := newSession(t, svc, Options{})

	_, err := a.Submit(context.Background(), "valid@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Statistics().Total)
	assert.Equal(t, 0, b.Statistics().Total)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCheckDoesNotTouchStore(t *testing.T) {
	s := newSession(t, &fakeService{}, Options{})
	r, err := s.Check(context.Background(), "risky@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.TierRisky, r.Tier())
	assert.Equal(t, 0, s.Statistics().Total)
}

func TestRedisGuardAcrossProcesses(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := &fakeService{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	// two processes sharing one session ID
	tab1 := New(srv.URL, remoteCred(), Options{ID: "shared", Redis: rdb})
	tab2 := New(srv.URL, remoteCred(), Options{ID: "shared", Redis: rdb})

	done := make(chan error, 1)
	go func() {
		_, err := tab1.Submit(context.Background(), "valid@x.com")
		done <- err
	}()
	<-svc.entered

	_, err := tab2.Submit(context.Background(), "valid@x.com")
	assert.ErrorIs(t, err, apperr.ErrBusy)
	state, _ := tab2.State()
	assert.Equal(t, Idle, state)

	close(svc.gate)
	require.NoError(t, <-done)
	assert.False(t, mr.Exists("vetdesk:submit:shared"))

	_, err = tab2.Submit(context.Background(), "valid@x.com")
	require.NoError(t, err)
}

type panicValidator struct{}

func (panicValidator) ValidateEmails(ctx context.Context, emails []string) (models.BatchResponse, error) {
	panic("boom")
}

func (panicValidator) ValidateCSV(ctx context.Context, f upload.UploadedFile, immediate bool) (models.ResultSet, error) {
	panic("boom")
}

func TestPanicLeavesSubmitterUsable(t *testing.T) {
	sub := NewSubmitter(panicValidator{}, nil, nil, time.Second)

	assert.Panics(t, func() {
		sub.SubmitBatch(context.Background(), batch.Batch{"a@x.com"})
	})
	state, err := sub.State()
	assert.Equal(t, Failed, state)
	assert.Error(t, err)
}

func TestLoadRecomputesStatistics(t *testing.T) {
	s := newSession(t, &fakeService{}, Options{})
	rs := s.Load([]models.ValidationResult{
		{Email: "a@x.com", Valid: true, Score: 99},
		{Email: "b@x.com", Valid: false, Score: 99},
	})
	assert.Equal(t, models.Statistics{Total: 2, Valid: 1, Invalid: 1}, rs.Statistics)
	assert.Equal(t, rs.Statistics, s.Statistics())

	f, err := s.Export(context.Background(), ExportLocal)
	require.NoError(t, err)
	assert.Contains(t, string(f.Data), "b@x.com,Invalid,99")
}
