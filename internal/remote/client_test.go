package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetdesk/internal/apperr"
	"vetdesk/internal/models"
	"vetdesk/internal/upload"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestAuthHeaders(t *testing.T) {
	tests := []struct {
		name       string
		cred       Credential
		wantAuth   string
		wantAPIKey string
	}{
		{"Bearer Only", Credential{BearerToken: "tok"}, "Bearer tok", ""},
		{"API Key Only", Credential{APIKey: "key"}, "", "key"},
		{"Both Forwarded", Credential{BearerToken: "tok", APIKey: "key"}, "Bearer tok", "key"},
		{"Neither", Credential{}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotKey, gotReqID string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotKey = r.Header.Get("X-API-Key")
				gotReqID = r.Header.Get("X-Request-ID")
				writeJSON(w, http.StatusOK, models.OK(models.Health{Status: "ok"}))
			}))
			defer srv.Close()

			_, err := New(srv.URL, tt.cred).Health(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantAuth, gotAuth)
			assert.Equal(t, tt.wantAPIKey, gotKey)
			assert.NotEmpty(t, gotReqID)
		})
	}
}

func TestAuthTransportDoesNotMutateRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	rt := &AuthTransport{Credential: Credential{BearerToken: "tok"}}
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestValidateEmails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/email-validation/validate-emails", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body struct {
			Emails []string `json:"emails"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"a@x.com", "b@y.com"}, body.Emails)

		writeJSON(w, http.StatusOK, models.OK(models.BatchResponse{
			Results: []models.ValidationResult{
				{Email: "a@x.com", Valid: true, Score: 90},
				{Email: "b@y.com", Valid: false, Score: 10, Reason: []string{"no_mx"}},
			},
			Processing: models.Processing{TotalSubmitted: 2, Processed: 2},
		}))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, Credential{}).ValidateEmails(context.Background(), []string{"a@x.com", "b@y.com"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, []string{"no_mx"}, resp.Results[1].Reason)
	assert.Equal(t, 2, resp.Processing.Processed)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind apperr.SubmitKind
		wantMsg  string
	}{
		{"Unauthorized", http.StatusUnauthorized, `{"success":false,"error":"Invalid token"}`, apperr.ServerRejected, "Invalid token"},
		{"Bad Request Plain Text", http.StatusBadRequest, "Emails array is required", apperr.ServerRejected, "Emails array is required"},
		{"Unavailable", http.StatusServiceUnavailable, `{"success":false,"error":"maintenance"}`, apperr.ServerError, "maintenance"},
		{"Internal Empty Body", http.StatusInternalServerError, "", apperr.ServerError, "Internal Server Error"},
		{"OK But Unsuccessful", http.StatusOK, `{"success":false,"error":"quota exceeded"}`, apperr.ServerRejected, "quota exceeded"},
		{"OK Garbage", http.StatusOK, `<html>`, apperr.ServerError, "malformed"},
		{"OK Without Data", http.StatusOK, `{"success":true}`, apperr.ServerError, "no data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL, Credential{}).ValidateEmails(context.Background(), []string{"a@x.com"})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestNetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, Credential{}).ValidateEmails(context.Background(), []string{"a@x.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetworkUnavailable)
}

func TestTimeoutIsNetworkUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, Credential{}, WithTimeout(50*time.Millisecond))
	_, err := c.ValidateEmails(context.Background(), []string{"a@x.com"})
	require.Error(t, err)
	assert.Equal(t, apperr.NetworkUnavailable, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "in time")
}

func TestValidateCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/files/validate-csv", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "false", r.FormValue("immediate"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "list.csv", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "email\na@x.com\n", string(data))

		writeJSON(w, http.StatusOK, models.OK(map[string]any{
			"results": []models.ValidationResult{{Email: "a@x.com", Valid: true, Score: 60}},
		}))
	}))
	defer srv.Close()

	f := upload.UploadedFile{Name: "list.csv", Size: 14, Body: strings.NewReader("email\na@x.com\n")}
	rs, err := New(srv.URL, Credential{BearerToken: "tok"}).ValidateCSV(context.Background(), f, false)
	require.NoError(t, err)
	require.Len(t, rs.Results, 1)
	assert.Equal(t, models.Statistics{Total: 1, Risky: 1}, rs.Statistics)
}

func TestExportCSV(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var body struct {
			Results []models.ValidationResult `json:"results"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Results, 1)
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, "Email\na@x.com\n")
	}))
	defer srv.Close()

	data, err := New(srv.URL, Credential{}).ExportCSV(context.Background(),
		[]models.ValidationResult{{Email: "a@x.com"}})
	require.NoError(t, err)
	assert.Equal(t, "Email\na@x.com\n", string(data))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestValidationLogsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, models.OK(models.LogPage{Total: 30, Logs: []models.ValidationLog{{Email: "a@x.com"}}}))
	}))
	defer srv.Close()

	page, err := New(srv.URL+"/", Credential{}).ValidationLogs(context.Background(), 2, 25)
	require.NoError(t, err)
	assert.Equal(t, 30, page.Total)
	assert.Len(t, page.Logs, 1)
}
