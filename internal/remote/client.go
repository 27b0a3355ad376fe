// Package remote talks to the email verification service.
//
// Every call is a single attempt. Failures come back as *apperr.SubmitError:
// transport problems and timeouts are NetworkUnavailable, 4xx responses are
// ServerRejected and 5xx responses are ServerError.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vetdesk/internal/apperr"
	"vetdesk/internal/models"
	"vetdesk/internal/upload"
)

// HTTPDoer is the interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	DefaultTimeout = 60 * time.Second

	// maxErrorBody bounds how much of a failed response is read for a message.
	maxErrorBody = 64 << 10
)

// Client is bound to one credential; sessions never share a Client.
type Client struct {
	baseURL string
	doer    HTTPDoer
	timeout time.Duration
}

type Option func(*clientOptions)

type clientOptions struct {
	transport http.RoundTripper
	timeout   time.Duration
}

// WithTransport sets the RoundTripper under the auth decorator.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithTimeout bounds each call. A call that runs past it fails with
// NetworkUnavailable.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// New builds a Client for baseURL authenticating with cred.
func New(baseURL string, cred Credential, opts ...Option) *Client {
	o := clientOptions{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer: &http.Client{
			Transport: &AuthTransport{Base: o.transport, Credential: cred},
		},
		timeout: o.timeout,
	}
}

// ValidateEmail checks a single address.
func (c *Client) ValidateEmail(ctx context.Context, email string) (models.ValidationResult, error) {
	var out models.ValidationResult
	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return out, err
	}
	err = doJSON(ctx, c, http.MethodPost, "/api/email-validation/validate-email", body, &out)
	return out, err
}

// ValidateEmails submits a whole batch in one call.
func (c *Client) ValidateEmails(ctx context.Context, emails []string) (models.BatchResponse, error) {
	var out models.BatchResponse
	body, err := json.Marshal(map[string][]string{"emails": emails})
	if err != nil {
		return out, err
	}
	err = doJSON(ctx, c, http.MethodPost, "/api/email-validation/validate-emails", body, &out)
	return out, err
}

// ValidateCSV streams the file as multipart form data. Parsing, deduplication
// and validation of its rows happen remotely.
func (c *Client) ValidateCSV(ctx context.Context, f upload.UploadedFile, immediate bool) (models.ResultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", f.Name)
		if err == nil {
			_, err = io.Copy(part, f.Body)
		}
		if err == nil {
			err = mw.WriteField("immediate", strconv.FormatBool(immediate))
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	resp, err := c.send(ctx, http.MethodPost, "/api/files/validate-csv", pr, mw.FormDataContentType())
	if err != nil {
		pr.CloseWithError(err)
		return models.ResultSet{}, err
	}
	defer resp.Body.Close()

	var data struct {
		Results []models.ValidationResult `json:"results"`
	}
	if err := decodeEnvelope(resp, &data); err != nil {
		return models.ResultSet{}, err
	}
	return models.NewResultSet(data.Results), nil
}

// ExportCSV asks the remote to render results as CSV.
func (c *Client) ExportCSV(ctx context.Context, results []models.ValidationResult) ([]byte, error) {
	return c.exportBlob(ctx, "/api/files/export-csv", results)
}

// ExportExcel asks the remote to render results as a spreadsheet.
func (c *Client) ExportExcel(ctx context.Context, results []models.ValidationResult) ([]byte, error) {
	return c.exportBlob(ctx, "/api/files/export-excel", results)
}

func (c *Client) exportBlob(ctx context.Context, path string, results []models.ValidationResult) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(map[string][]models.ValidationResult{"results": results})
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}
	return data, nil
}

// ValidationLogs pages through the remote's validation history.
func (c *Client) ValidationLogs(ctx context.Context, page, limit int) (models.LogPage, error) {
	var out models.LogPage
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	err := doJSON(ctx, c, http.MethodGet, "/api/analytics/validation-logs?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) (models.Health, error) {
	var out models.Health
	err := doJSON(ctx, c, http.MethodGet, "/api/email-validation/health", nil, &out)
	return out, err
}

func doJSON[T any](ctx context.Context, c *Client, method, path string, body []byte, dst *T) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	resp, err := c.send(ctx, method, path, r, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp, dst)
}

// send performs the request and turns transport failures and non-2xx
// responses into SubmitErrors. On success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	msg := errorMessage(resp)
	kind := apperr.ServerRejected
	if resp.StatusCode >= 500 {
		kind = apperr.ServerError
	}
	return nil, &apperr.SubmitError{Kind: kind, Status: resp.StatusCode, Message: msg}
}

func networkError(err error) error {
	msg := "the verification service could not be reached"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "the verification service did not answer in time"
	}
	return &apperr.SubmitError{Kind: apperr.NetworkUnavailable, Message: msg, Err: err}
}

func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env models.Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 200 {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func decodeEnvelope[T any](resp *http.Response, dst *T) error {
	var env models.Envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return networkError(err)
		}
		return &apperr.SubmitError{Kind: apperr.ServerError, Status: resp.StatusCode,
			Message: "malformed response from the verification service", Err: err}
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "request failed"
		}
		return &apperr.SubmitError{Kind: apperr.ServerRejected, Status: resp.StatusCode, Message: msg}
	}
	if env.Data == nil {
		return &apperr.SubmitError{Kind: apperr.ServerError, Status: resp.StatusCode,
			Message: "response carried no data"}
	}
	*dst = *env.Data
	return nil
}
