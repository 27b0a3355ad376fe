package stubapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vetdesk/internal/apperr"
	"vetdesk/internal/batch"
	"vetdesk/internal/export"
	"vetdesk/internal/models"
	"vetdesk/internal/pkg/logger"
	"vetdesk/internal/store"
	"vetdesk/internal/upload"
	"vetdesk/internal/validator"
)

// multipart framing on top of the file itself
const formOverhead = 1 << 20

func (s *Server) validateEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Email) == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	results := s.checkAll(r.Context(), []string{body.Email})
	writeJSON(w, http.StatusOK, models.OK(results[0]))
}

func (s *Server) validateEmails(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Emails []string `json:"emails"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(body.Emails) == 0 {
		writeError(w, http.StatusBadRequest, "Emails array is required")
		return
	}

	unique := dedupe(body.Emails, false)
	if len(unique) > batch.MaxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d emails allowed per request", batch.MaxBatchSize))
		return
	}

	writeJSON(w, http.StatusOK, models.OK(s.batchResponse(r, body.Emails, unique, false)))
}

func (s *Server) validateCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxFileSize+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "File size exceeds the 100MB limit")
			return
		}
		writeError(w, http.StatusBadRequest, "File too large or malformed")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "CSV file is required")
		return
	}
	defer file.Close()

	if err := upload.Admit(upload.UploadedFile{Name: header.Filename, Size: header.Size}); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, apperr.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, err.Error())
		return
	}

	emails, err := upload.ReadEmails(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid CSV format")
		return
	}
	unique := dedupe(emails, true)
	if len(unique) == 0 {
		writeError(w, http.StatusBadRequest, "No emails found in CSV")
		return
	}
	if len(unique) > MaxCSVRows {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d emails allowed per file", MaxCSVRows))
		return
	}

	immediate, _ := strconv.ParseBool(r.FormValue("immediate"))
	resp := s.batchResponse(r, emails, unique, immediate)
	logger.Info("csv validated", "file", header.Filename, "rows", len(emails), "unique", len(unique))
	writeJSON(w, http.StatusOK, models.OK(resp))
}

func (s *Server) batchResponse(r *http.Request, submitted, unique []string, immediate bool) models.BatchResponse {
	results := s.checkAll(r.Context(), unique)

	stats := models.Statistics{Total: len(results)}
	for _, res := range results {
		if res.Valid {
			stats.Valid++
		} else {
			stats.Invalid++
		}
	}

	return models.BatchResponse{
		Results: results,
		Statistics: models.RemoteStatistics{
			Total:             stats.Total,
			Valid:             stats.Valid,
			Invalid:           stats.Invalid,
			ValidPercentage:   stats.ValidPercentage(),
			InvalidPercentage: stats.InvalidPercentage(),
		},
		Processing: models.Processing{
			TotalSubmitted:    len(submitted),
			DuplicatesRemoved: len(submitted) - len(unique),
			Processed:         len(results),
			Immediate:         immediate,
		},
	}
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Results []models.ValidationResult `json:"results"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.Results == nil {
		writeError(w, http.StatusBadRequest, "Results are required")
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeCSV)
	w.Header().Set("Content-Disposition", `attachment; filename="validation-results.csv"`)
	if err := export.Encode(w, body.Results); err != nil {
		logger.Error("export csv", "error", err)
	}
}

func (s *Server) exportExcel(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, "Excel export is not available on this server")
}

func (s *Server) validationLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = store.DefaultPageSize
	}

	logs, err := s.opts.Logs.List(r.Context(), page, limit)
	if err != nil {
		logger.Error("list validation logs", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load validation logs")
		return
	}
	writeJSON(w, http.StatusOK, models.OK(logs))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	h := models.Health{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Seconds(),
		Version:   s.opts.Version,
		Database:  s.opts.Database,
	}
	if err := s.opts.Logs.Ping(r.Context()); err != nil {
		h.Status = "degraded"
		h.Database = "disconnected"
	}
	if s.opts.CacheSize != nil {
		h.Cache = &models.CacheStats{Size: s.opts.CacheSize(), HitRate: s.opts.Checker.HitRate()}
	}
	writeJSON(w, http.StatusOK, models.OK(h))
}

// dedupe trims and drops blanks and repeats, keeping the first spelling of
// each address as submitted. With fold set, repeats are matched ignoring
// case.
func dedupe(emails []string, fold bool) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		key := e
		if fold {
			key = validator.Key(e)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
