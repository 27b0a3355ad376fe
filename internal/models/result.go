package models

import (
	"fmt"
	"time"
)

// Tier is the display classification derived from (valid, score).
// It is never stored by the remote service.
type Tier string

const (
	TierValid   Tier = "valid"
	TierRisky   Tier = "risky"
	TierInvalid Tier = "invalid"
)

// Tier thresholds.
const (
	ValidScoreMin = 80
	RiskyScoreMin = 50
)

// Classify is the only tier rule. Summary counts, row labels and export all go
// through it.
func Classify(valid bool, score int) Tier {
	switch {
	case valid && score >= ValidScoreMin:
		return TierValid
	case !valid || score < RiskyScoreMin:
		return TierInvalid
	default:
		return TierRisky
	}
}

// Label is the capitalised form shown in tables and exports.
func (t Tier) Label() string {
	switch t {
	case TierValid:
		return "Valid"
	case TierRisky:
		return "Risky"
	case TierInvalid:
		return "Invalid"
	}
	return string(t)
}

// Details holds the per-check flags reported by the remote service.
type Details struct {
	Format       bool  `json:"format"`
	MX           bool  `json:"mx"`
	SMTP         *bool `json:"smtp,omitempty"`
	Disposable   bool  `json:"disposable"`
	Role         bool  `json:"role"`
	Typo         bool  `json:"typo"`
	Suspicious   bool  `json:"suspicious"`
	SpamKeywords bool  `json:"spamKeywords"`
}

// ValidationResult is one per submitted email, exactly as returned remotely.
type ValidationResult struct {
	Email          string   `json:"email"`
	Valid          bool     `json:"valid"`
	Score          int      `json:"score"`
	Reason         []string `json:"reason"`
	Details        Details  `json:"details"`
	Suggestion     string   `json:"suggestion,omitempty"`
	Provider       string   `json:"provider,omitempty"`
	ProcessingTime *float64 `json:"processingTime,omitempty"`
	FromCache      *bool    `json:"fromCache,omitempty"`
}

func (r ValidationResult) Tier() Tier {
	return Classify(r.Valid, r.Score)
}

// Clone returns a copy that shares no memory with r.
func (r ValidationResult) Clone() ValidationResult {
	if r.Reason != nil {
		r.Reason = append([]string(nil), r.Reason...)
	}
	if r.Details.SMTP != nil {
		v := *r.Details.SMTP
		r.Details.SMTP = &v
	}
	if r.ProcessingTime != nil {
		v := *r.ProcessingTime
		r.ProcessingTime = &v
	}
	if r.FromCache != nil {
		v := *r.FromCache
		r.FromCache = &v
	}
	return r
}

// CloneResults deep-copies a result list.
func CloneResults(results []ValidationResult) []ValidationResult {
	cp := make([]ValidationResult, len(results))
	for i, r := range results {
		cp[i] = r.Clone()
	}
	return cp
}

// Statistics are the per-tier counters of a result list.
type Statistics struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
	Risky   int `json:"risky"`
}

// Summarize counts results per tier. Valid+Invalid+Risky always equals Total.
func Summarize(results []ValidationResult) Statistics {
	s := Statistics{Total: len(results)}
	for _, r := range results {
		switch r.Tier() {
		case TierValid:
			s.Valid++
		case TierInvalid:
			s.Invalid++
		default:
			s.Risky++
		}
	}
	return s
}

func (s Statistics) ValidPercentage() string {
	return percentage(s.Valid, s.Total)
}

func (s Statistics) InvalidPercentage() string {
	return percentage(s.Invalid, s.Total)
}

func percentage(n, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(n)*100/float64(total))
}

// ResultSet is the result list of the most recently submitted batch.
type ResultSet struct {
	Results    []ValidationResult `json:"results"`
	Statistics Statistics         `json:"statistics"`
}

// NewResultSet builds a ResultSet whose statistics come from the local tier rule,
// regardless of what the remote reported.
func NewResultSet(results []ValidationResult) ResultSet {
	if results == nil {
		results = []ValidationResult{}
	}
	return ResultSet{Results: results, Statistics: Summarize(results)}
}

// RemoteStatistics is the statistics block of a /validate-emails response.
type RemoteStatistics struct {
	Total             int    `json:"total"`
	Valid             int    `json:"valid"`
	Invalid           int    `json:"invalid"`
	ValidPercentage   string `json:"validPercentage"`
	InvalidPercentage string `json:"invalidPercentage"`
}

// Processing describes what the remote did with the submitted list.
type Processing struct {
	TotalSubmitted    int  `json:"totalSubmitted"`
	DuplicatesRemoved int  `json:"duplicatesRemoved"`
	Processed         int  `json:"processed"`
	Immediate         bool `json:"immediate,omitempty"`
}

// BatchResponse is the payload of a bulk validation call.
type BatchResponse struct {
	Results    []ValidationResult `json:"results"`
	Statistics RemoteStatistics   `json:"statistics"`
	Processing Processing         `json:"processing"`
}

// Envelope wraps every JSON response of the remote service.
type Envelope[T any] struct {
	Success   bool   `json:"success"`
	Data      *T     `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// OK wraps data in a successful envelope.
func OK[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: &data, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// Failure builds an error envelope.
func Failure(msg string) Envelope[struct{}] {
	return Envelope[struct{}]{Success: false, Error: msg, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// ValidationLog is one row of the remote's validation history.
type ValidationLog struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Status         Tier      `json:"status"`
	Score          int       `json:"score"`
	ProcessingTime float64   `json:"processingTime"`
	CreatedAt      time.Time `json:"createdAt"`
}

// LogPage is a page of validation logs.
type LogPage struct {
	Logs  []ValidationLog `json:"logs"`
	Total int             `json:"total"`
}

// Health is the remote's health report.
type Health struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Uptime    float64     `json:"uptime"`
	Version   string      `json:"version"`
	Database  string      `json:"database"`
	Cache     *CacheStats `json:"cache,omitempty"`
}

// CacheStats describes the remote's result cache.
type CacheStats struct {
	Size    int     `json:"size"`
	HitRate float64 `json:"hitRate"`
}
