// Package export turns a result set into a downloadable file, either locally or
// by asking the verification service to render it.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"vetdesk/internal/apperr"
	"vetdesk/internal/models"
)

const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	NoIssues = "No issues found"

	filePrefix = "email-validation-results-"
	stampFmt   = "2006-01-02-15-04-05"
)

var header = []string{"Email", "Status", "Score", "Reason", "Provider", "Valid"}

// File is a rendered export ready to be handed to a Sink.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// RemoteExporter renders results on the verification service.
type RemoteExporter interface {
	ExportCSV(ctx context.Context, results []models.ValidationResult) ([]byte, error)
	ExportExcel(ctx context.Context, results []models.ValidationResult) ([]byte, error)
}

// Encode writes results as CSV. A UTF-8 BOM comes first so spreadsheet tools
// pick the right encoding.
func Encode(w io.Writer, results []models.ValidationResult) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			r.Email,
			r.Tier().Label(),
			strconv.Itoa(r.Score),
			ReasonText(r.Reason),
			r.Provider,
			strconv.FormatBool(r.Valid),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReasonText joins issue codes, or returns the NoIssues sentinel.
func ReasonText(reason []string) string {
	if len(reason) == 0 {
		return NoIssues
	}
	return strings.Join(reason, "; ")
}

// Namer hands out timestamped file names that never repeat within a process.
type Namer struct {
	mu   sync.Mutex
	now  func() time.Time
	last string
	seq  int
}

func NewNamer(now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{now: now}
}

// Next returns "email-validation-results-<stamp>.<ext>", adding a counter when
// two names fall in the same second.
func (n *Namer) Next(ext string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	stamp := n.now().Format(stampFmt)
	if stamp == n.last {
		n.seq++
		return fmt.Sprintf("%s%s-%d.%s", filePrefix, stamp, n.seq, ext)
	}
	n.last = stamp
	n.seq = 1
	return fmt.Sprintf("%s%s.%s", filePrefix, stamp, ext)
}

// Codec renders exports for one session.
type Codec struct {
	namer  *Namer
	remote RemoteExporter
}

// NewCodec builds a Codec. remote may be nil when only local exports are used.
func NewCodec(remote RemoteExporter, namer *Namer) *Codec {
	if namer == nil {
		namer = NewNamer(nil)
	}
	return &Codec{namer: namer, remote: remote}
}

// Export serializes results locally.
func (c *Codec) Export(results []models.ValidationResult) (File, error) {
	if len(results) == 0 {
		return File{}, apperr.ErrEmptyResultSet
	}
	var buf bytes.Buffer
	if err := Encode(&buf, results); err != nil {
		return File{}, fmt.Errorf("encode export: %w", err)
	}
	return File{Name: c.namer.Next("csv"), ContentType: ContentTypeCSV, Data: buf.Bytes()}, nil
}

// RequestExport has the remote service render the CSV.
func (c *Codec) RequestExport(ctx context.Context, results []models.ValidationResult) (File, error) {
	if len(results) == 0 {
		return File{}, apperr.ErrEmptyResultSet
	}
	if c.remote == nil {
		return File{}, fmt.Errorf("remote export is not configured")
	}
	data, err := c.remote.ExportCSV(ctx, results)
	if err != nil {
		return File{}, err
	}
	return File{Name: c.namer.Next("csv"), ContentType: ContentTypeCSV, Data: data}, nil
}

// RequestExcel has the remote service render a spreadsheet.
func (c *Codec) RequestExcel(ctx context.Context, results []models.ValidationResult) (File, error) {
	if len(results) == 0 {
		return File{}, apperr.ErrEmptyResultSet
	}
	if c.remote == nil {
		return File{}, fmt.Errorf("remote export is not configured")
	}
	data, err := c.remote.ExportExcel(ctx, results)
	if err != nil {
		return File{}, err
	}
	return File{Name: c.namer.Next("xlsx"), ContentType: ContentTypeXLSX, Data: data}, nil
}
