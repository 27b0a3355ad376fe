package upload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"vetdesk/internal/apperr"
)

// MaxFileSize is the largest accepted upload (100 MiB).
const MaxFileSize int64 = 100 << 20

// UploadedFile is an opaque blob handed to the remote service whole.
type UploadedFile struct {
	Name string
	Size int64
	Body io.Reader
}

// Open builds an UploadedFile from disk. The caller closes the returned file.
func Open(path string) (UploadedFile, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return UploadedFile{}, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return UploadedFile{}, nil, err
	}
	return UploadedFile{Name: filepath.Base(path), Size: info.Size(), Body: f}, f, nil
}

// Admit is the admission check run before any network call.
func Admit(f UploadedFile) error {
	if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
		return apperr.Input(apperr.UnsupportedFormat, "please upload a CSV file (got %q)", f.Name)
	}
	if f.Size > MaxFileSize {
		return apperr.Input(apperr.FileTooLarge,
			"file size must be at most 100MB (got %.1fMB)", float64(f.Size)/(1<<20))
	}
	return nil
}

// ReadEmails reads the email column of a CSV file. A leading UTF-8 BOM is
// skipped. If the first row has an "email" header that column is used,
// otherwise the first column. Rows are trimmed; no deduplication happens here.
func ReadEmails(r io.Reader) ([]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var emails []string
	col := 0
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV format: %w", err)
		}

		if first {
			first = false
			if idx := headerIndex(record); idx >= 0 {
				col = idx
				continue
			}
		}

		if col < len(record) {
			if v := strings.TrimSpace(record[col]); v != "" {
				emails = append(emails, v)
			}
		}
	}
	return emails, nil
}

func headerIndex(record []string) int {
	for i, h := range record {
		if strings.EqualFold(strings.TrimSpace(h), "email") {
			return i
		}
	}
	return -1
}
