package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"vetdesk/internal/apperr"
	"vetdesk/internal/export"
	"vetdesk/internal/models"
	"vetdesk/internal/session"
)

type printer struct {
	w io.Writer
}

func (p *printer) summary(s models.Statistics) {
	fmt.Fprintf(p.w, "Total: %d  Valid: %d (%s%%)  Risky: %d  Invalid: %d (%s%%)\n",
		s.Total, s.Valid, s.ValidPercentage(), s.Risky, s.Invalid, s.InvalidPercentage())
}

func (p *printer) table(results []models.ValidationResult) {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tSTATUS\tSCORE\tREASON\tSUGGESTION")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.Email, r.Tier().Label(), r.Score, export.ReasonText(r.Reason), r.Suggestion)
	}
	tw.Flush()
}

func (p *printer) result(r models.ValidationResult) {
	fmt.Fprintf(p.w, "%s: %s (score %d)\n", r.Email, r.Tier().Label(), r.Score)
	fmt.Fprintf(p.w, "  reason:   %s\n", export.ReasonText(r.Reason))
	if r.Suggestion != "" {
		fmt.Fprintf(p.w, "  did you mean %s?\n", r.Suggestion)
	}
	if r.Provider != "" {
		fmt.Fprintf(p.w, "  provider: %s\n", r.Provider)
	}
	if r.FromCache != nil && *r.FromCache {
		fmt.Fprintln(p.w, "  (cached)")
	}
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	var input *apperr.InputError
	switch {
	case errors.As(err, &input):
		return input.Message
	case errors.Is(err, apperr.ErrBusy):
		return "a batch is already being processed for this session"
	case errors.Is(err, apperr.ErrEmptyResultSet):
		return "no results to export"
	}

	var submit *apperr.SubmitError
	if errors.As(err, &submit) {
		switch submit.Kind {
		case apperr.NetworkUnavailable:
			return "the validation service could not be reached: " + submit.Message
		case apperr.ServerRejected:
			return "the validation service rejected the request: " + submit.Message
		case apperr.ServerError:
			return "the validation service failed: " + submit.Message
		}
	}
	return err.Error()
}

// parseExportMode maps a --mode/--export value. An empty value falls back to
// the configured default.
func parseExportMode(s string, remoteDefault bool) (session.ExportMode, error) {
	switch s {
	case "":
		if remoteDefault {
			return session.ExportRemoteCSV, nil
		}
		return session.ExportLocal, nil
	case "local":
		return session.ExportLocal, nil
	case "csv", "remote":
		return session.ExportRemoteCSV, nil
	case "excel", "xlsx":
		return session.ExportRemoteExcel, nil
	}
	return 0, fmt.Errorf("unknown export mode %q (want local, csv or excel)", s)
}

// exportResults renders the session's results and writes them to the
// configured sink.
func exportResults(ctx context.Context, mode string) error {
	m, err := parseExportMode(mode, cfg.Export.Remote)
	if err != nil {
		return err
	}
	f, err := sess.Export(ctx, m)
	if err != nil {
		return err
	}
	s, err := sink(ctx)
	if err != nil {
		return err
	}
	loc, err := s.Put(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(output.w, "Exported %d results to %s\n", sess.Statistics().Total, loc)
	return nil
}

func saveResults(path string, rs models.ResultSet) error {
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadResults(path string) ([]models.ValidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rs models.ResultSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rs.Results, nil
}

// finish prints a fresh result set and handles --save / --export.
func finish(ctx context.Context, rs models.ResultSet, o resultFlags) error {
	output.summary(rs.Statistics)
	if !o.quiet {
		output.table(rs.Results)
	}
	if o.save != "" {
		if err := saveResults(o.save, rs); err != nil {
			return err
		}
		fmt.Fprintf(output.w, "Saved results to %s\n", o.save)
	}
	if o.export != "" {
		return exportResults(ctx, o.export)
	}
	return nil
}

type resultFlags struct {
	save   string
	export string
	quiet  bool
}
