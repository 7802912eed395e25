// Package tabular renders domain tables as aligned text, CSV or JSON.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/norlandrhagen/snowintel/internal/domain"
)

// Format is an output encoding.
type Format string

const (
	Text Format = "text"
	CSV  Format = "csv"
	JSON Format = "json"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, CSV, JSON:
		return f, nil
	case "":
		return Text, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, csv or json)", s)
	}
}

// Write renders table to w in the given format.
func Write(w io.Writer, table domain.Table, format Format) error {
	switch format {
	case Text, "":
		return writeText(w, table)
	case CSV:
		return writeCSV(w, table)
	case JSON:
		return writeJSON(w, table)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, table domain.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(table.Columns(), "\t"))
	for _, rec := range table.Records() {
		fmt.Fprintln(tw, strings.Join(rec, "\t"))
	}
	return tw.Flush()
}

func writeCSV(w io.Writer, table domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(table.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// writeJSON emits an array of objects keyed by column name. The domain
// tables carry matching json tags, so numbers stay numbers.
func writeJSON(w io.Writer, table domain.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(table.Records()) == 0 {
		return enc.Encode([]struct{}{})
	}
	return enc.Encode(table)
}
