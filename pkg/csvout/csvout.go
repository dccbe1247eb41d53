// Package csvout serializes modification records to CSV and YAML. CSV is the
// primary format: one row per record, stable column order, RFC 3339
// timestamps, so runs can be appended and diffed.
package csvout

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/palvaroni/git-history-parser/pkg/provenance"
)

// Columns is the CSV header, in output order.
var Columns = []string{
	"commit_hash",
	"author",
	"date",
	"modified_at",
	"modification_type",
	"file_path",
	"start_line",
	"end_line",
	"line_count",
}

// Writer streams records as CSV rows.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a CSV record writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the column header row.
func (w *Writer) WriteHeader() error {
	err := w.csv.Write(Columns)
	if err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	return nil
}

// WriteRecord writes one record as a CSV row. The modified_at column is empty
// while the record's lines are still live at the end of the run.
func (w *Writer) WriteRecord(rec *provenance.Record) error {
	modifiedAt := ""
	if at, ok := rec.ModifiedAt(); ok {
		modifiedAt = at.Format(time.RFC3339)
	}

	row := []string{
		rec.Commit.Hash,
		rec.Commit.Author,
		rec.Commit.Date.Format(time.RFC3339),
		modifiedAt,
		rec.Type.String(),
		rec.FilePath(),
		strconv.Itoa(rec.StartLine),
		strconv.Itoa(rec.EndLine),
		strconv.Itoa(rec.LineCount()),
	}

	err := w.csv.Write(row)
	if err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}

	return nil
}

// WriteAll writes a header followed by every record.
func (w *Writer) WriteAll(records []*provenance.Record) error {
	err := w.WriteHeader()
	if err != nil {
		return err
	}

	for _, rec := range records {
		err = w.WriteRecord(rec)
		if err != nil {
			return err
		}
	}

	return w.Flush()
}

// Flush writes any buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()

	err := w.csv.Error()
	if err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	return nil
}

// WriteFile writes records to path. With appendMode set, rows are appended to
// an existing file and the header is written only when the file is empty, so
// chunked runs over the same history produce one well-formed CSV.
func WriteFile(path string, records []*provenance.Record, appendMode bool) error {
	flags := os.O_WRONLY | os.O_CREATE
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writeHeader := true

	if appendMode {
		info, statErr := file.Stat()
		if statErr != nil {
			return fmt.Errorf("stat output file: %w", statErr)
		}

		writeHeader = info.Size() == 0
	}

	w := NewWriter(file)

	if writeHeader {
		err = w.WriteHeader()
		if err != nil {
			return err
		}
	}

	for _, rec := range records {
		err = w.WriteRecord(rec)
		if err != nil {
			return err
		}
	}

	err = w.Flush()
	if err != nil {
		return err
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	return nil
}
