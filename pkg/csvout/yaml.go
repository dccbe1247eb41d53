package csvout

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/palvaroni/git-history-parser/pkg/provenance"
)

// yamlRecord is the YAML projection of one record. Field names mirror the CSV
// columns.
type yamlRecord struct {
	CommitHash       string `yaml:"commit_hash"`
	Author           string `yaml:"author"`
	Date             string `yaml:"date"`
	ModifiedAt       string `yaml:"modified_at,omitempty"`
	ModificationType string `yaml:"modification_type"`
	FilePath         string `yaml:"file_path"`
	StartLine        int    `yaml:"start_line"`
	EndLine          int    `yaml:"end_line"`
	LineCount        int    `yaml:"line_count"`
}

// WriteYAML writes records as a YAML document with a top-level records list.
func WriteYAML(w io.Writer, records []*provenance.Record) error {
	out := struct {
		Records []yamlRecord `yaml:"records"`
	}{
		Records: make([]yamlRecord, 0, len(records)),
	}

	for _, rec := range records {
		yr := yamlRecord{
			CommitHash:       rec.Commit.Hash,
			Author:           rec.Commit.Author,
			Date:             rec.Commit.Date.Format(time.RFC3339),
			ModificationType: rec.Type.String(),
			FilePath:         rec.FilePath(),
			StartLine:        rec.StartLine,
			EndLine:          rec.EndLine,
			LineCount:        rec.LineCount(),
		}

		if at, ok := rec.ModifiedAt(); ok {
			yr.ModifiedAt = at.Format(time.RFC3339)
		}

		out.Records = append(out.Records, yr)
	}

	enc := yaml.NewEncoder(w)

	err := enc.Encode(out)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}

	return nil
}
