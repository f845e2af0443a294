package ingest

import (
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/ashaai/asha/internal/knowledge"
	"github.com/ashaai/asha/internal/log"
)

//go:embed data/sample_jobs.csv
var sampleJobsCSV string

// jobFieldDefaults fill optional columns that are absent or blank, matching
// the upstream data feed's conventions.
var jobFieldDefaults = map[string]string{
	"job_description":     "No description provided",
	"skills_required":     "Not specified",
	"experience_required": "Not specified",
	"location":            "Not specified",
	"salary_range":        "Not disclosed",
	"remote_option":       "Not specified",
	"job_type":            "Not specified",
}

// JobIndexer converts job listing CSV rows into searchable documents.
type JobIndexer struct {
	store  Store
	logger log.Logger
}

// NewJobIndexer creates a JobIndexer.
func NewJobIndexer(store Store, logger log.Logger) *JobIndexer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &JobIndexer{store: store, logger: logger}
}

// Index loads the CSV at path, replaces all job documents in the store, and
// returns the number indexed. A missing file falls back to the embedded
// sample dataset.
func (ix *JobIndexer) Index(ctx context.Context, path string) (int, error) {
	var reader io.Reader

	f, err := os.Open(path) // #nosec G304 -- path comes from operator config
	switch {
	case err == nil:
		defer f.Close()
		reader = f
	case errors.Is(err, fs.ErrNotExist):
		ix.logger.Warn("jobs CSV not found, using embedded sample data", "path", path)
		reader = strings.NewReader(sampleJobsCSV)
	default:
		return 0, fmt.Errorf("opening jobs CSV %q: %w", path, err)
	}

	docs, err := parseJobsCSV(reader)
	if err != nil {
		return 0, err
	}

	removed, err := ix.store.DeleteBySource(ctx, knowledge.SourceTypeJob)
	if err != nil {
		return 0, fmt.Errorf("clearing job index: %w", err)
	}
	if err := ix.store.AddBatch(ctx, docs); err != nil {
		return 0, fmt.Errorf("indexing jobs: %w", err)
	}

	ix.logger.Info("indexed job listings", "count", len(docs), "replaced", removed)
	return len(docs), nil
}

// parseJobsCSV reads header-mapped rows into documents. The embedded text
// mirrors the row so field names are searchable alongside their values.
func parseJobsCSV(r io.Reader) ([]knowledge.Document, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading jobs CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := col["job_id"]; !ok {
		return nil, errors.New("jobs CSV missing job_id column")
	}
	if _, ok := col["job_title"]; !ok {
		return nil, errors.New("jobs CSV missing job_title column")
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) || strings.TrimSpace(row[i]) == "" {
			return jobFieldDefaults[name]
		}
		return strings.TrimSpace(row[i])
	}

	var docs []knowledge.Document
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading jobs CSV line %d: %w", line, err)
		}

		id := field(row, "job_id")
		title := field(row, "job_title")
		company := field(row, "company_name")
		location := field(row, "location")
		experience := field(row, "experience_required")
		skills := field(row, "skills_required")
		jobType := field(row, "job_type")
		remote := field(row, "remote_option")
		salary := field(row, "salary_range")

		content := fmt.Sprintf(
			"Job Title: %s\nCompany: %s\nLocation: %s\nExperience Required: %s\nSkills Required: %s\nJob Type: %s\nRemote Option: %s\nSalary Range: %s\nDescription: %s",
			title, company, location, experience, skills, jobType, remote, salary,
			field(row, "job_description"))

		docs = append(docs, knowledge.Document{
			ID:         "job-" + id,
			SourceType: knowledge.SourceTypeJob,
			Content:    content,
			Metadata: map[string]string{
				"job_id":        id,
				"job_title":     title,
				"company":       company,
				"location":      location,
				"job_type":      jobType,
				"remote_option": remote,
				"salary_range":  salary,
				"posted_date":   field(row, "posted_date"),
			},
		})
	}
	if len(docs) == 0 {
		return nil, errors.New("jobs CSV contains no rows")
	}
	return docs, nil
}
