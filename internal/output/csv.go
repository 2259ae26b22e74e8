package output

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/corpustools/reddit-author-collector/internal/collector"
	"github.com/corpustools/reddit-author-collector/internal/models"
)

// CSVWriter appends normalized posts to a CSV file with a fixed header row.
// The file is append-only for the lifetime of a run; rows are flushed as they
// are written so a partial run still leaves a readable dataset.
type CSVWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// Ensure CSVWriter implements the collector's sink contract
var _ collector.RowWriter = (*CSVWriter)(nil)

// NewCSVWriter creates (or truncates) the file at path and writes the header.
func NewCSVWriter(path string) (*CSVWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(models.PostHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	return &CSVWriter{path: path, file: file, writer: writer}, nil
}

// Path returns the location of the output file.
func (c *CSVWriter) Path() string {
	return c.path
}

// Append writes one row and flushes it to disk.
func (c *CSVWriter) Append(post models.Post) error {
	if err := c.writer.Write(post.Fields()); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// Close flushes any buffered rows and closes the file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}
