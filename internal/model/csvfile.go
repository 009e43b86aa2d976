package model

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
)

// CSVFile is a single-writer CSV output file. The header is written on
// creation; Close flushes and fsyncs so downstream stages only ever see a
// complete file.
type CSVFile struct {
	file   *os.File
	writer *csv.Writer
	rows   int
}

// CreateCSV creates (or truncates) path and writes the header.
func CreateCSV(path string, header []string) (*CSVFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: create %s", path)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, eris.Wrapf(err, "csv: write header %s", path)
	}
	return &CSVFile{file: f, writer: w}, nil
}

// Write appends one row.
func (c *CSVFile) Write(row []string) error {
	if err := c.writer.Write(row); err != nil {
		return eris.Wrap(err, "csv: write row")
	}
	c.rows++
	return nil
}

// Rows returns the number of data rows written so far.
func (c *CSVFile) Rows() int {
	return c.rows
}

// Close flushes, fsyncs, and closes the file.
func (c *CSVFile) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return eris.Wrap(err, "csv: flush")
	}
	if err := c.file.Sync(); err != nil {
		_ = c.file.Close()
		return eris.Wrap(err, "csv: sync")
	}
	if err := c.file.Close(); err != nil {
		return eris.Wrap(err, "csv: close")
	}
	return nil
}
