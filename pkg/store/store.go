// Package store implements the flat CSV table holding one row per ingested
// item. The file is UTF-8, delimited, with a fixed header; there is no
// in-place row update, whole-file Rewrite is the only way to mutate existing
// rows.
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/nik-panekin/s-reality-scraper/pkg/errors"
	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
)

// Store is the tabular record store backed by a single CSV file.
type Store struct {
	path       string
	backupPath string
	logger     logger.Logger
}

// New creates a store over the given CSV path.
func New(path, backupPath string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{path: path, backupPath: backupPath, logger: log}
}

// Path returns the CSV file path.
func (s *Store) Path() string {
	return s.path
}

// LoadAll reads every record in file order. An absent file yields an empty
// slice; a malformed row is a persistence error for the whole file.
func (s *Store) LoadAll() ([]Record, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't read CSV file %s: %v", s.path, err),
		}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(Columns)

	// Header row
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("CSV file %s reading fault: %v", s.path, err),
		}
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &errors.Error{
				Kind:    errors.KindPersistence,
				Message: fmt.Sprintf("CSV file %s reading fault: %v", s.path, err),
			}
		}
		rec, err := recordFromRow(row)
		if err != nil {
			return nil, &errors.Error{
				Kind:    errors.KindPersistence,
				Message: fmt.Sprintf("CSV file %s reading fault: %v", s.path, err),
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// Append writes one row. With first set the file is recreated and the header
// written before the row; the caller tracks "is this the first row" — the
// store does not auto-detect it.
func (s *Store) Append(rec Record, first bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if first {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	file, err := os.OpenFile(s.path, flags, 0644)
	if err != nil {
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't write to CSV file %s: %v", s.path, err),
		}
	}

	writer := csv.NewWriter(file)
	if first {
		if err := writer.Write(Columns); err != nil {
			file.Close()
			return &errors.Error{
				Kind:    errors.KindPersistence,
				Message: fmt.Sprintf("can't write to CSV file %s: %v", s.path, err),
			}
		}
	}
	if err := writer.Write(rec.row()); err != nil {
		file.Close()
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't write to CSV file %s: %v", s.path, err),
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't write to CSV file %s: %v", s.path, err),
		}
	}
	if err := file.Close(); err != nil {
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't write to CSV file %s: %v", s.path, err),
		}
	}

	return nil
}

// Rewrite atomically replaces the whole file with header plus the given rows
// in the given order. On failure the previous on-disk state stays intact.
func (s *Store) Rewrite(records []Record) error {
	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't create temporary file for %s: %v", s.path, err),
		}
	}

	writer := csv.NewWriter(file)
	writeErr := writer.Write(Columns)
	for _, rec := range records {
		if writeErr != nil {
			break
		}
		writeErr = writer.Write(rec.row())
	}
	if writeErr == nil {
		writer.Flush()
		writeErr = writer.Error()
	}
	if writeErr == nil {
		writeErr = file.Sync()
	}

	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tempPath)
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't rewrite CSV file %s: %v", s.path, writeErr),
		}
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't replace CSV file %s: %v", s.path, err),
		}
	}

	return nil
}

// Backup moves the current CSV aside, replacing any previous backup. Used by
// the restart action before clearing progress; an absent store is not an
// error.
func (s *Store) Backup() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(s.backupPath); err != nil && !os.IsNotExist(err) {
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't delete old backup %s: %v", s.backupPath, err),
		}
	}
	if err := os.Rename(s.path, s.backupPath); err != nil {
		return &errors.Error{
			Kind:    errors.KindPersistence,
			Message: fmt.Sprintf("can't back up CSV file %s: %v", s.path, err),
		}
	}

	s.logger.InfoWithFields("store backed up", map[string]interface{}{
		"path":   s.path,
		"backup": s.backupPath,
	})
	return nil
}
