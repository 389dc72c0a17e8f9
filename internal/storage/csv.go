package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

const byteOrderMark = "\ufeff"

// CSVFile is an append-only CSV log with a fixed header row. Every ReadAll
// re-reads the whole file; nothing is cached.
//
// Appends and reads are serialized by an in-process mutex and an advisory
// lock on <path>.lock, so writers in other processes sharing the data
// directory cannot interleave partial records.
type CSVFile struct {
	path    string
	headers []string
	mu      sync.Mutex
	lock    *flock.Flock
}

// NewCSVFile opens (or creates, writing the header row) the CSV log at path.
func NewCSVFile(path string, headers []string) (*CSVFile, error) {
	if len(headers) == 0 {
		return nil, errors.New("csv headers are required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir for %s: %w", path, err)
	}

	f := &CSVFile{
		path:    path,
		headers: append([]string(nil), headers...),
		lock:    flock.New(path + ".lock"),
	}
	if err := f.ensure(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *CSVFile) Path() string {
	return f.path
}

func (f *CSVFile) Headers() []string {
	return append([]string(nil), f.headers...)
}

func (f *CSVFile) ensure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer f.lock.Unlock()

	if _, err := os.Stat(f.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", f.path, err)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return fmt.Errorf("create %s: %w", f.path, err)
	}
	return writeRecord(file, f.headers)
}

// Append writes a single record at the end of the file.
func (f *CSVFile) Append(row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer f.lock.Unlock()

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	if err := writeRecord(file, row); err != nil {
		return fmt.Errorf("append %s: %w", f.path, err)
	}
	return nil
}

// ReadAll parses every record into a header-keyed map. Fully empty rows are
// skipped and a byte-order mark is stripped from header names. A missing
// file reads as empty.
func (f *CSVFile) ReadAll() ([]map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer f.lock.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []map[string]string{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer file.Close()

	return readRecords(file)
}

func readRecords(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return []map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = strings.ReplaceAll(h, byteOrderMark, "")
	}

	rows := []map[string]string{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		row := make(map[string]string, len(keys))
		empty := true
		for i, key := range keys {
			var value string
			if i < len(record) {
				value = record[i]
			}
			if value != "" {
				empty = false
			}
			row[key] = value
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeRecord(file *os.File, record []string) error {
	w := csv.NewWriter(file)
	if err := w.Write(record); err != nil {
		_ = file.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
