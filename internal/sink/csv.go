package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// CSVSink writes one <Table>.csv file per table into a directory.
type CSVSink struct {
	dir   string
	files map[graph.Table]*csvFile
}

type csvFile struct {
	f *os.File
	w *csv.Writer
	// ids already present in the file, keyed by the first column text.
	ids map[string]struct{}
}

// NewCSVSink opens the table files in dir. ModeFresh truncates them and
// writes headers; ModeAppend drops a torn trailing row, appends, and
// writes a header only to files that are new or empty. Rows whose id is
// already in a file are skipped.
func NewCSVSink(dir string, mode Mode) (*CSVSink, error) {
	if dir == "" {
		return nil, errors.New("csv sink directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create csv directory: %w", err)
	}
	s := &CSVSink{dir: dir, files: make(map[graph.Table]*csvFile, len(graph.Tables))}
	for _, table := range graph.Tables {
		file, err := openCSV(filepath.Join(dir, string(table)+".csv"), table, mode)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.files[table] = file
	}
	return s, nil
}

func openCSV(path string, table graph.Table, mode Mode) (*csvFile, error) {
	ids := make(map[string]struct{})
	flags := os.O_CREATE | os.O_WRONLY
	if mode == ModeFresh {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
		if err := recoverCSV(path, table, ids); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, flags, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	file := &csvFile{f: f, w: csv.NewWriter(f), ids: ids}
	if info.Size() == 0 {
		if err := file.w.Write(table.Columns()); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write header of %s: %w", path, err)
		}
		file.w.Flush()
		if err := file.w.Error(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write header of %s: %w", path, err)
		}
	}
	return file, nil
}

// recoverCSV collects the ids of every complete row in path and truncates
// the file after the last one, dropping a row torn by a crash mid-write.
func recoverCSV(path string, table graph.Table, ids map[string]struct{}) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s: %w", path, err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(table.Columns())
	var good int64
	for header := true; ; header = false {
		row, err := r.Read()
		if err != nil {
			// io.EOF or a malformed row; everything after good is dropped.
			break
		}
		offset := r.InputOffset()
		if offset == info.Size() && !endsWithNewline(f, offset) {
			break
		}
		good = offset
		if !header {
			ids[row[0]] = struct{}{}
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if good < info.Size() {
		if err := os.Truncate(path, good); err != nil {
			return fmt.Errorf("truncate torn row in %s: %w", path, err)
		}
	}
	return nil
}

func endsWithNewline(f *os.File, size int64) bool {
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return false
	}
	return last[0] == '\n'
}

// Write appends the batch and syncs every touched file.
func (s *CSVSink) Write(_ context.Context, batch []graph.Record) error {
	touched := make(map[graph.Table]*csvFile)
	for _, record := range batch {
		file, ok := s.files[record.Table()]
		if !ok {
			return fmt.Errorf("unknown table %q", record.Table())
		}
		values := record.Values()
		id := formatValue(values[0])
		if _, seen := file.ids[id]; seen {
			continue
		}
		file.ids[id] = struct{}{}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		if err := file.w.Write(row); err != nil {
			return fmt.Errorf("write %s row: %w", record.Table(), err)
		}
		touched[record.Table()] = file
	}
	for table, file := range touched {
		file.w.Flush()
		if err := file.w.Error(); err != nil {
			return fmt.Errorf("flush %s: %w", table, err)
		}
		if err := file.f.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", table, err)
		}
	}
	return nil
}

// Close flushes and closes every file.
func (s *CSVSink) Close() error {
	var errs []error
	for table, file := range s.files {
		file.w.Flush()
		if err := file.w.Error(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", table, err))
		}
		if err := file.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", table, err))
		}
	}
	s.files = nil
	return errors.Join(errs...)
}
