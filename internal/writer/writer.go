// Package writer holds output sinks for generated reports.
package writer

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Sink receives a complete report.
type Sink interface {
	WriteReport(buf []byte) error
}

// FileWriter replaces Path with the report atomically.
type FileWriter struct {
	Path string
}

// WriteReport writes buf to a temp file next to Path, syncs it and renames it
// over Path. Readers never see a partial report.
func (w *FileWriter) WriteReport(buf []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(w.Path), ".hmalloc-tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(buf); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return errors.Wrap(err, "chmod temp file")
	}
	if err := os.Rename(tmpPath, w.Path); err != nil {
		return errors.Wrap(err, "rename temp file")
	}
	ok = true
	return nil
}

// MemWriter keeps the last report in memory.
type MemWriter struct {
	Buf []byte
}

func (w *MemWriter) WriteReport(buf []byte) error {
	w.Buf = append(w.Buf[:0], buf...)
	return nil
}
