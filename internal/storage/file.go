// Package storage persists prepared simulation inputs: atomically on the
// local filesystem, and optionally as an archive copy in S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/wofost-input-etl/internal/domain"
)

// FileSink writes artifacts into one output directory.
type FileSink struct {
	dir string
}

// NewFileSink creates dir if needed and returns a sink writing into it.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %v", domain.ErrIO, err)
	}
	return &FileSink{dir: dir}, nil
}

// Dir returns the output directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// Write stores data under name and returns the full path. name must be a
// bare file name.
func (s *FileSink) Write(name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q is not a plain file name", domain.ErrValidation, name)
	}
	path := filepath.Join(s.dir, name)
	if err := WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// CheckReadiness reports whether the output directory is still a writable directory.
func (s *FileSink) CheckReadiness(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output dir %s is not a directory", s.dir)
	}
	f, err := os.CreateTemp(s.dir, ".ready-*")
	if err != nil {
		return fmt.Errorf("output dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it and
// renames it into place. Readers see either the previous file or the
// complete new one; a failed write removes the temporary file.
func WriteFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrIO, path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrIO, path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", domain.ErrIO, path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", domain.ErrIO, path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", domain.ErrIO, path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", domain.ErrIO, path, err)
	}
	return nil
}

// EncodeCABOBytes renders a CABO document into memory.
func EncodeCABOBytes(meta domain.StationMetadata, series domain.WeatherDaySeries, opts domain.EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := domain.EncodeCABO(&buf, meta, series, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCABOFile encodes the series and writes it to base.yyy, where yyy is
// the last three digits of the year. It returns base unchanged: the CABO
// weather reader appends the year suffix itself.
func WriteCABOFile(base string, meta domain.StationMetadata, series domain.WeatherDaySeries, opts domain.EncodeOptions) (string, error) {
	data, err := EncodeCABOBytes(meta, series, opts)
	if err != nil {
		return "", err
	}
	if err := WriteFileAtomic(domain.CABOFileName(base, meta.Year), data); err != nil {
		return "", err
	}
	return base, nil
}
