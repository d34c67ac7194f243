package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedExt is the output file extension that enables zstd compression.
const CompressedExt = ".zst"

// File is a report destination on disk.
type File struct {
	f   *os.File
	enc *zstd.Encoder
	w   io.Writer
}

// Create opens path for writing a report, creating parent directories.
// Paths ending in ".zst" are written zstd-compressed.
func Create(path string) (*File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	out := &File{f: f, w: f}
	if strings.HasSuffix(path, CompressedExt) {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		out.enc = enc
		out.w = enc
	}
	return out, nil
}

// Write implements io.Writer.
func (o *File) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

// Close flushes any compressed data and closes the file.
func (o *File) Close() error {
	if o.enc != nil {
		if err := o.enc.Close(); err != nil {
			_ = o.f.Close()
			return fmt.Errorf("failed to flush compressed output: %w", err)
		}
	}
	return o.f.Close()
}

// Name returns the path of the file.
func (o *File) Name() string {
	return o.f.Name()
}
