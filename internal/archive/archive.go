// Package archive extracts and builds the precomputed embedding bundle.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Format identifies a bundle container.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTar
	FormatTarGzip
	FormatTarZstd
)

// ErrUnsupportedFormat is returned for unknown bundle extensions.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// ErrUnsafePath is returned when an entry would land outside the destination.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// DetectFormat picks the container format from the file name.
func DetectFormat(name string) Format {
	n := strings.ToLower(name)
	switch {
	case strings.HasSuffix(n, ".zip"):
		return FormatZip
	case strings.HasSuffix(n, ".tar.gz"), strings.HasSuffix(n, ".tgz"):
		return FormatTarGzip
	case strings.HasSuffix(n, ".tar.zst"), strings.HasSuffix(n, ".tzst"):
		return FormatTarZstd
	case strings.HasSuffix(n, ".tar"):
		return FormatTar
	default:
		return FormatUnknown
	}
}

// Extract unpacks src into dest, creating dest if needed, and returns the
// extracted regular file paths. Existing files are overwritten.
func Extract(src, dest string) ([]string, error) {
	format := DetectFormat(src)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, src)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}
	if format == FormatZip {
		return extractZip(src, dest)
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	switch format {
	case FormatTarGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip %s: %w", src, err)
		}
		defer gz.Close()
		r = gz
	case FormatTarZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd %s: %w", src, err)
		}
		defer zr.Close()
		r = zr
	}
	return extractTar(r, dest)
}

func extractTar(r io.Reader, dest string) ([]string, error) {
	var out []string
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return out, err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return out, err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr); err != nil {
				return out, err
			}
			out = append(out, target)
		}
	}
}

func extractZip(src, dest string) ([]string, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("zip %s: %w", src, err)
	}
	defer zr.Close()

	var out []string
	for _, zf := range zr.File {
		target, err := safeJoin(dest, zf.Name)
		if err != nil {
			return out, err
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return out, err
			}
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return out, err
		}
		err = writeFile(target, rc)
		_ = rc.Close()
		if err != nil {
			return out, err
		}
		out = append(out, target)
	}
	return out, nil
}

func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
