package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Create writes files into a new bundle at dest. Entries are stored under
// their base names. The format follows dest's extension.
func Create(dest string, files ...string) error {
	format := DetectFormat(dest)
	if format == FormatUnknown {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if format == FormatZip {
		err = writeZip(out, files)
	} else {
		err = writeTar(out, format, files)
	}
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	return out.Close()
}

func writeZip(w io.Writer, files []string) error {
	zw := zip.NewWriter(w)
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		entry, err := zw.Create(filepath.Base(path))
		if err == nil {
			_, err = io.Copy(entry, f)
		}
		_ = f.Close()
		if err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeTar(w io.Writer, format Format, files []string) error {
	var compressed io.WriteCloser
	switch format {
	case FormatTarGzip:
		compressed = gzip.NewWriter(w)
	case FormatTarZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		compressed = zw
	}
	tw := tar.NewWriter(w)
	if compressed != nil {
		tw = tar.NewWriter(compressed)
	}

	for _, path := range files {
		if err := addTarFile(tw, path); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if compressed != nil {
		return compressed.Close()
	}
	return nil
}

func addTarFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(path)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
