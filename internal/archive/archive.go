// Package archive extracts downloaded package assets into an install
// directory, selecting an implementation by file extension.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extractor unpacks an archive file into destDir, returning the list of
// paths written relative to destDir (suitable for an install manifest).
type Extractor interface {
	Extract(srcFile, destDir string) ([]string, error)
}

// ForFile picks an Extractor by the archive's file name suffix. It returns
// an error for unrecognized extensions rather than guessing.
func ForFile(name string) (Extractor, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return zipExtractor{}, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return tarGzExtractor{}, nil
	default:
		return nil, fmt.Errorf("archive: unsupported file type %q", name)
	}
}

// IsSupported reports whether ForFile would recognize name.
func IsSupported(name string) bool {
	_, err := ForFile(name)
	return err == nil
}

type zipExtractor struct{}

func (zipExtractor) Extract(srcFile, destDir string) ([]string, error) {
	r, err := zip.OpenReader(srcFile)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", srcFile, err)
	}
	defer r.Close()

	var written []string
	for _, f := range r.File {
		rel := filepath.Clean(f.Name)
		if rel == "." || strings.HasPrefix(rel, "..") {
			return written, fmt.Errorf("archive: entry %q escapes destination", f.Name)
		}
		target := filepath.Join(destDir, rel)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, fmt.Errorf("archive: mkdir %s: %w", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("archive: mkdir %s: %w", filepath.Dir(target), err)
		}
		if err := copyZipEntry(f, target); err != nil {
			return written, err
		}
		written = append(written, rel)
	}
	return written, nil
}

func copyZipEntry(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("archive: open entry %s: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("archive: write %s: %w", target, err)
	}
	return nil
}

type tarGzExtractor struct{}

func (tarGzExtractor) Extract(srcFile, destDir string) ([]string, error) {
	f, err := os.Open(srcFile)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", srcFile, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("archive: gzip %s: %w", srcFile, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var written []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, fmt.Errorf("archive: read tar entry: %w", err)
		}

		rel := filepath.Clean(hdr.Name)
		if rel == "." || strings.HasPrefix(rel, "..") {
			return written, fmt.Errorf("archive: entry %q escapes destination", hdr.Name)
		}
		target := filepath.Join(destDir, rel)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, fmt.Errorf("archive: mkdir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return written, fmt.Errorf("archive: mkdir %s: %w", filepath.Dir(target), err)
			}
			if err := copyTarEntry(tr, target, hdr.FileInfo().Mode()); err != nil {
				return written, err
			}
			written = append(written, rel)
		}
	}
	return written, nil
}

func copyTarEntry(tr *tar.Reader, target string, mode os.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, tr); err != nil {
		return fmt.Errorf("archive: write %s: %w", target, err)
	}
	return nil
}
