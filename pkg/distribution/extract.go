package distribution

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// extract copies every regular file below a "bin" directory of the archive
// into dest, flattening the path.
func extract(archive, format, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	switch format {
	case "tgz":
		return extractTgz(archive, dest)
	case "zip":
		return extractZip(archive, dest)
	}
	return fmt.Errorf("unsupported archive format %q", format)
}

// binEntry returns the file name of an archive entry inside bin/, or "".
func binEntry(name string) string {
	name = path.Clean(strings.ReplaceAll(name, `\`, "/"))
	dir, file := path.Split(name)
	if path.Base(strings.TrimSuffix(dir, "/")) != "bin" || file == "" {
		return ""
	}
	return file
}

func extractTgz(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", archive, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", archive, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := binEntry(hdr.Name)
		if name == "" {
			continue
		}
		if err := writeFile(filepath.Join(dest, name), tr); err != nil {
			return err
		}
	}
}

func extractZip(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("read %s: %w", archive, err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		name := binEntry(zf.Name)
		if name == "" {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return err
		}
		err = writeFile(filepath.Join(dest, name), rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(dst string, r io.Reader) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", dst, err)
	}
	return out.Close()
}
