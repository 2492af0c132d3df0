package report

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// writeZip creates a zip archive at path containing the named files, stored
// flat under their base names. The archive is written to a temporary file
// and renamed into place so a failed run never leaves a truncated zip.
func writeZip(path string, files []string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpName := tmp.Name()

	zw := zip.NewWriter(tmp)
	err = addFiles(zw, files)
	if closeErr := zw.Close(); err == nil {
		err = closeErr
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addFiles(zw *zip.Writer, files []string) error {
	for _, file := range files {
		if err := addFile(zw, file); err != nil {
			return fmt.Errorf("archive %s: %w", file, err)
		}
	}
	return nil
}

func addFile(zw *zip.Writer, file string) error {
	src, err := os.Open(file)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(file)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
