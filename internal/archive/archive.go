// Package archive provides zip extraction for downloaded model archives.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const dirPermissions = 0o750

// ErrExtractFailed indicates a malformed archive or an I/O error during
// extraction. Partially extracted files are left in place.
var ErrExtractFailed = errors.New("archive extraction failed")

// ExtractZip unpacks archivePath into targetDir, preserving the archive's
// internal directory structure.
func ExtractZip(archivePath, targetDir string) error {
	reader, openErr := zip.OpenReader(archivePath)
	if openErr != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrExtractFailed, archivePath, openErr)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, entry := range reader.File {
		entryErr := extractEntry(entry, targetDir)
		if entryErr != nil {
			return fmt.Errorf("%w: entry %s: %w", ErrExtractFailed, entry.Name, entryErr)
		}
	}

	return nil
}

func extractEntry(entry *zip.File, targetDir string) error {
	destPath, pathErr := securePath(entry.Name, targetDir)
	if pathErr != nil {
		return pathErr
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(destPath, dirPermissions)
	}

	mkdirErr := os.MkdirAll(filepath.Dir(destPath), dirPermissions)
	if mkdirErr != nil {
		return mkdirErr
	}

	out, createErr := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entry.Mode())
	if createErr != nil {
		return createErr
	}

	in, openErr := entry.Open()
	if openErr != nil {
		_ = out.Close()

		return openErr
	}

	_, copyErr := io.Copy(out, in)

	_ = in.Close()

	closeErr := out.Close()

	if copyErr != nil {
		return copyErr
	}

	return closeErr
}

// securePath resolves an archive entry name under targetDir, rejecting names
// that would escape it.
func securePath(name, targetDir string) (string, error) {
	destPath := filepath.Join(targetDir, name)

	if !strings.HasPrefix(destPath, filepath.Clean(targetDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry path escapes target directory: %s", name)
	}

	return destPath, nil
}
