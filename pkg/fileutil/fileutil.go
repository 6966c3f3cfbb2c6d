// Package fileutil provides file helpers: atomic tmp+mv writes and locating
// the pieces of a Rekordbox export on disk.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// PDBRelPath is where export.pdb lives relative to the export root (the
// root of the USB stick or SD card).
const PDBRelPath = "PIONEER/rekordbox/export.pdb"

// ErrExportNotFound is returned when no export.pdb can be located.
var ErrExportNotFound = errors.New("export.pdb not found")

// Exists returns true if the file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsNonEmpty returns true if the file exists and has non-zero size.
func IsNonEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// LocateExport resolves path to an export.pdb file and its export root.
// path may be the export.pdb itself, the export root, or the PIONEER
// directory. When export.pdb sits outside the usual layout its directory
// is used as the root.
func LocateExport(path string) (pdbPath, root string, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", fmt.Errorf("%w: %s", ErrExportNotFound, path)
		}
		return "", "", fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return path, ExportRoot(path), nil
	}

	candidates := []string{
		filepath.Join(path, filepath.FromSlash(PDBRelPath)),
		filepath.Join(path, "rekordbox", "export.pdb"),
		filepath.Join(path, "export.pdb"),
	}
	for _, c := range candidates {
		if IsNonEmpty(c) {
			return c, ExportRoot(c), nil
		}
	}
	return "", "", fmt.Errorf("%w under %s", ErrExportNotFound, path)
}

// ExportRoot returns the export root for an export.pdb path: three levels
// up when it sits at PIONEER/rekordbox/export.pdb, its own directory
// otherwise.
func ExportRoot(pdbPath string) string {
	dir := filepath.Dir(pdbPath)
	parent := filepath.Dir(dir)
	if strings.EqualFold(filepath.Base(dir), "rekordbox") && strings.EqualFold(filepath.Base(parent), "PIONEER") {
		return filepath.Dir(parent)
	}
	return dir
}

// WriteTmpThenMove writes to a temporary file then atomically moves it to the final path.
// The writeFunc receives the temporary path and should write the complete file.
// On success, the file is moved to outPath atomically.
func WriteTmpThenMove(tmpDir, outPath string, writeFunc func(tmpPath string) error) error {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("create tmp dir: %w", err)
	}

	tmpPath := filepath.Join(tmpDir, filepath.Base(outPath)+".tmp")

	if err := writeFunc(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := syncFile(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp to final: %w", err)
	}

	return nil
}

// syncFile opens, syncs, and closes a file.
func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	err = f.Sync()
	f.Close()
	return err
}

// CleanupTmpFiles removes all .tmp files in the given directory recursively.
func CleanupTmpFiles(dir string, log zerolog.Logger) error {
	var removed int
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr
		}
		if !d.IsDir() && strings.HasSuffix(path, ".tmp") {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})

	if removed > 0 {
		log.Debug().Int("files_removed", removed).Str("dir", dir).Msg("cleaned up tmp files")
	}

	return err
}
