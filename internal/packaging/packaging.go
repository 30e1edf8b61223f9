// Package packaging builds the source archive uploaded to the artifact
// bucket. The build service unpacks the archive at the archive root, so
// entries are stored relative to the application directory.
package packaging

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gantryhq/gantry/internal/constants"
	apperrors "github.com/gantryhq/gantry/internal/errors"
)

// skippedDirs never ship in a source archive.
var skippedDirs = map[string]bool{
	constants.ConfigDirName: true,
	".git":                  true,
	"__pycache__":           true,
	"node_modules":          true,
	".venv":                 true,
	"venv":                  true,
}

// Archive zips the application directory into the local artifact path
// (.gantry/<name>.zip) and returns that path.
func Archive(dir, name string) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, constants.ManifestFileName)); err != nil {
		return "", apperrors.LocalEnvironment(
			fmt.Sprintf("missing %s in %s; nothing to package", constants.ManifestFileName, dir), err)
	}

	outDir := filepath.Join(dir, constants.ConfigDirName)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating %s: %w", outDir, err)
	}
	outPath := filepath.Join(outDir, name+".zip")

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("error creating archive %s: %w", outPath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	if err := addTree(zw, dir); err != nil {
		zw.Close()
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("error finalizing archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("error writing archive: %w", err)
	}
	return outPath, nil
}

func addTree(zw *zip.Writer, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasSuffix(rel, ".zip") {
			return nil
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})
}

func addFile(zw *zip.Writer, path, rel string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	defer src.Close()

	w, err := zw.Create(rel)
	if err != nil {
		return fmt.Errorf("error adding %s to archive: %w", rel, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("error compressing %s: %w", rel, err)
	}
	return nil
}
