package blackmarble

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	extractMu   sync.Mutex
	extractDone = make(map[string]string)
)

// ExtractArchive extracts the zip archive at zipPath into dir and returns
// the resolved store directory. Extraction happens at most once per process
// for a given archive and directory pair; later calls with the same inputs
// return the cached location without touching the filesystem.
func ExtractArchive(zipPath, dir string) (string, error) {
	extractMu.Lock()
	defer extractMu.Unlock()

	key := zipPath + "\x00" + dir
	if resolved, ok := extractDone[key]; ok {
		return resolved, nil
	}
	if err := extractZip(zipPath, dir); err != nil {
		return "", err
	}
	extractDone[key] = dir
	return dir, nil
}

func extractZip(zipPath, dir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range r.File {
		name := filepath.Clean(filepath.FromSlash(f.Name))
		if name == "." || strings.HasPrefix(name, "..") {
			return fmt.Errorf("%s: archive entry escapes %s", f.Name, dir)
		}
		dest := filepath.Join(dir, name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := extractZipFile(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, dest string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
