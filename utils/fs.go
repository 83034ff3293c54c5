package utils

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mdobak/go-xerrors"
)

var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
}

// IsAudioFile reports whether the path has a supported audio extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// FindAudioFiles lists supported audio files directly inside dir,
// sorted by name. A missing directory yields an empty list, not an error.
func FindAudioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.New("listing audio files", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsAudioFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// CreateFolder creates a directory (and parents) if it does not exist.
func CreateFolder(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return xerrors.New("creating folder", err)
	}
	return nil
}

// MoveFile renames a file, falling back to copy+delete across devices.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return xerrors.New("opening source file", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return xerrors.New("creating destination file", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return xerrors.New("copying file", err)
	}
	return os.Remove(src)
}
