package storage

import (
	"chat-session/contract"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TempFiles keeps local copies of attachments under a single directory.
// A staged copy survives a failed upload so the message can be resent.
type TempFiles struct {
	log *slog.Logger
	dir string
}

var _ contract.FileStore = (*TempFiles)(nil)

func NewTempFiles(log *slog.Logger, dir string) (*TempFiles, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("temp dir %s: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("temp dir %s: %w", dir, err)
	}
	return &TempFiles{log: log, dir: abs}, nil
}

// Stage copies source into its own subdirectory, keeping the base name, and returns the copy's path.
// Two sources with the same name never share a copy.
// A source already inside the directory is returned as is.
func (s *TempFiles) Stage(source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	if s.contains(abs) {
		return abs, nil
	}
	slot := filepath.Join(s.dir, uuid.NewString())
	if err := os.Mkdir(slot, 0o700); err != nil {
		return "", err
	}
	destination := filepath.Join(slot, sanitize(filepath.Base(abs)))

	in, err := os.Open(abs)
	if err != nil {
		os.Remove(slot)
		return "", err
	}
	defer in.Close()
	out, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		os.Remove(slot)
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.RemoveAll(slot)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.RemoveAll(slot)
		return "", err
	}
	s.log.Debug("Attachment staged", "source", source, "path", destination)
	return destination, nil
}

func (s *TempFiles) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}

// Remove deletes path and the staging subdirectory it lived in.
// A file that is already gone is not an error.
func (s *TempFiles) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	if slot := filepath.Dir(path); slot != s.dir && s.contains(slot) {
		// Only succeeds once the slot is empty
		_ = os.Remove(slot)
	}
	return nil
}

// Path returns where a file called name lives in the directory.
func (s *TempFiles) Path(name string) string {
	return filepath.Join(s.dir, sanitize(name))
}

func (s *TempFiles) contains(path string) bool {
	rel, err := filepath.Rel(s.dir, path)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

func sanitize(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, "..", "")
	base = strings.ReplaceAll(base, "\\", "_")
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "attachment"
	}
	return base
}
