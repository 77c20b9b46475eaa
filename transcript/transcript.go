// Package transcript mirrors streamed responses into a markdown side file.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fwojciec/drip"
)

// Markers delimiting one response in the transcript.
const (
	BeginMarker = "\n## AI\n"
	EndMarker   = "\n## End AI\n"
)

// DefaultName is the transcript file name used in the home directory.
const DefaultName = "drip-output.md"

var _ drip.TranscriptMirror = (*File)(nil)

// File appends markers to a file, creating it on first use.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a File writing to path.
func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultPath returns ~/drip-output.md.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("transcript: home directory: %w", err)
	}
	return filepath.Join(home, DefaultName), nil
}

// Path returns the file the transcript is written to.
func (f *File) Path() string { return f.path }

// AppendBeginMarker writes the marker that opens a response.
func (f *File) AppendBeginMarker() error {
	return f.append(BeginMarker)
}

// AppendEndMarker writes the marker that closes a response.
func (f *File) AppendEndMarker() error {
	return f.append(EndMarker)
}

func (f *File) append(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("transcript: open: %w", err)
	}
	if _, err := file.WriteString(s); err != nil {
		file.Close()
		return fmt.Errorf("transcript: write: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("transcript: close: %w", err)
	}
	return nil
}
