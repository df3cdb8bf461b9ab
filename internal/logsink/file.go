package logsink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LineEnding terminates every appended line.
const LineEnding = "\r\n"

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("logsink: file closed")

// File is an append-only message log. Each Append writes exactly one line.
type File struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// Resolve joins dir and name into an absolute path.
func Resolve(dir, name string) (string, error) {
	if name == "" {
		return "", errors.New("log file name is empty")
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(filepath.Join(dir, name))
}

// Open resolves dir/name once and opens the file for appending, creating the
// directory and file when missing.
func Open(dir, name string) (*File, error) {
	path, err := Resolve(dir, name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &File{file: f, path: path}, nil
}

// Path returns the resolved file path.
func (f *File) Path() string {
	return f.path
}

// Append writes line followed by CRLF in a single write.
func (f *File) Append(line []byte) error {
	buf := make([]byte, 0, len(line)+len(LineEnding))
	buf = append(buf, line...)
	buf = append(buf, LineEnding...)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return ErrClosed
	}
	if _, err := f.file.Write(buf); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// Close closes the file. Safe to call on nil receiver and more than once.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
