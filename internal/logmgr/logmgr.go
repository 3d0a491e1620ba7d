// Package logmgr provides the reserved log-manager hook the buffer pool may
// consult before writing a dirty page back to disk. No WAL record format or
// recovery is implemented here: the buffer pool core only needs a place to
// call Flush from, not a durable log.
package logmgr

import (
	"fmt"
	"os"
	"sync"
)

// Manager is the log-manager collaborator the buffer pool optionally holds.
// A nil Manager is always valid; callers that don't need write-ahead
// logging simply never construct one.
type Manager interface {
	// Flush durably persists everything logged so far. The buffer pool
	// manager calls this before writing a dirty frame back to disk.
	Flush() error
}

var _ Manager = (*FileManager)(nil)

// FileManager is a minimal log manager that appends raw bytes to a file and
// fsyncs on Flush. It exists so the buffer pool's flush-before-write-back
// hook has something real to call; it is not a WAL implementation.
type FileManager struct {
	mu   sync.Mutex
	file *os.File
}

// Open opens (creating if necessary) the log file at path.
func Open(path string) (*FileManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logmgr: open %s: %w", path, err)
	}
	return &FileManager{file: f}, nil
}

// Append writes raw bytes to the log. It does not flush.
func (m *FileManager) Append(record []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.file.Write(record); err != nil {
		return fmt.Errorf("logmgr: append: %w", err)
	}
	return nil
}

// Flush fsyncs the log file.
func (m *FileManager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("logmgr: flush: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (m *FileManager) Close() error {
	if err := m.Flush(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}
