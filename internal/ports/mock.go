package ports

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// MockCommandRunner is a thread-safe test double for CommandRunner.
// Results are keyed by the full invocation; unregistered invocations fail,
// which keeps provider tests honest about every call a step makes.
type MockCommandRunner struct {
	mu      sync.RWMutex
	results map[string]CommandResult
	errors  map[string]error
	calls   []CommandCall
}

// NewMockCommandRunner creates a new MockCommandRunner.
func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{
		results: make(map[string]CommandResult),
		errors:  make(map[string]error),
		calls:   make([]CommandCall, 0),
	}
}

// AddResult registers an expected command and its result.
func (m *MockCommandRunner) AddResult(command string, args []string, result CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[mockKey(command, args)] = result
}

// AddError registers an expected command that should return an error.
func (m *MockCommandRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[mockKey(command, args)] = err
}

// Run returns the registered result for the invocation.
func (m *MockCommandRunner) Run(_ context.Context, command string, args ...string) (CommandResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CommandCall{Command: command, Args: args})
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	key := mockKey(command, args)
	if err, ok := m.errors[key]; ok {
		return CommandResult{}, err
	}
	if result, ok := m.results[key]; ok {
		return result, nil
	}
	return CommandResult{}, fmt.Errorf("no mock result for command: %s %v", command, args)
}

// Calls returns all recorded command invocations.
func (m *MockCommandRunner) Calls() []CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]CommandCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of recorded invocations.
func (m *MockCommandRunner) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

func mockKey(command string, args []string) string {
	return command + "\x00" + strings.Join(args, "\x00")
}

// MockFileSystem is an in-memory test double for FileSystem.
type MockFileSystem struct {
	mu     sync.RWMutex
	files  map[string][]byte
	modes  map[string]os.FileMode
	owners map[string]string
	dirs   map[string]bool
}

// NewMockFileSystem creates an empty MockFileSystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files:  make(map[string][]byte),
		modes:  make(map[string]os.FileMode),
		owners: make(map[string]string),
		dirs:   make(map[string]bool),
	}
}

// ReadFile returns the stored contents of path.
func (m *MockFileSystem) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// WriteFile stores data at path.
func (m *MockFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[path] = stored
	m.modes[path] = perm
	return nil
}

// Exists reports whether path is a stored file or directory.
func (m *MockFileSystem) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[path]; ok {
		return true
	}
	return m.dirs[path]
}

// Remove deletes path.
func (m *MockFileSystem) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok && !m.dirs[path] {
		return &os.PathError{Op: "remove", Path: path, Err: os.ErrNotExist}
	}
	delete(m.files, path)
	delete(m.modes, path)
	delete(m.owners, path)
	delete(m.dirs, path)
	return nil
}

// MkdirAll records path as a directory.
func (m *MockFileSystem) MkdirAll(path string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
	return nil
}

// Rename moves a stored file.
func (m *MockFileSystem) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[oldPath]
	if !ok {
		return &os.PathError{Op: "rename", Path: oldPath, Err: os.ErrNotExist}
	}
	m.files[newPath] = data
	m.modes[newPath] = m.modes[oldPath]
	delete(m.files, oldPath)
	delete(m.modes, oldPath)
	return nil
}

// FileHash returns the hex-encoded SHA-256 of the stored contents.
func (m *MockFileSystem) FileHash(path string) (string, error) {
	data, err := m.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Chown records the owner for a stored file.
func (m *MockFileSystem) Chown(path, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return &os.PathError{Op: "chown", Path: path, Err: os.ErrNotExist}
	}
	m.owners[path] = owner
	return nil
}

// Owner returns the owner recorded for path, if any.
func (m *MockFileSystem) Owner(path string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owners[path]
}

// IsDir reports whether path was created via MkdirAll.
func (m *MockFileSystem) IsDir(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirs[path]
}

// GetFileInfo returns metadata for a stored file.
func (m *MockFileSystem) GetFileInfo(path string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if data, ok := m.files[path]; ok {
		return FileInfo{Size: int64(len(data)), Mode: m.modes[path], ModTime: time.Now()}, nil
	}
	if m.dirs[path] {
		return FileInfo{IsDir: true}, nil
	}
	return FileInfo{}, &os.PathError{Op: "stat", Path: path, Err: os.ErrNotExist}
}

// Ensure the mocks satisfy the ports they double.
var (
	_ CommandRunner = (*MockCommandRunner)(nil)
	_ FileSystem    = (*MockFileSystem)(nil)
)
