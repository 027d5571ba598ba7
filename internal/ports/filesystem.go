package ports

import (
	"os"
	"time"
)

// FileInfo contains file metadata.
type FileInfo struct {
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	IsDir   bool
}

// FileSystem provides the file system operations step kinds need to render
// and verify managed artifacts (netplan fragments, sysctl drop-ins, unit
// files, arbitrary file resources).
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	Exists(path string) bool
	Remove(path string) error
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldPath, newPath string) error
	// FileHash returns the hex-encoded SHA-256 of the file's contents.
	FileHash(path string) (string, error)
	// Chown sets the file's owner, given as "user" or "user:group".
	Chown(path, owner string) error
	IsDir(path string) bool
	GetFileInfo(path string) (FileInfo, error)
}
