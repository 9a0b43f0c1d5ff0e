// Package archive relocates fully processed device folders into backup
// storage. The move is the commit point that marks a folder processed.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ArchiveConflictError reports a backup name collision. The source folder
// and the existing backup are both left untouched; overwrite and merge are
// deliberately not offered.
type ArchiveConflictError struct {
	Folder string
	Backup string
}

func (e *ArchiveConflictError) Error() string {
	return fmt.Sprintf("archive %s: backup %s already exists", e.Folder, e.Backup)
}

// Archiver is the sole writer of the backup namespace. The existence check
// and the rename are serialized under one mutex so two workers cannot both
// observe "no conflict" and claim the same backup name.
type Archiver struct {
	mu  sync.Mutex
	dir string
}

// NewArchiver creates the backup directory if needed.
func NewArchiver(dir string) (*Archiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create dir %q: %w", dir, err)
	}
	return &Archiver{dir: dir}, nil
}

// Archive moves the device folder at src into backup storage under its base
// name. The rename is atomic with respect to the folder's identity: either
// the whole folder moves or nothing does.
func (a *Archiver) Archive(src string) error {
	dest := filepath.Join(a.dir, filepath.Base(src))

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := os.Lstat(dest); err == nil {
		return &ArchiveConflictError{Folder: src, Backup: dest}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("archive: stat %q: %w", dest, err)
	}

	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("archive: move %q: %w", src, err)
	}
	return nil
}
