package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func makeFolder(t *testing.T, parent, name, marker string) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "unit.log"), []byte(marker), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return dir
}

func TestArchiveMovesWholeFolder(t *testing.T) {
	src := t.TempDir()
	backups := t.TempDir()
	folder := makeFolder(t, src, "1_5", "payload")

	a, err := NewArchiver(backups)
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}
	if err := a.Archive(folder); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	if _, err := os.Stat(folder); !os.IsNotExist(err) {
		t.Fatalf("source folder still present")
	}
	data, err := os.ReadFile(filepath.Join(backups, "1_5", "unit.log"))
	if err != nil {
		t.Fatalf("backup content missing: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("backup content = %q", data)
	}
}

func TestArchiveConflictLeavesBothSidesUntouched(t *testing.T) {
	src := t.TempDir()
	backups := t.TempDir()
	folder := makeFolder(t, src, "1_5", "fresh")
	makeFolder(t, backups, "1_5", "old")

	a, err := NewArchiver(backups)
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}
	err = a.Archive(folder)
	var conflict *ArchiveConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want ArchiveConflictError", err)
	}

	data, err := os.ReadFile(filepath.Join(folder, "unit.log"))
	if err != nil || string(data) != "fresh" {
		t.Fatalf("source folder modified: %q, %v", data, err)
	}
	data, err = os.ReadFile(filepath.Join(backups, "1_5", "unit.log"))
	if err != nil || string(data) != "old" {
		t.Fatalf("existing backup modified: %q, %v", data, err)
	}
}

func TestArchiveConcurrentClaimsOneWinner(t *testing.T) {
	backups := t.TempDir()
	a, err := NewArchiver(backups)
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}

	// Two separate source folders with the same base name race for the
	// same backup slot; exactly one must win.
	var folders []string
	for i := range 2 {
		parent := t.TempDir()
		folders = append(folders, makeFolder(t, parent, "9_9", fmt.Sprintf("worker-%d", i)))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(folders))
	for i, folder := range folders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = a.Archive(folder)
		}()
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		var conflict *ArchiveConflictError
		if errors.As(err, &conflict) {
			conflicts++
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if conflicts != 1 {
		t.Fatalf("conflicts = %d, want exactly 1", conflicts)
	}
}
