package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fsys := OSFileSystem{}

	if !fsys.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fsys.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestWriteFileAtomic_OS(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "arrow.html")

	if err := WriteFileAtomic(OSFileSystem{}, target, []byte("first")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(OSFileSystem{}, target, []byte("second")); err != nil {
		t.Fatalf("WriteFileAtomic overwrite failed: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected %q, got %q", "second", data)
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestWriteFileAtomic_Memory(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := WriteFileAtomic(mfs, "/out/trace.png", []byte("png")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	if got := mfs.Files(); len(got) != 1 || got[0] != "/out/trace.png" {
		t.Errorf("unexpected files: %v", got)
	}
	if !mfs.Exists("/out") {
		t.Error("expected parent directory to exist")
	}
	if mfs.Writes() != 1 {
		t.Errorf("expected 1 write, got %d", mfs.Writes())
	}
}

func TestWriteFileAtomic_WriteFailure(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.FailWrites = true

	err := WriteFileAtomic(mfs, "/out/arrow.html", []byte("x"))
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("expected permission error, got %v", err)
	}
	if mfs.Exists("/out/arrow.html") {
		t.Error("target should not exist after failed write")
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	if err := mfs.WriteFile("/test.txt", testData, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}

	// Mutating the input must not change stored content
	testData[0] = 'J'
	data, _ = mfs.ReadFile("/test.txt")
	if string(data) != "hello, world" {
		t.Errorf("stored data was aliased: %q", data)
	}
}

func TestMemoryFileSystem_RenameAndRemove(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/a", []byte("a"), 0644)

	if err := mfs.Rename("/a", "/b"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if mfs.Exists("/a") || !mfs.Exists("/b") {
		t.Error("rename did not move the file")
	}
	if err := mfs.Rename("/missing", "/c"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	if err := mfs.Remove("/b"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := mfs.Remove("/b"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist on second remove, got %v", err)
	}
	if _, err := mfs.ReadFile("/b"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist on read, got %v", err)
	}
}
