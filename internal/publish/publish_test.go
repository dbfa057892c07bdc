package publish

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPublishSameFilesystem(t *testing.T) {
	root := t.TempDir()
	tempPath := filepath.Join(root, "staging.mkv")
	if err := os.WriteFile(tempPath, []byte("mezzanine bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	storageRoot := filepath.Join(root, "storage")
	finalPath, err := Publish(tempPath, storageRoot, "job-1")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	want := filepath.Join(storageRoot, "job-1", "download.mkv")
	if finalPath != want {
		t.Errorf("finalPath = %q, want %q", finalPath, want)
	}

	data, err := os.ReadFile(finalPath)
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	if string(data) != "mezzanine bytes" {
		t.Errorf("published content = %q", data)
	}

	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Errorf("expected staging file to be gone, got err=%v", err)
	}
}

func TestPublishCreatesJobDir(t *testing.T) {
	root := t.TempDir()
	tempPath := filepath.Join(root, "staging.mkv")
	os.WriteFile(tempPath, []byte("x"), 0644)

	storageRoot := filepath.Join(root, "does", "not", "exist", "yet")
	if _, err := Publish(tempPath, storageRoot, "job-2"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	info, err := os.Stat(filepath.Join(storageRoot, "job-2", "download.mkv"))
	if err != nil {
		t.Fatalf("stat published file: %v", err)
	}
	if info.Size() != 1 {
		t.Errorf("published file size = %d, want 1", info.Size())
	}
}

func TestUnpublishRemovesJobDir(t *testing.T) {
	root := t.TempDir()
	jobDir := filepath.Join(root, "job-3")
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(jobDir, "download.mkv"), []byte("partial"), 0644)

	if err := Unpublish(root, "job-3"); err != nil {
		t.Fatalf("Unpublish: %v", err)
	}
	if _, err := os.Stat(jobDir); !os.IsNotExist(err) {
		t.Errorf("expected job dir removed, got err=%v", err)
	}
}

func TestPublishMissingSource(t *testing.T) {
	root := t.TempDir()
	if _, err := Publish(filepath.Join(root, "missing.mkv"), filepath.Join(root, "storage"), "job-4"); err == nil {
		t.Error("expected error publishing a nonexistent staged file")
	}
}
