package extractor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLargestFileSingleEntry(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "source.mp4")
	if err := os.WriteFile(want, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := largestFile(dir)
	if err != nil {
		t.Fatalf("largestFile: %v", err)
	}
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestLargestFilePicksBiggest(t *testing.T) {
	dir := t.TempDir()
	thumb := filepath.Join(dir, "source.jpg")
	media := filepath.Join(dir, "source.mp4")
	if err := os.WriteFile(thumb, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(media, []byte("a much larger payload of video bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := largestFile(dir)
	if err != nil {
		t.Fatalf("largestFile: %v", err)
	}
	if got != media {
		t.Errorf("expected %s (the larger file), got %s", media, got)
	}
}

func TestLargestFileEmptyDir(t *testing.T) {
	dir := t.TempDir()
	if _, err := largestFile(dir); err == nil {
		t.Fatal("expected an error for a dir with no output file")
	}
}
