package ladle

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCopyTree_PreservesSymlinksAndModes(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")

	writeTestFile(t, filepath.Join(src, "bin", "app"), "elf")
	if err := os.Chmod(filepath.Join(src, "bin", "app"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, filepath.Join(src, "lib", "libx.so.1"), "so")
	if err := os.Symlink("libx.so.1", filepath.Join(src, "lib", "libx.so")); err != nil {
		t.Fatal(err)
	}

	if err := copyTree(src, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(filepath.Join(dst, "bin", "app"))
	if err != nil {
		t.Fatalf("copied binary missing: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}

	link, err := os.Readlink(filepath.Join(dst, "lib", "libx.so"))
	if err != nil {
		t.Fatalf("symlink not recreated: %v", err)
	}
	if link != "libx.so.1" {
		t.Errorf("symlink target = %q, want libx.so.1", link)
	}
}

func TestMoveEntry_Rename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	writeTestFile(t, src, "content")

	if err := moveEntry(src, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source still present after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "content" {
		t.Errorf("destination content = %q, %v", data, err)
	}
}

func TestFindLatestArtifact_PicksNewestDistributable(t *testing.T) {
	out := t.TempDir()
	writeTestFile(t, filepath.Join(out, "old.tar.gz"), "old")
	writeTestFile(t, filepath.Join(out, "notes.txt"), "ignored")
	newest := filepath.Join(out, "Ladybird-x86_64.AppImage")
	writeTestFile(t, newest, "new")

	// Make mtimes unambiguous.
	older := filepath.Join(out, "old.tar.gz")
	info, err := os.Stat(newest)
	if err != nil {
		t.Fatal(err)
	}
	past := info.ModTime().Add(-time.Minute)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := findLatestArtifact(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != newest {
		t.Errorf("artifact = %q, want %q", got, newest)
	}
}

func TestFindLatestArtifact_EmptyOutputIsError(t *testing.T) {
	out := t.TempDir()
	writeTestFile(t, filepath.Join(out, "notes.txt"), "ignored")

	if _, err := findLatestArtifact(out); err == nil {
		t.Fatal("expected error with no distributables present")
	}
}
