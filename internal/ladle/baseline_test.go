package ladle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeGit tracks which git operations the synchronizer performed. Clone
// materializes the target directory so the stat checks behave like a real
// checkout appearing on disk.
type fakeGit struct {
	rev       string // current HEAD of the fake checkout
	cloneDir  string // directory Clone creates
	cloneRev  string // HEAD after a fresh clone
	cloned    bool
	fetched   bool
	checkouts []string
	revErr    error
}

func (f *fakeGit) Clone(url, parentDir string) error {
	f.cloned = true
	f.rev = f.cloneRev
	return os.MkdirAll(f.cloneDir, 0o755)
}

func (f *fakeGit) RevParse(dir string) (string, error) {
	if f.revErr != nil {
		return "", f.revErr
	}
	return f.rev, nil
}

func (f *fakeGit) Fetch(dir string) error {
	f.fetched = true
	return nil
}

func (f *fakeGit) Checkout(dir, rev string) error {
	f.checkouts = append(f.checkouts, rev)
	f.rev = rev
	return nil
}

type fakeBoot struct {
	dir   string
	calls int
	err   error
}

func (f *fakeBoot) Bootstrap(dir string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(filepath.Join(f.dir, "vcpkg"), []byte("#!/bin/sh\n"), 0o755)
}

func writeManifest(t *testing.T, dir, baseline string) string {
	t.Helper()
	path := filepath.Join(dir, "vcpkg.json")
	content := `{"name": "ladybird", "builtin-baseline": "` + baseline + `"}`
	if baseline == "" {
		content = `{"name": "ladybird"}`
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEnsureBaseline_MatchShortCircuits(t *testing.T) {
	dir := t.TempDir()
	vcpkgDir := filepath.Join(dir, "vcpkg")
	if err := os.MkdirAll(vcpkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vcpkgDir, "vcpkg"), []byte("bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := writeManifest(t, dir, "abc1234567")

	git := &fakeGit{rev: "abc1234567", cloneDir: vcpkgDir}
	boot := &fakeBoot{dir: vcpkgDir}

	root, err := EnsureBaseline(manifest, vcpkgDir, "https://example.invalid/vcpkg.git", git, boot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root != vcpkgDir {
		t.Errorf("root = %q, want %q", root, vcpkgDir)
	}
	if git.cloned || git.fetched || len(git.checkouts) != 0 {
		t.Errorf("network operations performed on matching baseline: clone=%v fetch=%v checkouts=%v",
			git.cloned, git.fetched, git.checkouts)
	}
	if boot.calls != 0 {
		t.Errorf("bootstrap ran %d times on a ready checkout", boot.calls)
	}
}

func TestEnsureBaseline_ShortHashPrefixMatches(t *testing.T) {
	dir := t.TempDir()
	vcpkgDir := filepath.Join(dir, "vcpkg")
	if err := os.MkdirAll(vcpkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vcpkgDir, "vcpkg"), []byte("bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Manifest pins the short form, the checkout reports the long form.
	manifest := writeManifest(t, dir, "abc1234")

	git := &fakeGit{rev: "abc1234567", cloneDir: vcpkgDir}
	boot := &fakeBoot{dir: vcpkgDir}

	if _, err := EnsureBaseline(manifest, vcpkgDir, "", git, boot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if git.fetched || boot.calls != 0 {
		t.Errorf("prefix-matching revision was not treated as a no-op: fetch=%v bootstraps=%d",
			git.fetched, boot.calls)
	}
}

func TestEnsureBaseline_MismatchFetchesCheckoutAndBootstraps(t *testing.T) {
	dir := t.TempDir()
	vcpkgDir := filepath.Join(dir, "vcpkg")
	if err := os.MkdirAll(vcpkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vcpkgDir, "vcpkg"), []byte("bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := writeManifest(t, dir, "def987")

	git := &fakeGit{rev: "abc1234567", cloneDir: vcpkgDir}
	boot := &fakeBoot{dir: vcpkgDir}

	if _, err := EnsureBaseline(manifest, vcpkgDir, "", git, boot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !git.fetched {
		t.Error("expected a fetch on revision mismatch")
	}
	if len(git.checkouts) != 1 || git.checkouts[0] != "def987" {
		t.Errorf("checkouts = %v, want [def987]", git.checkouts)
	}
	if boot.calls != 1 {
		t.Errorf("bootstrap calls = %d, want 1", boot.calls)
	}
	if !revisionsMatch(git.rev, "def987") {
		t.Errorf("ending revision %q does not match the pin", git.rev)
	}
}

func TestEnsureBaseline_MissingCheckoutClonesFirst(t *testing.T) {
	dir := t.TempDir()
	vcpkgDir := filepath.Join(dir, "build", "vcpkg")
	manifest := writeManifest(t, dir, "abc1234")

	git := &fakeGit{cloneDir: vcpkgDir, cloneRev: "abc1234567"}
	boot := &fakeBoot{dir: vcpkgDir}

	if _, err := EnsureBaseline(manifest, vcpkgDir, "", git, boot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !git.cloned {
		t.Error("expected a clone for the missing checkout")
	}
	// The fresh clone already sits at the pin (prefix), but was never
	// bootstrapped.
	if git.fetched {
		t.Error("unexpected fetch after a clone that matches the pin")
	}
	if boot.calls != 1 {
		t.Errorf("bootstrap calls = %d, want 1", boot.calls)
	}
}

func TestEnsureBaseline_NoPinAcceptsAnyRevision(t *testing.T) {
	dir := t.TempDir()
	vcpkgDir := filepath.Join(dir, "vcpkg")
	if err := os.MkdirAll(vcpkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := writeManifest(t, dir, "")

	git := &fakeGit{rev: "whatever", cloneDir: vcpkgDir}
	boot := &fakeBoot{dir: vcpkgDir}

	if _, err := EnsureBaseline(manifest, vcpkgDir, "", git, boot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if git.fetched || len(git.checkouts) != 0 {
		t.Errorf("unpinned manifest triggered network operations: fetch=%v checkouts=%v",
			git.fetched, git.checkouts)
	}
	// Missing bootstrap artifact still forces a bootstrap.
	if boot.calls != 1 {
		t.Errorf("bootstrap calls = %d, want 1", boot.calls)
	}
}

func TestEnsureBaseline_MissingArtifactRebootstrapsWithoutNetwork(t *testing.T) {
	dir := t.TempDir()
	vcpkgDir := filepath.Join(dir, "vcpkg")
	if err := os.MkdirAll(vcpkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := writeManifest(t, dir, "abc1234")

	git := &fakeGit{rev: "abc1234", cloneDir: vcpkgDir}
	boot := &fakeBoot{dir: vcpkgDir}

	if _, err := EnsureBaseline(manifest, vcpkgDir, "", git, boot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if git.fetched || git.cloned {
		t.Error("matching revision should not touch the network")
	}
	if boot.calls != 1 {
		t.Errorf("bootstrap calls = %d, want 1", boot.calls)
	}
}

func TestEnsureBaseline_MissingManifestIsError(t *testing.T) {
	dir := t.TempDir()
	git := &fakeGit{cloneDir: filepath.Join(dir, "vcpkg")}
	boot := &fakeBoot{dir: dir}

	_, err := EnsureBaseline(filepath.Join(dir, "vcpkg.json"), filepath.Join(dir, "vcpkg"), "", git, boot)
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestEnsureBaseline_BootstrapFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	vcpkgDir := filepath.Join(dir, "vcpkg")
	if err := os.MkdirAll(vcpkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := writeManifest(t, dir, "abc1234")

	bootErr := errors.New("bootstrap exploded")
	git := &fakeGit{rev: "abc1234", cloneDir: vcpkgDir}
	boot := &fakeBoot{dir: vcpkgDir, err: bootErr}

	_, err := EnsureBaseline(manifest, vcpkgDir, "", git, boot)
	if !errors.Is(err, bootErr) {
		t.Fatalf("err = %v, want wrapped bootstrap failure", err)
	}
}

func TestRevisionsMatch(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"abc1234", "abc1234", true},
		{"abc1234", "abc1234567", true},
		{"abc1234567", "abc1234", true},
		{"abc1234", "def987", false},
		{"", "abc1234", false},
		{"abc1234", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		if got := revisionsMatch(c.a, c.b); got != c.want {
			t.Errorf("revisionsMatch(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
