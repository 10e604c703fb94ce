package ladle

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitRunner abstracts the git invocations the baseline synchronizer needs.
type GitRunner interface {
	Clone(url, parentDir string) error
	RevParse(dir string) (string, error)
	Fetch(dir string) error
	Checkout(dir, rev string) error
}

// Bootstrapper produces the vendored tool's executable.
type Bootstrapper interface {
	Bootstrap(dir string) error
}

// execGit implements GitRunner with the real git binary.
type execGit struct {
	exec *Executor
}

func (g *execGit) Clone(url, parentDir string) error {
	cmd := exec.Command("git", "clone", url)
	cmd.Dir = parentDir
	return g.exec.Run(cmd)
}

func (g *execGit) RevParse(dir string) (string, error) {
	return g.exec.RunCapture(exec.Command("git", "-C", dir, "rev-parse", "HEAD"))
}

func (g *execGit) Fetch(dir string) error {
	return g.exec.Run(exec.Command("git", "-C", dir, "fetch", "origin"))
}

func (g *execGit) Checkout(dir, rev string) error {
	return g.exec.Run(exec.Command("git", "-C", dir, "checkout", rev))
}

// scriptBootstrapper runs the vendored checkout's own bootstrap script.
type scriptBootstrapper struct {
	exec *Executor
}

func (b *scriptBootstrapper) Bootstrap(dir string) error {
	script := filepath.Join(dir, "bootstrap-vcpkg.sh")
	if err := os.Chmod(script, 0o755); err != nil {
		return fmt.Errorf("failed to make bootstrap script executable: %w", err)
	}
	cmd := exec.Command(script, "-disableMetrics")
	cmd.Env = append(os.Environ(), "VCPKG_ROOT="+dir)
	return b.exec.Run(cmd)
}

// vcpkgManifest is the slice of vcpkg.json this tool cares about.
type vcpkgManifest struct {
	BuiltinBaseline string `json:"builtin-baseline"`
}

// readBaseline extracts the pinned revision from the upstream manifest.
// An absent field means no pin; an absent file is an error since the
// checkout is then incomplete.
func readBaseline(manifestPath string) (string, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", fmt.Errorf("failed to read manifest %s: %w", manifestPath, err)
	}
	var m vcpkgManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("failed to parse manifest %s: %w", manifestPath, err)
	}
	return m.BuiltinBaseline, nil
}

// revisionsMatch compares two revision identifiers, tolerating a short form
// on either side: they match when one is a prefix of the other. Empty strings
// never match anything.
func revisionsMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// EnsureBaseline brings the vendored checkout at vcpkgDir to the revision
// pinned in the manifest and makes sure its bootstrap artifact exists. When
// the checkout already sits at the pinned revision and the artifact is
// present, this is a no-op with zero network traffic. It returns the vcpkg
// root for the caller to thread into the build environment.
func EnsureBaseline(manifestPath, vcpkgDir, vcpkgURL string, git GitRunner, boot Bootstrapper) (string, error) {
	pinned, err := readBaseline(manifestPath)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(vcpkgDir); os.IsNotExist(err) {
		parent := filepath.Dir(vcpkgDir)
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", parent, err)
		}
		colArrow.Print("-> ")
		colSuccess.Printf("Cloning vcpkg into %s\n", vcpkgDir)
		if err := git.Clone(vcpkgURL, parent); err != nil {
			return "", fmt.Errorf("vcpkg clone failed: %w", err)
		}
	}

	// The local revision query may fail on a corrupt checkout; treat that as
	// "unknown revision" and let the mismatch path repair it.
	current, err := git.RevParse(vcpkgDir)
	if err != nil {
		current = ""
	}

	needsBootstrap := false
	if _, err := os.Stat(filepath.Join(vcpkgDir, "vcpkg")); err != nil {
		needsBootstrap = true
	}

	if pinned != "" && !revisionsMatch(current, pinned) {
		colArrow.Print("-> ")
		colSuccess.Printf("Updating vcpkg to pinned revision %s\n", pinned)
		if err := git.Fetch(vcpkgDir); err != nil {
			return "", fmt.Errorf("vcpkg fetch failed: %w", err)
		}
		if err := git.Checkout(vcpkgDir, pinned); err != nil {
			return "", fmt.Errorf("vcpkg checkout %s failed: %w", pinned, err)
		}
		needsBootstrap = true
	}

	if needsBootstrap {
		colArrow.Print("-> ")
		colSuccess.Println("Bootstrapping vcpkg")
		if err := boot.Bootstrap(vcpkgDir); err != nil {
			return "", fmt.Errorf("vcpkg bootstrap failed: %w", err)
		}
	} else {
		debugf("vcpkg already at pinned revision, nothing to do\n")
	}

	return vcpkgDir, nil
}
