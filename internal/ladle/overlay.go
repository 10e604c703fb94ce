package ladle

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Patch is one local modification against the upstream checkout. Patches are
// read-only inputs; the file name decides apply order.
type Patch struct {
	Name string
	Path string
}

// PatchRunner abstracts the tool that probes and applies patches, so the
// overlay logic can be tested against synthetic checkouts.
type PatchRunner interface {
	// Probe reports whether p applies cleanly in the given direction.
	// It must not mutate the working tree.
	Probe(p Patch, reverse bool) bool
	// Apply applies p for real (reverse-applies when reverse is set).
	Apply(p Patch, reverse bool) error
}

// gitPatchRunner drives `git apply` against a checkout.
type gitPatchRunner struct {
	checkoutDir string
	exec        *Executor
}

func newGitPatchRunner(checkoutDir string, execCtx *Executor) *gitPatchRunner {
	return &gitPatchRunner{checkoutDir: checkoutDir, exec: execCtx}
}

func (g *gitPatchRunner) Probe(p Patch, reverse bool) bool {
	args := []string{"-C", g.checkoutDir, "apply"}
	if reverse {
		args = append(args, "--reverse")
	}
	args = append(args, "--check", p.Path)
	return g.exec.RunQuiet(exec.Command("git", args...)) == nil
}

func (g *gitPatchRunner) Apply(p Patch, reverse bool) error {
	args := []string{"-C", g.checkoutDir, "apply"}
	if reverse {
		args = append(args, "--reverse")
	}
	args = append(args, p.Path)
	return g.exec.RunQuiet(exec.Command("git", args...))
}

// LoadPatchSet collects *.diff files from dir, sorted ascending by name.
// A missing directory simply means an empty overlay.
func LoadPatchSet(dir string) ([]Patch, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read patches dir %s: %w", dir, err)
	}

	var set []Patch
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".diff") {
			continue
		}
		set = append(set, Patch{Name: e.Name(), Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(set, func(i, j int) bool { return set[i].Name < set[j].Name })
	return set, nil
}

// ApplyPatches lays the overlay onto the checkout, ascending by name. A patch
// whose changes are already present (its reverse probe succeeds) is skipped
// with a notice; a patch that passes neither probe leaves the tree in an
// unknown state and is fatal.
func ApplyPatches(set []Patch, runner PatchRunner) error {
	for _, p := range set {
		if runner.Probe(p, false) {
			colArrow.Print("-> ")
			colSuccess.Printf("Applying patch: %s\n", p.Name)
			if err := runner.Apply(p, false); err != nil {
				return fmt.Errorf("failed to apply patch %s: %w", p.Name, err)
			}
			continue
		}
		if runner.Probe(p, true) {
			cPrintf(colInfo, "Patch %s already applied (skipping)\n", p.Name)
			continue
		}
		return fmt.Errorf("patch %s neither applies nor reverse-applies", p.Name)
	}
	return nil
}

// RevertPatches undoes the overlay in exact reverse order, so patches that
// textually depend on earlier ones come off first. Patches whose reverse
// probe fails are treated as not currently applied and skipped; this makes
// revert safe after a partial apply, after a prior revert, and against a
// checkout that doesn't exist at all. A failing revert of one patch does not
// stop the rest; all failures come back joined.
func RevertPatches(set []Patch, runner PatchRunner) error {
	var errs []error
	for i := len(set) - 1; i >= 0; i-- {
		p := set[i]
		if !runner.Probe(p, true) {
			debugf("Patch %s not currently applied, nothing to revert\n", p.Name)
			continue
		}
		colArrow.Print("-> ")
		colSuccess.Printf("Reverting patch: %s\n", p.Name)
		if err := runner.Apply(p, true); err != nil {
			errs = append(errs, fmt.Errorf("failed to revert patch %s: %w", p.Name, err))
		}
	}
	return errors.Join(errs...)
}
