package ladle

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// BuildOptions are the per-invocation knobs for the build step. Zero values
// fall back to the config defaults.
type BuildOptions struct {
	CC     string
	CXX    string
	Jobs   int
	Preset string
	Clean  bool
}

// runSetup acquires the upstream checkout and synchronizes the vendored
// package manager to its pinned baseline.
func runSetup(cfg *Config, execCtx *Executor) error {
	if err := cloneOrUpdate(cfg, execCtx); err != nil {
		return err
	}
	_, err := ensureVcpkg(cfg, execCtx)
	return err
}

// ensureVcpkg runs the baseline synchronizer with the real git and bootstrap
// collaborators and returns the vcpkg root to thread into the build.
func ensureVcpkg(cfg *Config, execCtx *Executor) (string, error) {
	manifest := cfg.CheckoutDir + "/vcpkg.json"
	root, err := EnsureBaseline(manifest, cfg.VcpkgDir, cfg.VcpkgURL,
		&execGit{exec: execCtx}, &scriptBootstrapper{exec: execCtx})
	if err != nil {
		return "", err
	}

	// Honor an operator-provided binary cache location.
	if cache := os.Getenv("VCPKG_DEFAULT_BINARY_CACHE"); cache != "" {
		if err := os.MkdirAll(cache, 0o755); err != nil {
			return "", fmt.Errorf("failed to create vcpkg binary cache %s: %w", cache, err)
		}
	}
	return root, nil
}

// runBuild configures and compiles the checkout with the local overlay
// applied. The overlay comes off again on every exit path, build failure
// included.
func runBuild(cfg *Config, execCtx *Executor, opts BuildOptions) (retErr error) {
	if _, err := os.Stat(cfg.CheckoutDir); os.IsNotExist(err) {
		return fmt.Errorf("checkout directory not found, run 'ladle setup' first")
	}
	if err := os.MkdirAll(cfg.BuildDir, 0o755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	vcpkgRoot, err := ensureVcpkg(cfg, execCtx)
	if err != nil {
		return err
	}

	if opts.Clean {
		cPrintln(colInfo, "Cleaning build directory")
		if err := os.RemoveAll(cfg.ReleaseDir); err != nil {
			return fmt.Errorf("failed to clean %s: %w", cfg.ReleaseDir, err)
		}
	}

	cc := opts.CC
	if cc == "" {
		cc = cfg.CC
	}
	cxx := opts.CXX
	if cxx == "" {
		cxx = cfg.CXX
	}
	preset := opts.Preset
	if preset == "" {
		preset = cfg.Preset
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = cfg.Jobs
	}

	cPrintf(colInfo, "Using compiler: %s / %s\n", cc, cxx)
	if _, err := exec.LookPath(cc); err != nil {
		return fmt.Errorf("compiler not found: %s", cc)
	}
	if _, err := exec.LookPath(cxx); err != nil {
		return fmt.Errorf("compiler not found: %s", cxx)
	}

	ninja, err := exec.LookPath("ninja")
	if err != nil {
		ninja, err = exec.LookPath("ninja-build")
		if err != nil {
			return fmt.Errorf("ninja not found, install ninja-build")
		}
	}

	patches, err := LoadPatchSet(cfg.PatchesDir)
	if err != nil {
		return err
	}
	runner := newGitPatchRunner(cfg.CheckoutDir, execCtx)
	// Revert runs on every exit path from here on. Registered before the
	// apply so an abort partway through an apply still rolls back the
	// patches that did land.
	defer func() {
		if err := RevertPatches(patches, runner); err != nil {
			colError.Printf("Patch revert incomplete: %v\n", err)
			if retErr == nil {
				retErr = err
			}
		}
	}()
	if err := ApplyPatches(patches, runner); err != nil {
		return err
	}

	configure := exec.Command("cmake",
		"-S", ".",
		"-B", "Build/release",
		"--preset", preset,
		"-DCMAKE_CXX_COMPILER="+cxx,
		"-DCMAKE_C_COMPILER="+cc,
		"-DCMAKE_MAKE_PROGRAM="+ninja,
		"-DENABLE_CI_BASELINE_CPU=ON",
	)
	configure.Dir = cfg.CheckoutDir
	configure.Env = append(os.Environ(), "VCPKG_ROOT="+vcpkgRoot)
	if err := execCtx.Run(configure); err != nil {
		return fmt.Errorf("cmake configure failed: %w", err)
	}

	compile := exec.Command(ninja, "-C", cfg.ReleaseDir, "-j", strconv.Itoa(jobs))
	compile.Env = append(os.Environ(), "VCPKG_ROOT="+vcpkgRoot)
	if err := execCtx.Run(compile); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return nil
}
