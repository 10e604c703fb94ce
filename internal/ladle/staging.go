package ladle

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// launcherScript makes the staged tree relocatable: it resolves its own
// directory at run time and points the dynamic loader at the bundled libs.
const launcherScript = `#!/bin/bash
SCRIPT_DIR="$(cd "$(dirname "${BASH_SOURCE[0]}")" && pwd)"
export LD_LIBRARY_PATH="$SCRIPT_DIR/lib:$LD_LIBRARY_PATH"
exec "$SCRIPT_DIR/bin/Ladybird" "$@"
`

// runPackage transforms the build output into a distributable. Every stage is
// safe to re-run; the staging tree is rebuilt from scratch each time so no
// stale files leak between runs.
func runPackage(cfg *Config, execCtx *Executor, pkgType, name string) error {
	if _, err := os.Stat(cfg.ReleaseDir); os.IsNotExist(err) {
		return fmt.Errorf("build directory not found, run 'ladle build' first")
	}

	if err := installToStaging(cfg, execCtx); err != nil {
		return err
	}
	if err := collectSharedLibs(cfg); err != nil {
		return err
	}
	if err := pruneStaging(cfg.StagingDir); err != nil {
		return err
	}
	if err := writeLauncher(cfg.StagingDir); err != nil {
		return err
	}

	switch pkgType {
	case "appimage":
		return createAppImage(cfg, execCtx, name)
	case "tarball":
		return createTarball(cfg, name)
	default:
		return fmt.Errorf("unknown package type: %s", pkgType)
	}
}

// installToStaging wipes the staging tree and reruns the build system's
// install step into it, then hoists the nested usr/local prefix up to the
// staging root.
func installToStaging(cfg *Config, execCtx *Executor) error {
	if err := os.RemoveAll(cfg.StagingDir); err != nil {
		return fmt.Errorf("failed to clear staging dir: %w", err)
	}
	if err := os.MkdirAll(cfg.StagingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}

	absStaging, err := filepath.Abs(cfg.StagingDir)
	if err != nil {
		return err
	}
	cmd := exec.Command("cmake", "--install", cfg.ReleaseDir)
	cmd.Env = append(os.Environ(), "DESTDIR="+absStaging)
	colArrow.Print("-> ")
	colSuccess.Println("Installing build output to staging")
	if err := execCtx.Run(cmd); err != nil {
		return fmt.Errorf("cmake install failed: %w", err)
	}

	return hoistPrefix(cfg.StagingDir, filepath.Join("usr", "local"))
}

// hoistPrefix moves everything under stagingDir/prefix up to stagingDir and
// removes the now-empty prefix wrapper. No-op when the prefix doesn't exist.
func hoistPrefix(stagingDir, prefix string) error {
	nested := filepath.Join(stagingDir, prefix)
	if _, err := os.Stat(nested); os.IsNotExist(err) {
		return nil
	}

	entries, err := os.ReadDir(nested)
	if err != nil {
		return err
	}
	for _, e := range entries {
		src := filepath.Join(nested, e.Name())
		dst := filepath.Join(stagingDir, e.Name())
		if err := moveEntry(src, dst); err != nil {
			return fmt.Errorf("failed to relocate %s: %w", src, err)
		}
	}

	// Remove the outermost wrapper component, e.g. usr/ for usr/local.
	top := strings.SplitN(prefix, string(os.PathSeparator), 2)[0]
	return os.RemoveAll(filepath.Join(stagingDir, top))
}

// collectSharedLibs copies every shared library from the build output and the
// per-dependency lib dirs produced by the package manager into staging's lib
// directory. Directories that don't exist are skipped.
func collectSharedLibs(cfg *Config) error {
	destLib := filepath.Join(cfg.StagingDir, "lib")
	if err := os.MkdirAll(destLib, 0o755); err != nil {
		return err
	}

	libDirs := []string{filepath.Join(cfg.ReleaseDir, "lib")}
	vcpkgInstalled := filepath.Join(cfg.ReleaseDir, "vcpkg_installed")
	if entries, err := os.ReadDir(vcpkgInstalled); err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(vcpkgInstalled, e.Name(), "lib")
			if _, err := os.Stat(dir); err == nil {
				libDirs = append(libDirs, dir)
			}
		}
	}

	for _, dir := range libDirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*.so*"))
		if err != nil {
			return err
		}
		for _, so := range matches {
			if err := copyFile(so, filepath.Join(destLib, filepath.Base(so))); err != nil {
				return fmt.Errorf("failed to copy %s: %w", so, err)
			}
			debugf("Copied %s\n", filepath.Base(so))
		}
	}
	return nil
}

// pruneStaging deletes build-time-only artifacts (static archives and build
// system descriptor files) anywhere under the staging tree.
func pruneStaging(stagingDir string) error {
	return filepath.WalkDir(stagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".a") || strings.HasSuffix(path, ".cmake") {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to prune %s: %w", path, err)
			}
		}
		return nil
	})
}

// writeLauncher drops the relocatable launcher into the staging root.
func writeLauncher(stagingDir string) error {
	launcher := filepath.Join(stagingDir, "ladybird")
	if err := os.WriteFile(launcher, []byte(launcherScript), 0o755); err != nil {
		return fmt.Errorf("failed to write launcher: %w", err)
	}
	return nil
}
