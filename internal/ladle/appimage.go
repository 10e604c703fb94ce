package ladle

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const appRunScript = `#!/bin/bash
HERE="$(dirname "$(readlink -f "${0}")")"
export LD_LIBRARY_PATH="$HERE/usr/lib:$LD_LIBRARY_PATH"
export PATH="$HERE/usr/bin:$PATH"
exec "$HERE/usr/bin/Ladybird" "$@"
`

const desktopEntry = `[Desktop Entry]
Name=Ladybird
Exec=Ladybird
Icon=ladybird
Type=Application
Categories=Network;WebBrowser;
Terminal=false
`

// createAppImage assembles a conventional AppDir from the staging tree and
// invokes appimagetool on it, downloading the tool on first use.
func createAppImage(cfg *Config, execCtx *Executor, name string) error {
	outputName := name
	if outputName == "" {
		outputName = "Ladybird-x86_64.AppImage"
	}
	if !strings.HasSuffix(outputName, ".AppImage") {
		outputName += ".AppImage"
	}

	if _, err := os.Stat(cfg.AppImageTool); os.IsNotExist(err) {
		if err := downloadFile(cfg.AppImageToolURL, cfg.AppImageTool); err != nil {
			return fmt.Errorf("failed to fetch appimagetool: %w", err)
		}
		if err := os.Chmod(cfg.AppImageTool, 0o755); err != nil {
			return err
		}
	}

	appDir := filepath.Join(cfg.OutputDir, "AppDir")
	if err := os.RemoveAll(appDir); err != nil {
		return fmt.Errorf("failed to clear AppDir: %w", err)
	}
	usr := filepath.Join(appDir, "usr")
	if err := os.MkdirAll(usr, 0o755); err != nil {
		return err
	}

	if err := copyTree(filepath.Join(cfg.StagingDir, "bin"), filepath.Join(usr, "bin")); err != nil {
		return fmt.Errorf("failed to copy binaries: %w", err)
	}
	if err := copyTree(filepath.Join(cfg.StagingDir, "lib"), filepath.Join(usr, "lib")); err != nil {
		return fmt.Errorf("failed to copy libraries: %w", err)
	}

	share := filepath.Join(cfg.StagingDir, "share")
	if _, err := os.Stat(share); err == nil {
		if err := copyTree(share, filepath.Join(usr, "share")); err != nil {
			return fmt.Errorf("failed to copy shared data: %w", err)
		}
	} else if err := os.MkdirAll(filepath.Join(usr, "share"), 0o755); err != nil {
		return err
	}

	libexec := filepath.Join(cfg.StagingDir, "libexec")
	if _, err := os.Stat(libexec); err == nil {
		if err := copyTree(libexec, filepath.Join(usr, "libexec")); err != nil {
			return fmt.Errorf("failed to copy auxiliary executables: %w", err)
		}
	}

	if err := os.WriteFile(filepath.Join(appDir, "AppRun"), []byte(appRunScript), 0o755); err != nil {
		return fmt.Errorf("failed to write AppRun: %w", err)
	}
	if err := os.WriteFile(filepath.Join(appDir, "Ladybird.desktop"), []byte(desktopEntry), 0o644); err != nil {
		return fmt.Errorf("failed to write desktop entry: %w", err)
	}

	iconSrc := filepath.Join(cfg.CheckoutDir, "UI", "Icons", "ladybird.png")
	if _, err := os.Stat(iconSrc); err == nil {
		if err := copyFile(iconSrc, filepath.Join(appDir, "ladybird.png")); err != nil {
			return err
		}
		if err := copyFile(iconSrc, filepath.Join(appDir, ".DirIcon")); err != nil {
			return err
		}
	} else if err := os.WriteFile(filepath.Join(appDir, "ladybird.png"), nil, 0o644); err != nil {
		return err
	}

	outputPath := filepath.Join(cfg.OutputDir, outputName)
	cmd := exec.Command(cfg.AppImageTool, appDir, outputPath)
	cmd.Env = append(os.Environ(), "ARCH=x86_64")
	colArrow.Print("-> ")
	colSuccess.Printf("Building AppImage: %s\n", outputName)
	if err := execCtx.Run(cmd); err != nil {
		return fmt.Errorf("appimagetool failed: %w", err)
	}

	if err := writeChecksum(outputPath); err != nil {
		return err
	}
	colArrow.Print("-> ")
	colSuccess.Printf("Created %s\n", outputPath)
	return nil
}
