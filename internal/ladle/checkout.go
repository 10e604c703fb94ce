package ladle

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// cloneOrUpdate brings the upstream checkout into existence or fast-forwards
// it. Fresh clone when no .git is present; otherwise checkout + pull on the
// configured branch, then submodules.
func cloneOrUpdate(cfg *Config, execCtx *Executor) error {
	if _, err := os.Stat(filepath.Join(cfg.CheckoutDir, ".git")); os.IsNotExist(err) {
		colArrow.Print("-> ")
		colSuccess.Printf("Cloning %s\n", cfg.SourceURL)
		cmd := exec.Command("git", "clone", cfg.SourceURL, cfg.CheckoutDir)
		if err := execCtx.Run(cmd); err != nil {
			return fmt.Errorf("git clone failed: %w", err)
		}
		return nil
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Updating %s branch\n", cfg.Branch)
	if err := execCtx.Run(exec.Command("git", "-C", cfg.CheckoutDir, "checkout", cfg.Branch)); err != nil {
		return fmt.Errorf("failed to update %s branch: %w", cfg.Branch, err)
	}
	if err := execCtx.Run(exec.Command("git", "-C", cfg.CheckoutDir, "pull", "origin", cfg.Branch)); err != nil {
		return fmt.Errorf("failed to update %s branch: %w", cfg.Branch, err)
	}

	cPrintln(colInfo, "Initializing submodules")
	if err := execCtx.Run(exec.Command("git", "-C", cfg.CheckoutDir, "submodule", "update", "--init", "--recursive")); err != nil {
		return fmt.Errorf("submodule update failed: %w", err)
	}
	return nil
}
