package ladle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

// Main is the CLI entrypoint for the ladle binary. It owns signal handling
// and translates tool failures into a mirrored exit status.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case sig := <-sigs:
				colArrow.Print("\n-> ")
				color.Danger.Printf("Received %v. Cancelling gracefully\n", sig)
				cancel()
				time.Sleep(100 * time.Millisecond)

				select {
				case <-sigs:
					colArrow.Print("\n-> ")
					color.Danger.Printf("Second interrupt received. Forcing immediate exit.\n")
					os.Exit(130)
				case <-time.After(2 * time.Second):
					colArrow.Print("\n-> ")
					color.Danger.Printf("Graceful shutdown timeout. Exiting.\n")
					os.Exit(130)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ee *exec.ExitError
		if errors.As(err, &ee) && ee.ExitCode() > 0 {
			os.Exit(ee.ExitCode())
		}
		os.Exit(1)
	}
}

// Execute builds the command tree and runs it.
func Execute(ctx context.Context) error {
	cfg, err := loadConfig(ConfigFile)
	if err != nil {
		return err
	}
	if err := initConfig(cfg); err != nil {
		return err
	}
	execCtx := NewExecutor(ctx)

	var buildOpts BuildOptions
	var pkgType, pkgName string
	var cleanAll bool

	rootCmd := &cobra.Command{
		Use:     "ladle",
		Version: fmt.Sprintf("%s (%s, built %s)", version, arch, buildDate),
		Short:   "Build and package the Ladybird browser",
		Long: `ladle orchestrates cloning, patching, building, and packaging a Ladybird
checkout into a relocatable AppImage or tarball.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Clone or update the source checkout and vendored vcpkg",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cfg, execCtx)
		},
	}

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the checkout with local patches applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cfg, execCtx, buildOpts)
		},
	}
	addBuildFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&buildOpts.CC, "cc", "", "C compiler")
		cmd.Flags().StringVar(&buildOpts.CXX, "cxx", "", "C++ compiler")
		cmd.Flags().IntVarP(&buildOpts.Jobs, "jobs", "j", 0, "parallel jobs")
		cmd.Flags().StringVar(&buildOpts.Preset, "preset", "", "cmake preset")
		cmd.Flags().BoolVar(&buildOpts.Clean, "clean", false, "clean before build")
	}
	addBuildFlags(buildCmd)

	packageCmd := &cobra.Command{
		Use:   "package",
		Short: "Stage build output and produce a distributable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackage(cfg, execCtx, pkgType, pkgName)
		},
	}
	addPackageFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVarP(&pkgType, "type", "t", "appimage", "package type (appimage|tarball)")
		cmd.Flags().StringVarP(&pkgName, "name", "n", "", "output filename")
	}
	addPackageFlags(packageCmd)

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "setup + build + package",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runSetup(cfg, execCtx); err != nil {
				return err
			}
			if err := runBuild(cfg, execCtx, buildOpts); err != nil {
				return err
			}
			return runPackage(cfg, execCtx, pkgType, pkgName)
		},
	}
	addBuildFlags(allCmd)
	addPackageFlags(allCmd)

	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload a distributable to the release bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), cfg, pkgName)
		},
	}
	publishCmd.Flags().StringVarP(&pkgName, "name", "n", "", "artifact filename (default: newest)")

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the build directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cfg, cleanAll)
		},
	}
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "also remove staging and output")

	rootCmd.AddCommand(setupCmd, buildCmd, packageCmd, allCmd, publishCmd, cleanCmd)
	return rootCmd.ExecuteContext(ctx)
}

// runClean removes derived trees. The checkout itself is never touched.
func runClean(cfg *Config, all bool) error {
	targets := []string{cfg.ReleaseDir}
	if all {
		targets = append(targets, cfg.StagingDir, filepath.Join(cfg.OutputDir, "AppDir"))
	}

	colArrow.Print("-> ")
	if !askForConfirmation(colWarn, "Remove %d build tree(s) under %s?", len(targets), cfg.WorkDir) {
		return nil
	}
	for _, dir := range targets {
		cPrintf(colInfo, "Removing %s\n", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	return nil
}
