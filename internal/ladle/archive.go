package ladle

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// archiveTopDir is the fixed top-level directory inside every tarball, so
// extraction always produces a single predictable tree.
const archiveTopDir = "ladybird"

// createTarball archives the staging tree into the output directory. The
// compression follows the requested name's suffix; a bare name gets .tar.gz.
func createTarball(cfg *Config, name string) error {
	outputName := name
	if outputName == "" {
		outputName = "ladybird-x86_64"
	}
	switch {
	case strings.HasSuffix(outputName, ".tar.gz"),
		strings.HasSuffix(outputName, ".tar.xz"),
		strings.HasSuffix(outputName, ".tar.zst"):
	default:
		outputName += ".tar.gz"
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}
	outputPath := filepath.Join(cfg.OutputDir, outputName)

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create tarball file: %w", err)
	}
	defer out.Close()

	var (
		cw      io.Writer
		closeFn func() error
	)
	switch {
	case strings.HasSuffix(outputName, ".tar.xz"):
		xw, err := xz.NewWriter(out)
		if err != nil {
			return fmt.Errorf("failed to create xz writer: %w", err)
		}
		cw, closeFn = xw, xw.Close
	case strings.HasSuffix(outputName, ".tar.zst"):
		zw, err := zstd.NewWriter(out)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		cw, closeFn = zw, zw.Close
	default:
		gw := pgzip.NewWriter(out)
		cw, closeFn = gw, gw.Close
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Creating tarball: %s\n", outputName)
	if err := tarTree(cw, cfg.StagingDir, archiveTopDir); err != nil {
		closeFn()
		return fmt.Errorf("failed to archive staging tree: %w", err)
	}
	if err := closeFn(); err != nil {
		return fmt.Errorf("failed to finalize compression: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := writeChecksum(outputPath); err != nil {
		return err
	}
	colArrow.Print("-> ")
	colSuccess.Printf("Created %s\n", outputPath)
	return nil
}

// tarTree writes root's contents into w under the topDir prefix, preserving
// modes and symlinks.
func tarTree(w io.Writer, root, topDir string) error {
	tw := tar.NewWriter(w)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				return fmt.Errorf("readlink %s: %w", path, err)
			}
		}

		hdr, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return err
		}
		if rel == "." {
			hdr.Name = topDir + "/"
		} else {
			hdr.Name = topDir + "/" + filepath.ToSlash(rel)
			if d.IsDir() {
				hdr.Name += "/"
			}
		}

		// The archive must extract the same for everyone.
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "root", "root"

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(tw, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	if err != nil {
		return err
	}
	return tw.Close()
}
