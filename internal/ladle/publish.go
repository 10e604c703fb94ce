package ladle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// findLatestArtifact picks the newest distributable in outputDir.
func findLatestArtifact(outputDir string) (string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return "", fmt.Errorf("no output directory, run 'ladle package' first")
	}

	type candidate struct {
		path string
		mod  int64
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".AppImage") &&
			!strings.HasSuffix(name, ".tar.gz") &&
			!strings.HasSuffix(name, ".tar.xz") &&
			!strings.HasSuffix(name, ".tar.zst") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path: filepath.Join(outputDir, name),
			mod:  info.ModTime().UnixNano(),
		})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no distributable found in %s, run 'ladle package' first", outputDir)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].mod > candidates[j].mod })
	return candidates[0].path, nil
}

// runPublish uploads a distributable (and its checksum sidecar, when present)
// to the configured release bucket.
func runPublish(ctx context.Context, cfg *Config, name string) error {
	bucket, err := NewReleaseBucket(cfg)
	if err != nil {
		return err
	}

	var artifact string
	if name != "" {
		artifact = filepath.Join(cfg.OutputDir, name)
		if _, err := os.Stat(artifact); err != nil {
			return fmt.Errorf("artifact not found: %s", artifact)
		}
	} else {
		artifact, err = findLatestArtifact(cfg.OutputDir)
		if err != nil {
			return err
		}
	}

	key := filepath.Base(artifact)
	colArrow.Print("-> ")
	if !askForConfirmation(colWarn, "Upload %s to bucket %s?", key, bucket.BucketName) {
		return nil
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Uploading %s\n", key)
	if err := bucket.UploadLocalFile(ctx, key, artifact); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	sumPath := artifact + ".b3sum"
	if _, err := os.Stat(sumPath); err == nil {
		if err := bucket.UploadLocalFile(ctx, key+".b3sum", sumPath); err != nil {
			return fmt.Errorf("failed to upload checksum: %w", err)
		}
	}

	colArrow.Print("-> ")
	colSuccess.Println("Upload complete")
	return nil
}
