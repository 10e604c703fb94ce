package ladle

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"
)

// hashFile returns the BLAKE3 digest of the file at path. System b3sum is
// preferred when present; otherwise the pure-Go implementation is used.
func hashFile(path string) (string, error) {
	if _, err := exec.LookPath("b3sum"); err == nil {
		cmd := exec.Command("b3sum", "--no-names", path)
		var out bytes.Buffer
		cmd.Stdout = &out
		if err := cmd.Run(); err == nil {
			fields := strings.Fields(out.String())
			if len(fields) > 0 {
				return fields[0], nil
			}
		}
	}
	return blake3File(path)
}

func blake3File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// writeChecksum drops a <artifact>.b3sum sidecar next to the artifact, in
// b3sum's own "<hash>  <name>" format so it can be verified with the tool.
func writeChecksum(artifactPath string) error {
	sum, err := hashFile(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to checksum %s: %w", artifactPath, err)
	}
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(artifactPath))
	sumPath := artifactPath + ".b3sum"
	if err := os.WriteFile(sumPath, []byte(line), 0o644); err != nil {
		return fmt.Errorf("failed to write checksum file: %w", err)
	}
	debugf("Wrote checksum %s\n", sumPath)
	return nil
}
