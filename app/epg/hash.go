package epg

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// generatedPrefix opens the volatile header comment on the first line of
// every merged document.
const generatedPrefix = "<!-- generated: "

// contentHash returns the hex-encoded SHA-256 digest of a merged
// document, skipping the generation comment so that identical guide
// content compares equal across runs.
func contentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	reader := bufio.NewReader(f)

	first, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !strings.HasPrefix(first, generatedPrefix) {
		h.Write([]byte(first))
	}

	if _, err := io.Copy(h, reader); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
