package playlist

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// attrRe matches key="value" attribute pairs on an EXTINF metadata line.
var attrRe = regexp.MustCompile(`(\w[\w-]*)="([^"]*)"`)

// idAttrs are the accepted spellings of the channel identifier attribute,
// checked in order.
var idAttrs = []string{"tvg-id", "tvgid", "tvg_id"}

// Set is the allow-list of channel identifiers. Immutable after Load.
type Set map[string]struct{}

func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Loader reads the allow-list from an M3U playlist
type Loader struct {
	path string
}

// NewLoader creates a new playlist loader
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load parses the playlist and returns the set of channel identifiers
// found on its EXTINF lines. A missing playlist or a playlist without a
// single identifier is an error.
func (l *Loader) Load() (Set, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("missing playlist %s: commit it to the repository root or point --playlist at it", l.path)
		}
		return nil, fmt.Errorf("failed to open playlist: %w", err)
	}
	defer f.Close()

	allowed := make(Set)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "#EXTINF") {
			continue
		}

		if id := extractID(line); id != "" {
			allowed[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}

	if len(allowed) == 0 {
		return nil, fmt.Errorf("no tvg-id found in %s: ensure the EXTINF lines carry tvg-id=\"...\"", l.path)
	}

	return allowed, nil
}

// extractID returns the channel identifier carried by an EXTINF line, or
// an empty string when none of the accepted attribute spellings is present.
func extractID(line string) string {
	attrs := make(map[string]string)
	for _, m := range attrRe.FindAllStringSubmatch(line, -1) {
		attrs[m[1]] = m[2]
	}

	for _, key := range idAttrs {
		if v, ok := attrs[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	return ""
}
