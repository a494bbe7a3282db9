package feed

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	"github.com/lysyi3m/epg-comb/app/playlist"
)

func gzipString(t *testing.T, content string) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to compress fixture: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func allowSet(ids ...string) playlist.Set {
	s := make(playlist.Set)
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

const sampleGuide = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="ripper">
  <channel id="ABC.us">
    <display-name>Channel ABC</display-name>
  </channel>
  <channel id="XYZ.us">
    <display-name>Channel XYZ</display-name>
  </channel>
  <programme start="20260831060000 +0000" stop="20260831070000 +0000" channel="ABC.us">
    <title>Morning Show</title>
  </programme>
  <programme start="20260831060000 +0000" stop="20260831070000 +0000" channel="XYZ.us">
    <title>Other Show</title>
  </programme>
</tv>
`

func TestRun_FiltersByAllowList(t *testing.T) {
	scanner := NewScanner(allowSet("ABC.us"))

	var out bytes.Buffer
	stats, err := scanner.Run(gzipString(t, sampleGuide), &out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	merged := out.String()

	if !strings.Contains(merged, `<channel id="ABC.us">`) {
		t.Error("Allow-listed channel block should be kept")
	}
	if strings.Contains(merged, "XYZ.us") {
		t.Error("Blocks keyed to XYZ.us should be excluded entirely")
	}
	if !strings.Contains(merged, "<title>Morning Show</title>") {
		t.Error("Programme for the allow-listed channel should be kept")
	}

	if stats.ChannelsSeen != 2 || stats.ChannelsKept != 1 {
		t.Errorf("Channel stats mismatch: %+v", stats)
	}
	if stats.ProgrammesSeen != 2 || stats.ProgrammesKept != 1 {
		t.Errorf("Programme stats mismatch: %+v", stats)
	}
}

func TestRun_KeptBlocksAreVerbatim(t *testing.T) {
	scanner := NewScanner(allowSet("ABC.us"))

	var out bytes.Buffer
	if _, err := scanner.Run(gzipString(t, sampleGuide), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expected := `  <channel id="ABC.us">
    <display-name>Channel ABC</display-name>
  </channel>
`
	if !strings.Contains(out.String(), expected) {
		t.Errorf("Kept block should preserve the original text exactly, got:\n%s", out.String())
	}
	if strings.Contains(out.String(), "<tv") || strings.Contains(out.String(), "</tv>") {
		t.Error("The wrapper element must not leak into the scanner output")
	}
}

func TestRun_ContentAfterWrapperOnSameLine(t *testing.T) {
	guide := `<tv generator-info-name="x"><channel id="ABC.us"><display-name>ABC</display-name></channel>
<programme channel="ABC.us"><title>One-liner</title></programme>
</tv>
`
	scanner := NewScanner(allowSet("ABC.us"))

	var out bytes.Buffer
	stats, err := scanner.Run(gzipString(t, guide), &out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.ChannelsKept != 1 || stats.ProgrammesKept != 1 {
		t.Errorf("Expected the same-line channel and the programme to be kept: %+v", stats)
	}
	if !strings.Contains(out.String(), "<title>One-liner</title>") {
		t.Errorf("Same-line programme missing from output:\n%s", out.String())
	}
}

func TestRun_StopsAtDocumentClose(t *testing.T) {
	guide := `<tv>
<channel id="ABC.us"><display-name>ABC</display-name></channel>
</tv>
<channel id="TRAILING.us"><display-name>Trailing</display-name></channel>
`
	scanner := NewScanner(allowSet("ABC.us", "TRAILING.us"))

	var out bytes.Buffer
	stats, err := scanner.Run(gzipString(t, guide), &out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if strings.Contains(out.String(), "TRAILING.us") {
		t.Error("Content after </tv> must be ignored")
	}
	if stats.ChannelsSeen != 1 {
		t.Errorf("Expected 1 channel seen, got %d", stats.ChannelsSeen)
	}
}

func TestRun_TruncatedTrailingBlockIsFlushed(t *testing.T) {
	guide := `<tv>
<programme channel="ABC.us">
<title>Cut short</title>`
	scanner := NewScanner(allowSet("ABC.us"))

	var out bytes.Buffer
	stats, err := scanner.Run(gzipString(t, guide), &out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.ProgrammesKept != 1 {
		t.Errorf("Truncated trailing block should still be flushed: %+v", stats)
	}
	if !strings.Contains(out.String(), "Cut short") {
		t.Errorf("Truncated block content missing:\n%s", out.String())
	}
}

func TestRun_BlockWithoutKeyIsDropped(t *testing.T) {
	guide := `<tv>
<channel broken>
</channel>
<programme start="x">
</programme>
</tv>
`
	scanner := NewScanner(allowSet("ABC.us"))

	var out bytes.Buffer
	stats, err := scanner.Run(gzipString(t, guide), &out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if out.Len() != 0 {
		t.Errorf("Keyless blocks must never be emitted, got:\n%s", out.String())
	}
	if stats.ChannelsSeen != 1 || stats.ProgrammesSeen != 1 {
		t.Errorf("Keyless blocks should still be counted as seen: %+v", stats)
	}
}

func TestRun_InvalidUTF8IsReplaced(t *testing.T) {
	guide := "<tv>\n<channel id=\"ABC.us\">\n<display-name>Bad \xff byte</display-name>\n</channel>\n</tv>\n"
	scanner := NewScanner(allowSet("ABC.us"))

	var out bytes.Buffer
	if _, err := scanner.Run(gzipString(t, guide), &out); err != nil {
		t.Fatalf("Run should tolerate invalid UTF-8: %v", err)
	}

	if !strings.Contains(out.String(), "Bad � byte") {
		t.Errorf("Invalid byte should be replaced with U+FFFD, got:\n%q", out.String())
	}
}

func TestRun_NotGzip(t *testing.T) {
	scanner := NewScanner(allowSet("ABC.us"))

	var out bytes.Buffer
	if _, err := scanner.Run(strings.NewReader("plain text"), &out); err == nil {
		t.Error("Run should fail for a stream that is not gzip-compressed")
	}
}

func TestExtractAttr(t *testing.T) {
	tests := []struct {
		line     string
		prefix   string
		expected string
	}{
		{`<channel id="ABC.us">`, `id="`, "ABC.us"},
		{`<programme start="1" channel="XYZ.uk">`, `channel="`, "XYZ.uk"},
		{`<channel>`, `id="`, ""},
		{`<channel id="unterminated`, `id="`, ""},
	}

	for _, tt := range tests {
		if got := extractAttr(tt.line, tt.prefix); got != tt.expected {
			t.Errorf("extractAttr(%q, %q) = %q, expected %q", tt.line, tt.prefix, got, tt.expected)
		}
	}
}
