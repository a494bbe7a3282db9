package epg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func buildDocument(t *testing.T, outputPath string, maxSizeMB int, blocks ...string) PublishResult {
	t.Helper()

	w := NewWriter(outputPath, maxSizeMB)
	if err := w.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for _, block := range blocks {
		if _, err := w.Write([]byte(block)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	result, err := w.Publish()
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	return result
}

func TestPublish_DocumentShape(t *testing.T) {
	output := filepath.Join(t.TempDir(), "epg.xml")

	block := "<channel id=\"ABC.us\"><display-name>ABC</display-name></channel>\n"
	result := buildDocument(t, output, 0, block)

	if !result.Changed {
		t.Error("First publish should report a change")
	}
	if result.Hash == "" {
		t.Error("Publish should report the content hash")
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	content := string(data)

	lines := strings.Split(content, "\n")
	if !strings.HasPrefix(lines[0], "<!-- generated: ") {
		t.Errorf("First line should be the generation comment, got %q", lines[0])
	}
	if lines[1] != `<?xml version="1.0" encoding="UTF-8"?>` {
		t.Errorf("Second line should be the XML declaration, got %q", lines[1])
	}

	// Exactly one root open and one root close, in that order
	if strings.Count(content, "<tv ") != 1 || strings.Count(content, "</tv>") != 1 {
		t.Error("Output must contain exactly one root open and close tag")
	}
	open := strings.Index(content, "<tv ")
	blockAt := strings.Index(content, "<channel ")
	closeAt := strings.Index(content, "</tv>")
	if !(open < blockAt && blockAt < closeAt) {
		t.Error("Filtered blocks must sit between the root tags")
	}
	if !strings.HasSuffix(content, "</tv>\n") {
		t.Error("Output should end with the root close tag and a newline")
	}
	if int64(len(data)) != result.Bytes {
		t.Errorf("Reported size %d does not match file size %d", result.Bytes, len(data))
	}

	if _, err := os.Stat(output + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should be gone after publish")
	}
}

func TestPublish_UnchangedContentIsDiscarded(t *testing.T) {
	output := filepath.Join(t.TempDir(), "epg.xml")
	block := "<channel id=\"ABC.us\"></channel>\n"

	first := buildDocument(t, output, 0, block)
	if !first.Changed {
		t.Fatal("First publish should report a change")
	}

	// The generation comments of the two documents differ; the content
	// comparison must not be fooled by them.
	time.Sleep(10 * time.Millisecond)

	before, err := os.Stat(output)
	if err != nil {
		t.Fatalf("Failed to stat output: %v", err)
	}

	second := buildDocument(t, output, 0, block)
	if second.Changed {
		t.Error("Identical content should not report a change")
	}
	if second.Hash != first.Hash {
		t.Error("Hash should be stable across identical runs")
	}

	after, err := os.Stat(output)
	if err != nil {
		t.Fatalf("Failed to stat output: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("Unchanged publish must leave the output untouched")
	}
	if _, err := os.Stat(output + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should be discarded on the unchanged path")
	}
}

func TestPublish_ChangedContentReplacesOutput(t *testing.T) {
	output := filepath.Join(t.TempDir(), "epg.xml")

	buildDocument(t, output, 0, "<channel id=\"A\"></channel>\n")
	result := buildDocument(t, output, 0, "<channel id=\"B\"></channel>\n")

	if !result.Changed {
		t.Error("Different content should report a change")
	}

	data, _ := os.ReadFile(output)
	if !strings.Contains(string(data), `id="B"`) {
		t.Error("Output should carry the new content after replacement")
	}
}

func TestPublish_SizeCap(t *testing.T) {
	output := filepath.Join(t.TempDir(), "epg.xml")

	w := NewWriter(output, 1)
	if err := w.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	big := strings.Repeat("<programme channel=\"X\"></programme>\n", 40000)
	if _, err := w.Write([]byte(big)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	result, err := w.Publish()
	if err == nil {
		t.Fatal("Publish should fail when the size cap is exceeded")
	}
	// The oversized document has still replaced the output; the error is
	// the signal for the invoking automation.
	if !result.Changed {
		t.Error("Size cap violation should still report the replacement")
	}
	if _, statErr := os.Stat(output); statErr != nil {
		t.Errorf("Output should exist after a size cap violation: %v", statErr)
	}
}

func TestDiscard_RemovesTemporaryFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "epg.xml")

	w := NewWriter(output, 0)
	if err := w.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := w.Write([]byte("partial")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	w.Discard()

	if _, err := os.Stat(output + ".tmp"); !os.IsNotExist(err) {
		t.Error("Discard should remove the temporary file")
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("Discard must never create the output file")
	}
}
