package epg

import (
	"fmt"
	"io"
	"os"
	"time"
)

const generatorName = "epg-comb"

// Writer assembles the merged XMLTV document in a temporary file next to
// the output path and publishes it atomically. The previously published
// output is replaced only when the content hash changed, and is never
// observable in a partially written state.
type Writer struct {
	outputPath string
	tmpPath    string
	maxBytes   int64 // 0 disables the size cap
	file       *os.File
}

// PublishResult reports the outcome of a publish.
type PublishResult struct {
	Changed bool
	Hash    string
	Bytes   int64
}

// NewWriter creates a writer targeting outputPath. maxSizeMB caps the
// published document size; 0 disables the cap.
func NewWriter(outputPath string, maxSizeMB int) *Writer {
	return &Writer{
		outputPath: outputPath,
		tmpPath:    outputPath + ".tmp",
		maxBytes:   int64(maxSizeMB) * 1024 * 1024,
	}
}

// Begin creates the temporary file and writes the document preamble: a
// generation comment, the XML declaration and the opening root element.
func (w *Writer) Begin() error {
	f, err := os.Create(w.tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", w.tmpPath, err)
	}
	w.file = f

	if _, err := fmt.Fprintf(f, "%s%s -->\n", generatedPrefix, time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")); err != nil {
		return w.abort(err)
	}
	if _, err := io.WriteString(f, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"); err != nil {
		return w.abort(err)
	}
	if _, err := fmt.Fprintf(f, "<tv generator-info-name=%q>\n", generatorName); err != nil {
		return w.abort(err)
	}

	return nil
}

// Write appends filtered block text to the document body. Implements
// io.Writer so the scanner can stream into the document directly.
func (w *Writer) Write(p []byte) (int, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer not started")
	}
	return w.file.Write(p)
}

// Publish closes the document, compares its content hash against the
// existing output and either discards it (unchanged) or atomically
// replaces the output. The generation comment is excluded from the
// comparison, so a run over unchanged guides leaves the output untouched.
// A size cap violation is reported after the replacement so that the
// caller fails the run.
func (w *Writer) Publish() (PublishResult, error) {
	if w.file == nil {
		return PublishResult{}, fmt.Errorf("writer not started")
	}

	if _, err := io.WriteString(w.file, "</tv>\n"); err != nil {
		return PublishResult{}, w.abort(err)
	}
	if err := w.file.Close(); err != nil {
		w.file = nil
		os.Remove(w.tmpPath)
		return PublishResult{}, fmt.Errorf("failed to finalize %s: %w", w.tmpPath, err)
	}
	w.file = nil

	hash, err := contentHash(w.tmpPath)
	if err != nil {
		os.Remove(w.tmpPath)
		return PublishResult{}, fmt.Errorf("failed to hash merged document: %w", err)
	}

	if _, statErr := os.Stat(w.outputPath); statErr == nil {
		priorHash, err := contentHash(w.outputPath)
		if err != nil {
			os.Remove(w.tmpPath)
			return PublishResult{}, fmt.Errorf("failed to hash existing output: %w", err)
		}
		if priorHash == hash {
			if err := os.Remove(w.tmpPath); err != nil {
				return PublishResult{}, fmt.Errorf("failed to discard unchanged document: %w", err)
			}
			info, err := os.Stat(w.outputPath)
			if err != nil {
				return PublishResult{}, fmt.Errorf("failed to stat output: %w", err)
			}
			return PublishResult{Changed: false, Hash: hash, Bytes: info.Size()}, nil
		}
	}

	if err := os.Rename(w.tmpPath, w.outputPath); err != nil {
		os.Remove(w.tmpPath)
		return PublishResult{}, fmt.Errorf("failed to publish output: %w", err)
	}

	info, err := os.Stat(w.outputPath)
	if err != nil {
		return PublishResult{}, fmt.Errorf("failed to stat output: %w", err)
	}

	result := PublishResult{Changed: true, Hash: hash, Bytes: info.Size()}

	if w.maxBytes > 0 && result.Bytes > w.maxBytes {
		return result, fmt.Errorf("output too large to push: %.2f MB exceeds the %.0f MB cap",
			float64(result.Bytes)/(1024*1024), float64(w.maxBytes)/(1024*1024))
	}

	return result, nil
}

// Discard removes the temporary file after a failed run. Safe to call
// after Publish, where it is a no-op.
func (w *Writer) Discard() {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	os.Remove(w.tmpPath)
}

func (w *Writer) abort(err error) error {
	w.file.Close()
	w.file = nil
	os.Remove(w.tmpPath)
	return fmt.Errorf("failed to write %s: %w", w.tmpPath, err)
}
