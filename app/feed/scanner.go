package feed

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/lysyi3m/epg-comb/app/playlist"
)

// Literal markers the scanner keys on. The guide bodies are never parsed
// as XML; blocks are carried through byte-for-byte.
const (
	channelOpen    = "<channel "
	channelClose   = "</channel>"
	programmeOpen  = "<programme "
	programmeClose = "</programme>"
	tvOpen         = "<tv"
	tvClose        = "</tv>"
)

// blockState tracks which element, if any, the scanner is accumulating.
type blockState int

const (
	stateOutside   blockState = iota // before the <tv> wrapper
	stateIdle                        // inside <tv>, between blocks
	stateChannel                     // inside a <channel> block
	stateProgramme                   // inside a <programme> block
)

// Stats summarizes one scanned guide.
type Stats struct {
	ChannelsSeen   int
	ChannelsKept   int
	ProgrammesSeen int
	ProgrammesKept int
}

// Scanner extracts <channel> and <programme> blocks from gzip-compressed
// XMLTV documents and forwards the ones whose key is allow-listed.
type Scanner struct {
	allowed playlist.Set
}

// NewScanner creates a new scanner filtering against the given allow-list
func NewScanner(allowed playlist.Set) *Scanner {
	return &Scanner{allowed: allowed}
}

// Run decompresses one guide and scans it line by line, writing every
// allow-listed block to out unmodified. Invalid UTF-8 sequences are
// replaced rather than rejected; guide feeds are occasionally sloppy
// about encoding.
//
// End-of-document detection matches on the literal "</tv>". XMLTV does
// not nest <tv> elements, but the literal could still occur inside a
// comment or CDATA section, in which case scanning stops early.
func (s *Scanner) Run(r io.Reader, out io.Writer) (Stats, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	decoded := transform.NewReader(gz, unicode.UTF8.NewDecoder())
	reader := bufio.NewReader(decoded)

	run := &scanRun{
		allowed: s.allowed,
		out:     out,
		state:   stateOutside,
	}

	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			done, err := run.processLine(line)
			if err != nil {
				return run.stats, err
			}
			if done {
				return run.stats, nil
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return run.stats, fmt.Errorf("failed to read guide: %w", readErr)
		}
	}

	// A guide truncated before </tv> still flushes its trailing block,
	// matching the forgiving behavior of the scan on complete documents.
	if err := run.flush(); err != nil {
		return run.stats, err
	}

	return run.stats, nil
}

// scanRun holds the per-document scanning state.
type scanRun struct {
	allowed playlist.Set
	out     io.Writer
	state   blockState
	block   bytes.Buffer
	key     string
	stats   Stats
}

// processLine advances the state machine by one line. It reports true
// once the closing </tv> has been consumed.
func (r *scanRun) processLine(line string) (bool, error) {
	if r.state == stateOutside {
		i := strings.Index(line, tvOpen)
		if i < 0 {
			return false, nil
		}
		r.state = stateIdle

		// Re-process any content following the wrapper's ">" on the
		// same line.
		rest := line[i:]
		if j := strings.Index(rest, ">"); j >= 0 {
			if inner := rest[j+1:]; strings.TrimSpace(inner) != "" {
				return r.processLine(inner)
			}
		}
		return false, nil
	}

	if i := strings.Index(line, tvClose); i >= 0 {
		before := line[:i]
		if strings.TrimSpace(before) != "" {
			if _, err := r.processLine(before); err != nil {
				return true, err
			}
		}
		if err := r.flush(); err != nil {
			return true, err
		}
		return true, nil
	}

	switch r.state {
	case stateIdle:
		if strings.Contains(line, channelOpen) {
			r.state = stateChannel
			r.block.Reset()
			r.block.WriteString(line)
			r.key = extractAttr(line, `id="`)
			if strings.Contains(line, channelClose) {
				return false, r.flush()
			}
			return false, nil
		}
		if strings.Contains(line, programmeOpen) {
			r.state = stateProgramme
			r.block.Reset()
			r.block.WriteString(line)
			r.key = extractAttr(line, `channel="`)
			if strings.Contains(line, programmeClose) {
				return false, r.flush()
			}
			return false, nil
		}

	case stateChannel:
		r.block.WriteString(line)
		if strings.Contains(line, channelClose) {
			return false, r.flush()
		}

	case stateProgramme:
		r.block.WriteString(line)
		if strings.Contains(line, programmeClose) {
			return false, r.flush()
		}
	}

	return false, nil
}

// flush emits the accumulated block if its key is allow-listed and resets
// the block state.
func (r *scanRun) flush() error {
	defer func() {
		r.state = stateIdle
		r.block.Reset()
		r.key = ""
	}()

	if r.block.Len() == 0 {
		return nil
	}

	keep := r.key != "" && r.allowed.Contains(r.key)

	switch r.state {
	case stateChannel:
		r.stats.ChannelsSeen++
		if keep {
			r.stats.ChannelsKept++
		}
	case stateProgramme:
		r.stats.ProgrammesSeen++
		if keep {
			r.stats.ProgrammesKept++
		}
	default:
		return nil
	}

	if !keep {
		return nil
	}

	if _, err := r.out.Write(r.block.Bytes()); err != nil {
		return fmt.Errorf("failed to write block: %w", err)
	}

	return nil
}

// extractAttr returns the value following the given attribute prefix on a
// block's opening line, or an empty string when the prefix is absent.
func extractAttr(line, prefix string) string {
	_, after, found := strings.Cut(line, prefix)
	if !found {
		return ""
	}
	value, _, found := strings.Cut(after, `"`)
	if !found {
		return ""
	}
	return value
}
