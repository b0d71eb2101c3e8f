package botcli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxFrameBytes bounds how much newline-terminated text the framer will
// accumulate while waiting for a JSON value to complete.
const maxFrameBytes = 16 << 20

// frameKind classifies what the framer produced for a completed line.
type frameKind int

const (
	frameValue     frameKind = iota // a complete JSON value
	frameMalformed                  // looked like JSON but does not parse
	frameNoise                      // plain text (banners, progress output)
)

type frame struct {
	kind frameKind
	raw  json.RawMessage
	text string
	err  error
}

// lineFramer turns an unbounded stdout stream into JSON values.
//
// Output is split on newlines. A newline only completes a value when the
// text accumulated so far parses as JSON; truncated JSON keeps accumulating
// so pretty-printed or pipe-fragmented values arrive whole. Lines that do
// not start like JSON are reported as noise, and so are bracketed log
// prefixes such as "[INFO] ..." that a '[' would otherwise claim.
type lineFramer struct {
	partial []byte // bytes after the last newline
	acc     []byte // completed lines that have not formed a value yet
}

// Write consumes a chunk of output and returns the frames it completed.
func (f *lineFramer) Write(p []byte) []frame {
	f.partial = append(f.partial, p...)

	var frames []frame
	for {
		idx := bytes.IndexByte(f.partial, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSuffix(f.partial[:idx], []byte{'\r'})
		if fr, ok := f.completeLine(line); ok {
			frames = append(frames, fr)
		}
		f.partial = f.partial[idx+1:]
	}

	if len(f.partial) == 0 {
		f.partial = nil
	}
	return frames
}

// Pending reports whether the framer holds bytes that have not formed a frame.
func (f *lineFramer) Pending() bool {
	return len(f.partial) > 0 || len(f.acc) > 0
}

func (f *lineFramer) completeLine(line []byte) (frame, bool) {
	if len(f.acc) == 0 {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			return frame{}, false
		}
		switch {
		case trimmed[0] == '{':
		case trimmed[0] == '[' && startsJSON(trimmed):
		default:
			return frame{kind: frameNoise, text: string(trimmed)}, true
		}
	}

	f.acc = append(f.acc, line...)
	f.acc = append(f.acc, '\n')

	text := bytes.TrimSpace(f.acc)
	dec := json.NewDecoder(bytes.NewReader(text))
	var raw json.RawMessage
	err := dec.Decode(&raw)

	switch {
	case err == nil:
		rest := bytes.TrimSpace(text[dec.InputOffset():])
		if len(rest) > 0 {
			return f.malformed(fmt.Errorf("unexpected data after JSON value")), true
		}
		out := make(json.RawMessage, len(raw))
		copy(out, raw)
		f.acc = nil
		return frame{kind: frameValue, raw: out}, true
	case errors.Is(err, io.ErrUnexpectedEOF):
		if len(f.acc) > maxFrameBytes {
			return f.malformed(fmt.Errorf("response exceeds %d bytes", maxFrameBytes)), true
		}
		return frame{}, false
	default:
		return f.malformed(err), true
	}
}

func (f *lineFramer) malformed(err error) frame {
	fr := frame{kind: frameMalformed, text: string(bytes.TrimSpace(f.acc)), err: err}
	f.acc = nil
	return fr
}

// startsJSON reports whether line is a JSON value or the truncated start of one.
func startsJSON(line []byte) bool {
	err := json.NewDecoder(bytes.NewReader(line)).Decode(new(json.RawMessage))
	return err == nil || errors.Is(err, io.ErrUnexpectedEOF)
}
