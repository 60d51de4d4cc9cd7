// serialcomm/lines.go
package serialcomm

import (
	"bytes"
	"errors"
	"io"
	"log"
	"strings"
)

// LineReader frames newline-terminated text from a Port. Each ReadLine call
// issues at most one Read on the underlying port, so a caller polling in a
// loop gets control back once per read timeout.
type LineReader struct {
	r      io.Reader
	buf    bytes.Buffer
	chunk  []byte
	maxLen int
}

func NewLineReader(r io.Reader, maxLen int) *LineReader {
	if maxLen <= 0 {
		maxLen = DefaultMaxLineLength
	}
	return &LineReader{
		r:      r,
		chunk:  make([]byte, 1024),
		maxLen: maxLen,
	}
}

// ReadLine returns the next non-empty line, or "" if no complete line is
// available after one read. A read timeout is not an error.
func (l *LineReader) ReadLine() (string, error) {
	if line, ok := l.next(); ok {
		return line, nil
	}

	n, err := l.r.Read(l.chunk)
	if n > 0 {
		l.buf.Write(l.chunk[:n])
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	if line, ok := l.next(); ok {
		return line, nil
	}
	if l.buf.Len() > l.maxLen {
		log.Printf("discarding %d bytes without line terminator", l.buf.Len())
		l.buf.Reset()
	}
	return "", nil
}

// Reset drops any partial line held from earlier reads.
func (l *LineReader) Reset() {
	l.buf.Reset()
}

func (l *LineReader) next() (string, bool) {
	for {
		idx := bytes.IndexByte(l.buf.Bytes(), '\n')
		if idx < 0 {
			return "", false
		}
		raw := l.buf.Next(idx + 1)
		if line := DecodeLine(raw); line != "" {
			return line, true
		}
	}
}

// DecodeLine converts raw device bytes to text, dropping invalid UTF-8
// sequences instead of failing, and trims surrounding whitespace.
func DecodeLine(raw []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
}
