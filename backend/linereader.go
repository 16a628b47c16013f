package backend

import (
	"bufio"
	"io"
)

// lineReader is a specialized reader that ensures only entire newline-delimited lines are
// read at a time. This is useful when tailing a CSV file that is being actively
// written to, as no partial record is ever handed to the CSV parser.
type lineReader struct {
	r       *bufio.Reader
	partial []byte
	// pending holds the rest of a line that did not fit the caller's buffer.
	pending []byte
}

var _ io.Reader = (*lineReader)(nil)

func NewLineReader(r io.Reader) *lineReader {
	return &lineReader{
		r: bufio.NewReader(r),
	}
}

func (l *lineReader) Read(b []byte) (int, error) {
	if len(l.pending) > 0 {
		n := copy(b, l.pending)
		l.pending = l.pending[n:]
		return n, nil
	}
	data, err := l.r.ReadBytes(byte('\n'))
	if err != nil {
		l.partial = append(l.partial, data...)
		return 0, io.EOF
	}
	line := data
	if len(l.partial) > 0 {
		line = append(l.partial, data...)
		l.partial = nil
	}
	n := copy(b, line)
	l.pending = line[n:]
	return n, nil
}
