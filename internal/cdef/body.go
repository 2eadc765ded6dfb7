package cdef

import "bytes"

// bodyWriter accumulates the value lines between the braces of a declaration.
// Every line starts with margin; in packed mode values share a line until the
// next one would push it past width.
type bodyWriter struct {
	buf   []byte
	line  []byte
	width int
	pack  bool
	held  int
}

func newBodyWriter(opt Options, n int) *bodyWriter {
	w := &bodyWriter{
		buf:   make([]byte, 0, n*12),
		width: opt.LineLength,
		pack:  opt.Pack,
	}
	// LineLength is only validated when packing; unpacked output never uses it.
	if opt.Pack {
		w.line = make([]byte, 0, max(opt.LineLength, 0)+len(margin))
	}
	return w
}

// WriteValue appends one rendered literal. last suppresses the trailing comma.
func (w *bodyWriter) WriteValue(lit string, last bool) {
	if !w.pack {
		w.buf = append(w.buf, margin...)
		w.buf = append(w.buf, lit...)
		if !last {
			w.buf = append(w.buf, ',')
		}
		w.buf = append(w.buf, '\n')
		return
	}

	tokenLen := len(lit)
	if !last {
		tokenLen += len(", ")
	}
	// A line that holds no value yet is never flushed, so an over-wide
	// literal ends up alone on its own line.
	if w.held > 0 && len(w.line)+tokenLen > w.width {
		w.flush()
	}
	if w.held == 0 {
		w.line = append(w.line[:0], margin...)
	}
	w.line = append(w.line, lit...)
	if !last {
		w.line = append(w.line, ", "...)
	}
	w.held++
}

func (w *bodyWriter) flush() {
	if w.held == 0 {
		return
	}
	w.buf = append(w.buf, bytes.TrimRight(w.line, " ")...)
	w.buf = append(w.buf, '\n')
	w.line = w.line[:0]
	w.held = 0
}

// Bytes flushes the working line and returns the accumulated body.
func (w *bodyWriter) Bytes() []byte {
	w.flush()
	return w.buf
}
