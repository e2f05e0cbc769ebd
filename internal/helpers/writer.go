package helpers

import (
	"bytes"
	"io"
	"sync"
)

// PrefixWriter writes every complete line to the underlying writer with a
// prefix. A trailing partial line is held until a newline arrives or Flush
// is called.
type PrefixWriter struct {
	mu     sync.Mutex
	writer io.Writer
	prefix []byte
	buf    bytes.Buffer
}

func NewPrefixWriter(writer io.Writer, prefix string) *PrefixWriter {
	return &PrefixWriter{
		writer: writer,
		prefix: []byte(prefix),
	}
}

func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	pw.buf.Write(p)
	for {
		i := bytes.IndexByte(pw.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := pw.buf.Next(i + 1)
		if err := pw.writeLine(line); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Flush writes out any buffered partial line, terminated with a newline.
func (pw *PrefixWriter) Flush() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.buf.Len() == 0 {
		return nil
	}
	line := append(pw.buf.Bytes(), '\n')
	pw.buf.Reset()
	return pw.writeLine(line)
}

func (pw *PrefixWriter) writeLine(line []byte) error {
	if _, err := pw.writer.Write(pw.prefix); err != nil {
		return err
	}
	_, err := pw.writer.Write(line)
	return err
}
