// Package diagio provides a small io.Writer wrapper that remembers the
// first write error it saw, so a diagnostic sink can fire off many
// fmt.Fprintln calls in a row without checking a returned error after
// every single line.
package diagio

import (
	"io"

	"github.com/pkg/errors"
)

// ErrWriter wraps an io.Writer, latching the first error any Write call
// returns and refusing to write again afterwards.
type ErrWriter struct {
	w   io.Writer
	Err error
}

// NewErrWriter wraps w.
func NewErrWriter(w io.Writer) *ErrWriter {
	return &ErrWriter{w: w}
}

func (w *ErrWriter) Write(p []byte) (n int, err error) {
	if w.Err != nil {
		return 0, w.Err
	}
	n, err = w.w.Write(p)
	if err != nil {
		w.Err = errors.Wrap(err, "write failed")
	}
	return n, w.Err
}
