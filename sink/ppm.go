// Package sink writes received frames to disk as binary PPM (P6) images.
package sink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Error wraps failures writing an artifact.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return "sink " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Header is the literal text preceding the pixels of frame seq.
func Header(seq, width, height int) string {
	return fmt.Sprintf("P6\n#Frame %d\n%d %d\n255\n", seq, width, height)
}

// PPM stores each frame as <dir>/frame<seq>.ppm.
type PPM struct {
	dir    string
	width  int
	height int
}

// NewPPM creates dir if needed.
func NewPPM(dir string, width, height int) (*PPM, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &Error{Path: dir, Err: errors.Wrap(err, "can not create output directory")}
	}
	return &PPM{dir: dir, width: width, height: height}, nil
}

// Path returns the artifact name for frame seq.
func (p *PPM) Path(seq int) string {
	return filepath.Join(p.dir, fmt.Sprintf("frame%d.ppm", seq))
}

// WriteFrame writes rgb verbatim after the header, replacing any earlier
// artifact with the same number.
func (p *PPM) WriteFrame(seq int, rgb []byte) error {
	if want := p.width * p.height * 3; len(rgb) != want {
		return &Error{Path: p.Path(seq), Err: errors.Errorf("frame has %d bytes, want %d", len(rgb), want)}
	}

	path := p.Path(seq)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return &Error{Path: path, Err: err}
	}

	w := bufio.NewWriterSize(file, 64*1024)
	if _, err := w.WriteString(Header(seq, p.width, p.height)); err != nil {
		file.Close()
		return &Error{Path: path, Err: err}
	}
	if _, err := w.Write(rgb); err != nil {
		file.Close()
		return &Error{Path: path, Err: err}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return &Error{Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &Error{Path: path, Err: err}
	}
	return nil
}
