package cmd

import (
	"io"
	"sync"
)

// terminalInput reads the terminal on one goroutine and hands the input to
// one prompt at a time. Stop releases a prompt blocked waiting for input.
type terminalInput struct {
	r      io.Reader
	start  sync.Once
	stop   sync.Once
	chunks chan []byte
	done   chan struct{}
}

func newTerminalInput(r io.Reader) *terminalInput {
	return &terminalInput{
		r:      r,
		chunks: make(chan []byte),
		done:   make(chan struct{}),
	}
}

func (t *terminalInput) pump() {
	defer close(t.chunks)
	for {
		buf := make([]byte, 256)
		n, err := t.r.Read(buf)
		if n > 0 {
			select {
			case t.chunks <- buf[:n]:
			case <-t.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Stop makes every pending and later read return io.EOF.
func (t *terminalInput) Stop() {
	t.stop.Do(func() { close(t.done) })
}

// Reader returns the input for a single prompt. The prompt closes it when
// done, the terminal keeps being read for the next one.
func (t *terminalInput) Reader() io.ReadCloser {
	t.start.Do(func() { go t.pump() })
	return &promptReader{in: t, closed: make(chan struct{})}
}

type promptReader struct {
	in     *terminalInput
	once   sync.Once
	closed chan struct{}
	rest   []byte
}

func (p *promptReader) Read(b []byte) (int, error) {
	if len(p.rest) > 0 {
		n := copy(b, p.rest)
		p.rest = p.rest[n:]
		return n, nil
	}
	select {
	case <-p.closed:
		return 0, io.EOF
	case <-p.in.done:
		return 0, io.EOF
	case chunk, ok := <-p.in.chunks:
		if !ok {
			return 0, io.EOF
		}
		n := copy(b, chunk)
		p.rest = chunk[n:]
		return n, nil
	}
}

func (p *promptReader) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
