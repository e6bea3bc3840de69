package speak

import (
	"bytes"
	"io"
	"sync"
)

// audioPipe is an unbounded in-memory pipe. Writes never block, so the
// receive loop is never stalled by a slow audio consumer.
type audioPipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
	err    error
}

func newAudioPipe() *audioPipe {
	p := &audioPipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *audioPipe) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	n, _ := p.buf.Write(data)
	p.cond.Broadcast()
	return n, nil
}

// Read blocks until audio is available. After close it drains what is left
// and then returns the close error, io.EOF when there was none.
func (p *audioPipe) Read(out []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.buf.Len() == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.buf.Len() > 0 {
		return p.buf.Read(out)
	}
	if p.err != nil {
		return 0, p.err
	}
	return 0, io.EOF
}

func (p *audioPipe) CloseWithError(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.err = err
	p.cond.Broadcast()
	return nil
}

func (p *audioPipe) Close() error {
	return p.CloseWithError(nil)
}
