package replication

import (
	"net"
	"slices"
	"sync"
)

// memConn is one end of an in-memory packet pipe. Closing either end closes both.
type memConn struct {
	in  <-chan []byte
	out chan<- []byte

	once   *sync.Once
	closed chan struct{}
}

func pipe() (*memConn, *memConn) {
	a, b := make(chan []byte, 64), make(chan []byte, 64)
	once, closed := &sync.Once{}, make(chan struct{})
	return &memConn{in: a, out: b, once: once, closed: closed}, &memConn{in: b, out: a, once: once, closed: closed}
}

func (c *memConn) ReadPacket() ([]byte, error) {
	select {
	case pk := <-c.in:
		return pk, nil
	case <-c.closed:
		return nil, net.ErrClosed
	}
}

func (c *memConn) Write(b []byte) (int, error) {
	select {
	case c.out <- slices.Clone(b):
		return len(b), nil
	case <-c.closed:
		return 0, net.ErrClosed
	}
}

func (c *memConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}
