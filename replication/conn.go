package replication

import (
	"context"
	"net"

	"github.com/oomph-ac/doors/oerror"
	"github.com/sandertv/go-raknet"
)

// PacketConn is a connection that preserves packet boundaries. *raknet.Conn implements it.
type PacketConn interface {
	// ReadPacket blocks until a whole packet was received.
	ReadPacket() ([]byte, error)
	Write(b []byte) (int, error)
	Close() error
}

// Listener accepts replication peers over RakNet.
type Listener struct {
	rk *raknet.Listener
}

// Listen starts listening for replication peers on the UDP address passed.
func Listen(addr string) (*Listener, error) {
	rk, err := raknet.Listen(addr)
	if err != nil {
		return nil, oerror.New("unable to listen on %s: %v", addr, err)
	}
	return &Listener{rk: rk}, nil
}

// Accept blocks until a new peer connected.
func (l *Listener) Accept() (PacketConn, error) {
	conn, err := l.rk.Accept()
	if err != nil {
		return nil, err
	}
	rkConn, ok := conn.(*raknet.Conn)
	if !ok {
		_ = conn.Close()
		return nil, oerror.New("unexpected connection type %T", conn)
	}
	return rkConn, nil
}

func (l *Listener) Addr() net.Addr {
	return l.rk.Addr()
}

func (l *Listener) Close() error {
	return l.rk.Close()
}

// Dial connects to an authority listening on addr.
func Dial(ctx context.Context, addr string) (PacketConn, error) {
	conn, err := raknet.DialContext(ctx, addr)
	if err != nil {
		return nil, oerror.New("unable to dial %s: %v", addr, err)
	}
	return conn, nil
}
