package udp

import (
	"errors"
	"fmt"
	"net"
	"time"
)

const defaultReadTimeout = 200 * time.Millisecond

// Listener receives downlink bytes on a bound UDP port. Read returns
// (nil, nil) when nothing arrived within the timeout, matching the radio
// modem's polling contract so either can feed the ground pipeline.
type Listener struct {
	conn    *net.UDPConn
	timeout time.Duration
	buf     []byte
}

func NewListener(bind string, readTimeout time.Duration) (*Listener, error) {
	addr, err := net.ResolveUDPAddr("udp", bind)
	if err != nil {
		return nil, fmt.Errorf("resolve bind: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}

	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	return &Listener{
		conn:    conn,
		timeout: readTimeout,
		buf:     make([]byte, 2048),
	}, nil
}

// Addr returns the bound local address, useful when binding port 0.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

func (l *Listener) Read() ([]byte, error) {
	if err := l.conn.SetReadDeadline(time.Now().Add(l.timeout)); err != nil {
		return nil, err
	}
	n, _, err := l.conn.ReadFromUDP(l.buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	return append([]byte(nil), l.buf[:n]...), nil
}

func (l *Listener) Close() error {
	if l.conn == nil {
		return nil
	}
	return l.conn.Close()
}
