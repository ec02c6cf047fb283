// Package udp moves raw downlink bytes over UDP: a Broadcaster for the
// simulator's synthetic stream and a Listener that feeds the ground
// pipeline from an external demodulator.
package udp

import (
	"fmt"
	"io"
	"net"
	"sync/atomic"
)

// MaxFrameLen is the largest wire frame the Broadcaster will send. It
// matches the radio module's sub-packet size, so a frame the simulator
// emits could also have crossed the air link in one piece.
const MaxFrameLen = 240

type udpConn interface {
	io.WriteCloser
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// Broadcaster sends one wire frame per datagram, standing in for the
// radio on the bench. The Listener on the other end feeds the frames to
// the ground pipeline unchanged.
type Broadcaster struct {
	dest string
	conn udpConn
	sent atomic.Uint64
}

func NewBroadcaster(dest string) (*Broadcaster, error) {
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	}
	return newBroadcaster(dest, net.ResolveUDPAddr, dial)
}

func newBroadcaster(dest string, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Broadcaster{
		dest: dest,
		conn: conn,
	}, nil
}

// Send writes frame as a single datagram. Empty frames are dropped
// silently; frames over MaxFrameLen are rejected, since the radio path
// being simulated could never carry them whole.
func (b *Broadcaster) Send(frame []byte) error {
	if len(frame) == 0 {
		return nil
	}
	if len(frame) > MaxFrameLen {
		return fmt.Errorf("frame too long: %d bytes, limit %d", len(frame), MaxFrameLen)
	}
	if _, err := b.conn.Write(frame); err != nil {
		return err
	}
	b.sent.Add(1)
	return nil
}

// Sent is the number of frames written so far.
func (b *Broadcaster) Sent() uint64 {
	return b.sent.Load()
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
