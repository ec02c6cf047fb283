package lora

import "fmt"

// Broadcast is the node address every module in the network accepts.
const Broadcast uint16 = 0xFFFF

// HeaderLen is the fixed transmit header the E22/SX126x modules expect in
// front of the payload.
const HeaderLen = 6

// Addr identifies a node on the link: a 16-bit module address plus the
// channel (frequency offset) byte.
type Addr struct {
	ID      uint16
	Channel byte
}

// Header is the routing prefix of one outbound frame.
type Header struct {
	Dst Addr
	Src Addr
}

// Frame builds one transmit unit:
//
//	[dst_hi, dst_lo, dst_chan, src_hi, src_lo, src_chan] + payload
//
// The frame carries no length prefix; framing on the receive side is
// recovered from the payload markers.
func Frame(payload []byte, src Addr, dst Addr) []byte {
	out := make([]byte, 0, HeaderLen+len(payload))
	out = append(out,
		byte(dst.ID>>8), byte(dst.ID), dst.Channel,
		byte(src.ID>>8), byte(src.ID), src.Channel,
	)
	return append(out, payload...)
}

// SplitFrame separates the routing header from the payload of a received
// frame.
func SplitFrame(frame []byte) (Header, []byte, error) {
	if len(frame) < HeaderLen {
		return Header{}, nil, fmt.Errorf("lora: frame too short: %d", len(frame))
	}
	h := Header{
		Dst: Addr{ID: uint16(frame[0])<<8 | uint16(frame[1]), Channel: frame[2]},
		Src: Addr{ID: uint16(frame[3])<<8 | uint16(frame[4]), Channel: frame[5]},
	}
	return h, frame[HeaderLen:], nil
}
