package lora

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/tarm/serial"
)

const (
	readChunk = 512

	// E22-900T22S register commands (config mode).
	regWrite = 0xC0
	regRead  = 0xC1

	// Parameter block layout: CHAN lives at offset 6 of the 9-byte block.
	paramBlockLen  = 9
	paramChanIndex = 6
)

// ModemConfig describes the UART bridge to an E22/SX126x module.
type ModemConfig struct {
	Device string
	Baud   int

	// ReadTimeout bounds a single Read so the receive loop can observe
	// cancellation; it is not a frame timeout.
	ReadTimeout time.Duration

	// M0Pin/M1Pin are the BCM GPIO lines wired to the module's mode pins.
	// Zero means the pins are strapped externally (jumpers) and config-mode
	// commands assume the module is already in the right mode.
	M0Pin int
	M1Pin int
}

// Modem is a byte source/sink over the module's transparent UART, plus
// register access for persistent configuration.
type Modem struct {
	port io.ReadWriteCloser
	pins modePins
}

// OpenModem opens the serial bridge and, when mode pins are configured,
// claims them and puts the module in transparent mode.
func OpenModem(cfg ModemConfig) (*Modem, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("lora: device is required")
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = 9600
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = 1 * time.Second
	}

	port, err := serial.OpenPort(&serial.Config{Name: cfg.Device, Baud: baud, ReadTimeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("lora: open %s: %w", cfg.Device, err)
	}

	m := &Modem{port: port}
	if cfg.M0Pin > 0 || cfg.M1Pin > 0 {
		pins, err := openModePins(cfg.M0Pin, cfg.M1Pin)
		if err != nil {
			_ = port.Close()
			return nil, err
		}
		m.pins = pins
		if err := pins.SetTransparent(); err != nil {
			_ = m.Close()
			return nil, err
		}
		// The module needs a moment after a mode switch before it listens.
		time.Sleep(100 * time.Millisecond)
	}
	return m, nil
}

// Read returns whatever bytes arrive within the configured read timeout.
// No data within the timeout yields (nil, nil); the caller polls again.
func (m *Modem) Read() ([]byte, error) {
	buf := make([]byte, readChunk)
	n, err := m.port.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil || err == io.EOF {
		return nil, nil
	}
	return nil, err
}

func (m *Modem) Write(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if _, err := m.port.Write(b); err != nil {
		return fmt.Errorf("lora: write: %w", err)
	}
	return nil
}

func (m *Modem) Close() error {
	var first error
	if m.pins != nil {
		first = m.pins.Close()
		m.pins = nil
	}
	if m.port != nil {
		if err := m.port.Close(); err != nil && first == nil {
			first = err
		}
		m.port = nil
	}
	return first
}

// SetChannel persists the RF channel (frequency = 850 MHz + channel for the
// 900 MHz modules). The module must be in config mode; with mode pins
// configured this is handled here, otherwise M0/M1 must be strapped high.
func (m *Modem) SetChannel(ch byte) error {
	restore, err := m.enterConfigMode()
	if err != nil {
		return err
	}
	defer restore()
	return setChannel(m.port, ch)
}

// ReadChannel reads the currently configured RF channel.
func (m *Modem) ReadChannel() (byte, error) {
	restore, err := m.enterConfigMode()
	if err != nil {
		return 0, err
	}
	defer restore()

	params, err := readParams(m.port)
	if err != nil {
		return 0, err
	}
	return params[paramChanIndex], nil
}

func (m *Modem) enterConfigMode() (restore func(), err error) {
	if m.pins == nil {
		log.Printf("lora: no mode pins configured; assuming M0/M1 strapped for config mode")
		return func() {}, nil
	}
	if err := m.pins.SetConfig(); err != nil {
		return nil, err
	}
	time.Sleep(100 * time.Millisecond)
	return func() {
		if err := m.pins.SetTransparent(); err != nil {
			log.Printf("lora: restore transparent mode failed: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}, nil
}

// setChannel performs the C1/C0 read-modify-write of the parameter block
// with a verify readback.
func setChannel(rw io.ReadWriter, ch byte) error {
	params, err := readParams(rw)
	if err != nil {
		return err
	}
	params[paramChanIndex] = ch

	cmd := append([]byte{regWrite, 0x00, paramBlockLen}, params...)
	if _, err := rw.Write(cmd); err != nil {
		return fmt.Errorf("lora: write params: %w", err)
	}

	verify, err := readParams(rw)
	if err != nil {
		return fmt.Errorf("lora: verify: %w", err)
	}
	if verify[paramChanIndex] != ch {
		return fmt.Errorf("lora: channel verify failed: got 0x%02X want 0x%02X (check M0/M1 wiring)", verify[paramChanIndex], ch)
	}
	return nil
}

func readParams(rw io.ReadWriter) ([]byte, error) {
	if _, err := rw.Write([]byte{regRead, 0x00, paramBlockLen}); err != nil {
		return nil, fmt.Errorf("lora: read params: %w", err)
	}
	params, err := readExact(rw, paramBlockLen)
	if err != nil {
		return nil, fmt.Errorf("lora: read params: %w", err)
	}
	return params, nil
}

// readExact collects n bytes across multiple reads. The serial port returns
// short (or empty) reads on timeout, so attempts are bounded instead of
// trusting io.ReadFull.
func readExact(r io.Reader, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for attempts := 0; attempts < 5; attempts++ {
		k, err := r.Read(buf[:n-len(out)])
		out = append(out, buf[:k]...)
		if len(out) == n {
			return out, nil
		}
		if err != nil && err != io.EOF {
			return nil, err
		}
	}
	return nil, fmt.Errorf("short response: got %d of %d bytes", len(out), n)
}
