//go:build linux

package lora

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openModePins claims the module's M0/M1 mode lines as digital outputs using
// the Linux GPIO character device. Pin numbers are BCM GPIO numbering.
func openModePins(m0Pin, m1Pin int) (modePins, error) {
	if m0Pin <= 0 || m1Pin <= 0 {
		return nil, fmt.Errorf("lora: both m0_pin and m1_pin must be set (got %d/%d)", m0Pin, m1Pin)
	}

	p := &gpiodPins{}
	var err error
	p.chip, p.m0, err = requestLine(m0Pin)
	if err != nil {
		return nil, err
	}
	var chip1 *gpiocdev.Chip
	chip1, p.m1, err = requestLine(m1Pin)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.chip1 = chip1
	return p, nil
}

func requestLine(pin int) (*gpiocdev.Chip, *gpiocdev.Line, error) {
	// On Pi, header lines are commonly named "GPIO<n>".
	lineName := fmt.Sprintf("GPIO%d", pin)

	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("hablink-lora"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return chip, line, nil
	}
	return nil, nil, fmt.Errorf("lora: gpio line %q not found (or busy)", lineName)
}

type gpiodPins struct {
	chip  *gpiocdev.Chip
	chip1 *gpiocdev.Chip
	m0    *gpiocdev.Line
	m1    *gpiocdev.Line
}

// SetTransparent drives M0=0, M1=0: normal UART pass-through.
func (p *gpiodPins) SetTransparent() error {
	return p.set(0, 0)
}

// SetConfig drives M0=1, M1=1: register access mode.
func (p *gpiodPins) SetConfig() error {
	return p.set(1, 1)
}

func (p *gpiodPins) set(m0, m1 int) error {
	if p == nil || p.m0 == nil || p.m1 == nil {
		return fmt.Errorf("lora: mode pins not initialized")
	}
	if err := p.m0.SetValue(m0); err != nil {
		return err
	}
	return p.m1.SetValue(m1)
}

func (p *gpiodPins) Close() error {
	if p == nil {
		return nil
	}
	// Leave the module in transparent mode on shutdown.
	if p.m0 != nil && p.m1 != nil {
		_ = p.set(0, 0)
	}
	var first error
	for _, l := range []*gpiocdev.Line{p.m0, p.m1} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	p.m0, p.m1 = nil, nil
	for _, c := range []*gpiocdev.Chip{p.chip, p.chip1} {
		if c != nil {
			_ = c.Close()
		}
	}
	p.chip, p.chip1 = nil, nil
	return first
}
