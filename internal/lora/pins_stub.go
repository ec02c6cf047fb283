//go:build !linux

package lora

import "fmt"

func openModePins(m0Pin, m1Pin int) (modePins, error) {
	return nil, fmt.Errorf("lora: gpio mode pins unsupported on this platform")
}
