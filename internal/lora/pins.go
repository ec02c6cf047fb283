package lora

// modePins drives the module's M0/M1 mode selection lines.
//
// Ground stations often run on laptops where the pins are strapped with
// jumpers instead; a nil modePins means "mode is managed externally".
type modePins interface {
	SetTransparent() error
	SetConfig() error
	Close() error
}
