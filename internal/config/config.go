package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	GPS  GPSConfig  `yaml:"gps"`
	LoRa LoRaConfig `yaml:"lora"`
	TX   TXConfig   `yaml:"tx"`
	RX   RXConfig   `yaml:"rx"`
	Web  WebConfig  `yaml:"web"`
}

type WebConfig struct {
	// Listen enables the HTTP status endpoint when set, e.g. ":8080".
	Listen string `yaml:"listen"`
}

type GPSConfig struct {
	Device           string   `yaml:"device"`
	Baud             int      `yaml:"baud"`
	TalkerFilter     []string `yaml:"talker_filter"`
	AllowBadChecksum bool     `yaml:"allow_bad_checksum"`
	Init             bool     `yaml:"init"`
}

type LoRaConfig struct {
	Device      string        `yaml:"device"`
	Baud        int           `yaml:"baud"`
	Address     uint16        `yaml:"address"`
	Channel     uint8         `yaml:"channel"`
	DestAddress uint16        `yaml:"dest_address"`
	// Mode pins as BCM GPIO numbers. Negative disables GPIO control for
	// modules whose M0/M1 are strapped with jumpers.
	M0Pin int `yaml:"m0_pin"`
	M1Pin int `yaml:"m1_pin"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type TXConfig struct {
	MaxRateHz float64 `yaml:"max_rate_hz"`
}

type RXConfig struct {
	Source       string        `yaml:"source"`
	UDPBind      string        `yaml:"udp_bind"`
	BufferCap    int           `yaml:"buffer_cap"`
	PollInterval time.Duration `yaml:"poll_interval"`
	CSVDir       string        `yaml:"csv_dir"`
	SQLitePath   string        `yaml:"sqlite_path"`

	// CapturePath, when set, records the raw downlink stream for later
	// replay.
	CapturePath string `yaml:"capture_path"`

	Replay ReplayConfig `yaml:"replay"`

	// Demod, when command is set, runs an external demodulator (e.g. an
	// rtl_fm pipeline) expected to feed the UDP source.
	Demod DemodConfig `yaml:"demod"`
}

type DemodConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Restart *bool    `yaml:"restart"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

const (
	// SourceSerial reads the downlink from the LoRa modem UART.
	SourceSerial = "serial"
	// SourceUDP reads the downlink from a UDP port fed by an external
	// demodulator.
	SourceUDP = "udp"
	// SourceReplay reads the downlink from a capture log.
	SourceReplay = "replay"
)

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	// The PA1616S receiver and the E22 module both default to 9600 baud.
	if cfg.GPS.Baud == 0 {
		cfg.GPS.Baud = 9600
	}
	if cfg.LoRa.Baud == 0 {
		cfg.LoRa.Baud = 9600
	}
	if cfg.LoRa.ReadTimeout <= 0 {
		cfg.LoRa.ReadTimeout = 200 * time.Millisecond
	}
	if cfg.LoRa.M0Pin == 0 {
		cfg.LoRa.M0Pin = 22
	}
	if cfg.LoRa.M1Pin == 0 {
		cfg.LoRa.M1Pin = 27
	}
	if cfg.LoRa.DestAddress == 0 {
		cfg.LoRa.DestAddress = 0xFFFF
	}

	if cfg.TX.MaxRateHz == 0 {
		cfg.TX.MaxRateHz = 1
	}
	if cfg.TX.MaxRateHz < 0 {
		return Config{}, fmt.Errorf("tx.max_rate_hz must be > 0")
	}

	switch cfg.RX.Source {
	case "":
		cfg.RX.Source = SourceSerial
	case SourceSerial, SourceUDP:
	case SourceReplay:
		if cfg.RX.Replay.Path == "" {
			return Config{}, fmt.Errorf("rx.replay.path is required when rx.source is %q", SourceReplay)
		}
		if cfg.RX.CapturePath != "" {
			return Config{}, fmt.Errorf("rx.capture_path cannot be used with rx.source=%s", SourceReplay)
		}
	default:
		return Config{}, fmt.Errorf("rx.source must be %q, %q or %q", SourceSerial, SourceUDP, SourceReplay)
	}
	if cfg.RX.Replay.Speed == 0 {
		cfg.RX.Replay.Speed = 1
	}
	if cfg.RX.Replay.Speed < 0 {
		return Config{}, fmt.Errorf("rx.replay.speed must be > 0")
	}
	if cfg.RX.UDPBind == "" {
		cfg.RX.UDPBind = ":16886"
	}
	if cfg.RX.BufferCap < 0 {
		return Config{}, fmt.Errorf("rx.buffer_cap must be >= 0")
	}
	if cfg.RX.PollInterval <= 0 {
		cfg.RX.PollInterval = 50 * time.Millisecond
	}
	if cfg.RX.CSVDir == "" {
		cfg.RX.CSVDir = "telemetry"
	}
	if cfg.RX.Demod.Command != "" && cfg.RX.Source != SourceUDP {
		return Config{}, fmt.Errorf("rx.demod requires rx.source=%s", SourceUDP)
	}
	if cfg.RX.Demod.Restart == nil {
		t := true
		cfg.RX.Demod.Restart = &t
	}

	return cfg, nil
}
