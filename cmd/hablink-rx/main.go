package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hablink/internal/config"
	"hablink/internal/datalog"
	"hablink/internal/demod"
	"hablink/internal/ground"
	"hablink/internal/lora"
	"hablink/internal/replay"
	"hablink/internal/udp"
	"hablink/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./hablink.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var src ground.Source
	switch cfg.RX.Source {
	case config.SourceReplay:
		recs, err := replay.Load(cfg.RX.Replay.Path)
		if err != nil {
			log.Fatalf("capture load failed: %v", err)
		}
		rs, err := replay.NewSource(recs, cfg.RX.Replay.Speed, cfg.RX.Replay.Loop)
		if err != nil {
			log.Fatalf("replay source init failed: %v", err)
		}
		src = rs
		log.Printf("downlink source replay path=%s speed=%.1fx loop=%v",
			cfg.RX.Replay.Path, cfg.RX.Replay.Speed, cfg.RX.Replay.Loop)
	case config.SourceUDP:
		l, err := udp.NewListener(cfg.RX.UDPBind, cfg.LoRa.ReadTimeout)
		if err != nil {
			log.Fatalf("udp listener init failed: %v", err)
		}
		defer l.Close()
		src = l
		log.Printf("downlink source udp bind=%s", l.Addr())
	default:
		modem, err := lora.OpenModem(lora.ModemConfig{
			Device:      cfg.LoRa.Device,
			Baud:        cfg.LoRa.Baud,
			ReadTimeout: cfg.LoRa.ReadTimeout,
			M0Pin:       cfg.LoRa.M0Pin,
			M1Pin:       cfg.LoRa.M1Pin,
		})
		if err != nil {
			log.Fatalf("lora modem init failed: %v", err)
		}
		defer modem.Close()
		src = modem
		log.Printf("downlink source serial device=%s baud=%d", cfg.LoRa.Device, cfg.LoRa.Baud)
	}

	var demodSup *demod.Supervisor
	if cfg.RX.Demod.Command != "" {
		demodSup, err = demod.NewSupervisor(demod.Config{
			Command: cfg.RX.Demod.Command,
			Args:    cfg.RX.Demod.Args,
			Restart: *cfg.RX.Demod.Restart,
		})
		if err != nil {
			log.Fatalf("demod supervisor init failed: %v", err)
		}
		if err := demodSup.Start(ctx); err != nil {
			log.Fatalf("demod supervisor start failed: %v", err)
		}
		defer demodSup.Close()
		log.Printf("demodulator supervised command=%s", cfg.RX.Demod.Command)
	}

	if cfg.RX.CapturePath != "" {
		w, err := replay.CreateWriter(cfg.RX.CapturePath)
		if err != nil {
			log.Fatalf("capture log init failed: %v", err)
		}
		defer w.Close()
		src = &replay.CaptureSource{Src: src, Log: w}
		log.Printf("capturing raw downlink to %s", cfg.RX.CapturePath)
	}

	csv, err := datalog.NewCSVLog(cfg.RX.CSVDir)
	if err != nil {
		log.Fatalf("csv log init failed: %v", err)
	}
	defer csv.Close()
	log.Printf("logging to %s", csv.Path())

	sinks := []ground.Sink{csv}
	if cfg.RX.SQLitePath != "" {
		db, err := datalog.NewSQLiteLog(cfg.RX.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite log init failed: %v", err)
		}
		defer db.Close()
		sinks = append(sinks, db)
	}

	svc := ground.New(src, sinks, ground.Config{
		BufferCap:    cfg.RX.BufferCap,
		PollInterval: cfg.RX.PollInterval,
	})
	if err := svc.Start(ctx); err != nil {
		log.Fatalf("ground service start failed: %v", err)
	}
	defer svc.Close()

	if cfg.Web.Listen != "" {
		status := web.NewStatus("hablink-rx")
		status.Register("ground", func() any { return svc.Snapshot() })
		if demodSup != nil {
			status.Register("demod", func() any { return demodSup.Snapshot() })
		}
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, status); err != nil && ctx.Err() == nil {
				log.Printf("status server stopped: %v", err)
			}
		}()
		log.Printf("status endpoint on %s", cfg.Web.Listen)
	}

	log.Printf("hablink-rx starting")
	<-ctx.Done()
	log.Printf("hablink-rx stopping")
	svc.Close()

	snap := svc.Snapshot()
	log.Printf("hablink-rx done packets=%d parse_errors=%d rejected=%d read_errors=%d sink_errors=%d",
		snap.Packets, snap.ParseErrors, snap.Rejected, snap.ReadErrors, snap.SinkErrors)
}
