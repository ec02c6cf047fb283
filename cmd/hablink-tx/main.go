package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hablink/internal/config"
	"hablink/internal/gps"
	"hablink/internal/lora"
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

	if cfg.LoRa.Channel != 0 {
		if err := modem.SetChannel(byte(cfg.LoRa.Channel)); err != nil {
			// Not fatal: the module keeps its stored channel.
			log.Printf("lora channel set failed: %v", err)
		}
	}

	gpsSvc := gps.New(gps.Config{
		Device:           cfg.GPS.Device,
		Baud:             cfg.GPS.Baud,
		TalkerFilter:     cfg.GPS.TalkerFilter,
		AllowBadChecksum: cfg.GPS.AllowBadChecksum,
		Init:             cfg.GPS.Init,
	})
	if err := gpsSvc.Start(ctx); err != nil {
		log.Fatalf("gps service start failed: %v", err)
	}
	defer gpsSvc.Close()

	chanByte := byte(cfg.LoRa.Channel)
	sender := lora.NewSender(modem, gpsSvc.Payload, lora.SenderConfig{
		MaxRateHz: cfg.TX.MaxRateHz,
		Src:       lora.Addr{ID: cfg.LoRa.Address, Channel: chanByte},
		Dst:       lora.Addr{ID: cfg.LoRa.DestAddress, Channel: chanByte},
	})
	if err := sender.Start(ctx); err != nil {
		log.Fatalf("lora sender start failed: %v", err)
	}
	defer sender.Close()

	if cfg.Web.Listen != "" {
		status := web.NewStatus("hablink-tx")
		status.Register("gps", func() any { return gpsSvc.Latest() })
		status.Register("sender", func() any { return sender.Snapshot() })
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, status); err != nil && ctx.Err() == nil {
				log.Printf("status server stopped: %v", err)
			}
		}()
		log.Printf("status endpoint on %s", cfg.Web.Listen)
	}

	log.Printf("hablink-tx starting")
	log.Printf("gps device=%s lora device=%s dst=0x%04X rate=%.2fHz",
		cfg.GPS.Device, cfg.LoRa.Device, cfg.LoRa.DestAddress, cfg.TX.MaxRateHz)

	<-ctx.Done()
	log.Printf("hablink-tx stopping")

	snap := sender.Snapshot()
	st := gpsSvc.Latest()
	log.Printf("hablink-tx done sentences=%d rejected=%d frames=%d write_errors=%d",
		st.Sentences, st.Rejected, snap.Frames, snap.WriteErrors)
}
