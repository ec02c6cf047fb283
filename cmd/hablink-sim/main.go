package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hablink/internal/sim"
	"hablink/internal/udp"
)

func main() {
	var (
		dest       string
		interval   time.Duration
		scriptPath string
		loop       bool
	)
	flag.StringVar(&dest, "dest", "127.0.0.1:16886", "UDP destination for synthetic frames")
	flag.DurationVar(&interval, "interval", time.Second, "Frame interval")
	flag.StringVar(&scriptPath, "script", "", "YAML flight script (default: built-in ascent profile)")
	flag.BoolVar(&loop, "loop", false, "Loop the flight script when it ends")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var flight *sim.Flight
	if scriptPath != "" {
		script, err := sim.LoadFlightScript(scriptPath)
		if err != nil {
			log.Fatalf("flight script load failed: %v", err)
		}
		flight, err = sim.NewFlight(script)
		if err != nil {
			log.Fatalf("flight script invalid: %v", err)
		}
		log.Printf("flight script %s duration=%s loop=%v", scriptPath, flight.Duration(), loop)
	}

	b, err := udp.NewBroadcaster(dest)
	if err != nil {
		log.Fatalf("udp broadcaster init failed: %v", err)
	}
	defer b.Close()

	profile := sim.DefaultProfile()
	start := time.Now()

	log.Printf("hablink-sim starting dest=%s interval=%s", dest, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		var s sim.Sample
		if flight != nil {
			s = flight.At(time.Since(start), loop)
		} else {
			s = profile.At(tick)
		}

		frame := sim.WireFrame(s, time.Now().UTC())
		if err := b.Send([]byte(frame)); err != nil {
			log.Printf("send failed: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Printf("hablink-sim done frames=%d", b.Sent())
			return
		case <-ticker.C:
		}
	}
}
