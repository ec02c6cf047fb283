// Package web serves a small JSON status endpoint so a running station can
// be inspected over the network.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SnapshotFunc returns a JSON-marshalable view of one service's state.
type SnapshotFunc func() any

// Status aggregates named service snapshots for the status endpoint.
type Status struct {
	service string
	start   time.Time
	sources map[string]SnapshotFunc
}

func NewStatus(service string) *Status {
	return &Status{
		service: service,
		start:   time.Now().UTC(),
		sources: map[string]SnapshotFunc{},
	}
}

// Register adds a snapshot source under name. Not safe to call after the
// server starts.
func (s *Status) Register(name string, fn SnapshotFunc) {
	s.sources[name] = fn
}

func (s *Status) snapshot(now time.Time) map[string]any {
	out := map[string]any{
		"service":    s.service,
		"now_utc":    now.Format(time.RFC3339Nano),
		"uptime_sec": int64(now.Sub(s.start).Seconds()),
	}
	for name, fn := range s.sources {
		out[name] = fn()
	}
	return out
}

func Handler(status *Status) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		b, err := json.MarshalIndent(status.snapshot(time.Now().UTC()), "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>%s</title></head><body>", status.service)
		_, _ = fmt.Fprintf(w, "<h1>%s</h1>", status.service)
		_, _ = fmt.Fprintf(w, "<p>See <a href=\"/api/status\">/api/status</a>.</p>")
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

// Serve runs the status server until ctx is canceled.
func Serve(ctx context.Context, listenAddr string, status *Status) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
