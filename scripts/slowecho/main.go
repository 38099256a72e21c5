// Slowecho is a standalone echo server used to exercise the forwarding
// service's failure handling. It answers /echo and /health like the real
// echo service but can delay or fail echo responses on demand.
//
// Usage:
//
//	go run ./scripts/slowecho -port 8080 -delay 3s
//	go run ./scripts/slowecho -port 8080 -status 500
//
// A delay longer than the forwarding service's upstream timeout produces
// timeout responses; -status forces a non-200 reply from /echo.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	delay := flag.Duration("delay", 0, "artificial delay before answering /echo")
	status := flag.Int("status", 0, "force this status code on /echo (0 echoes normally)")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		msg := r.URL.Query().Get("msg")
		log.Printf("request: path=%s msg=%q from=%s delay=%v", r.URL.Path, msg, r.RemoteAddr, *delay)

		if *delay > 0 {
			select {
			case <-time.After(*delay):
			case <-r.Context().Done():
				log.Printf("caller gave up waiting: msg=%q", msg)
				return
			}
		}

		if *status != 0 {
			http.Error(w, "forced failure", *status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"echo": msg})
	})

	// health stays fast and honest even when /echo is crippled
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting slow echo server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
