// Standalone mock build API for trying out the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockbuildapi
//
// Then in another terminal:
//
//	go run ./cmd/buildwatch serve -c example/config.yaml
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// lifecycle is the fixed status sequence every build walks through.
var lifecycle = []string{"pending", "running", "succeeded"}

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	step := flag.Duration("step", 15*time.Second, "time each build spends in a state")
	failing := flag.String("fail", "", "build id that ends failed instead of succeeded")
	flag.Parse()

	fmt.Printf("Mock build API starting on %s\n", *addr)
	fmt.Println("Builds cycle through: pending → running → succeeded")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		started = make(map[string]time.Time)
		mu      sync.Mutex
	)

	r := mux.NewRouter()
	r.HandleFunc("/api/builds/{buildId}/status", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["buildId"]

		mu.Lock()
		first, ok := started[id]
		if !ok {
			first = time.Now()
			started[id] = first
		}
		mu.Unlock()

		idx := int(time.Since(first) / *step)
		if idx >= len(lifecycle) {
			idx = len(lifecycle) - 1
		}
		status := lifecycle[idx]
		if status == "succeeded" && id == *failing {
			status = "failed"
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/builds/{buildId}/reset", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["buildId"]
		mu.Lock()
		delete(started, id)
		mu.Unlock()
		slog.Info("build reset", "build_id", id)
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	if err := http.ListenAndServe(*addr, r); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
