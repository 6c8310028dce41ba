package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// mockBuild tracks the lifecycle of one simulated build.
type mockBuild struct {
	status       string
	nextChangeAt time.Time
}

// StartMockBuildAPI serves GET /api/builds/{buildId}/status. Every build
// starts pending, moves to running and then ends succeeded or failed, each
// step taking 10-30 seconds. Finished builds are requeued after a while so
// the demo keeps moving.
func StartMockBuildAPI(addr string) {
	var (
		builds = make(map[string]*mockBuild)
		mu     sync.Mutex
	)

	r := mux.NewRouter()
	r.HandleFunc("/api/builds/{buildId:[0-9]+}/status", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["buildId"]

		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		mu.Lock()
		b, exists := builds[id]
		if !exists {
			b = &mockBuild{status: "pending", nextChangeAt: nextStep()}
			builds[id] = b
		}
		if time.Now().After(b.nextChangeAt) {
			from := b.status
			b.status = advance(b.status)
			b.nextChangeAt = nextStep()
			slog.Info("build status change", "build_id", id, "from", from, "to", b.status)
		}
		status := b.status
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": status}); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	}).Methods(http.MethodGet)

	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("mock build API error", "error", err)
	}
}

func nextStep() time.Time {
	return time.Now().Add(time.Duration(10+rand.Intn(21)) * time.Second)
}

// advance returns the state after s in the build lifecycle.
func advance(s string) string {
	switch s {
	case "pending":
		return "running"
	case "running":
		if rand.Intn(4) == 0 {
			return "failed"
		}
		return "succeeded"
	default:
		return "pending"
	}
}
