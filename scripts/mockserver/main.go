// Command mockserver serves the benchmark endpoints benchboard talks to, for
// local demos and manual testing.
package main

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

const (
	simulationWindow = 10 * time.Second
	maxWorkUnits     = 50_000_000
)

func main() {
	port := flag.Int("port", 8080, "Listening port")
	failRate := flag.Int("fail-every", 0, "Answer every Nth /benchmark request with 500 (0 disables)")
	flag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}

	srv := newServer(*failRate)
	addr := fmt.Sprintf(":%d", *port)
	log.Printf("benchmark mock server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, srv.routes()))
}

type server struct {
	failEvery int64
	requests  atomic.Int64
	dbOps     atomic.Int64
	users     atomic.Int64

	mu       sync.Mutex
	cpuUntil time.Time
	ioUntil  time.Time
	started  time.Time
}

func newServer(failEvery int) *server {
	return &server{failEvery: int64(failEvery), started: time.Now()}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/benchmark", s.handleBenchmark)
	mux.HandleFunc("/cpu-benchmark", s.handleProbe(func() any { return hashWork(2_000_000) }))
	mux.HandleFunc("/memory-benchmark", s.handleProbe(func() any {
		buf := make([]byte, 64<<20)
		for i := range buf {
			buf[i] = byte(i)
		}
		return map[string]any{"allocated_mb": len(buf) >> 20}
	}))
	mux.HandleFunc("/db-benchmark", s.handleProbe(func() any {
		s.dbOps.Add(100)
		time.Sleep(20 * time.Millisecond)
		return map[string]any{"queries": 100}
	}))
	mux.HandleFunc("/mixed-benchmark", s.handleProbe(func() any {
		s.dbOps.Add(10)
		return map[string]any{"hash": hashWork(500_000)["result"], "queries": 10}
	}))
	mux.HandleFunc("/concurrency-check", s.handleProbe(func() any {
		return map[string]any{"pid": os.Getpid(), "active_users": s.users.Load()}
	}))
	mux.HandleFunc("/simulate-cpu", s.handleControl(func() {
		s.mu.Lock()
		s.cpuUntil = time.Now().Add(simulationWindow)
		s.mu.Unlock()
		go burnUntil(time.Now().Add(simulationWindow))
	}))
	mux.HandleFunc("/simulate-io", s.handleControl(func() {
		s.mu.Lock()
		s.ioUntil = time.Now().Add(simulationWindow)
		s.mu.Unlock()
	}))
	mux.HandleFunc("/simulate-users", s.handleControl(func() { s.users.Add(25) }))
	mux.HandleFunc("/reset", s.handleControl(func() {
		s.mu.Lock()
		s.cpuUntil, s.ioUntil = time.Time{}, time.Time{}
		s.mu.Unlock()
		s.users.Store(0)
		s.dbOps.Store(0)
	}))
	mux.HandleFunc("/", s.handleHealth)
	return mux
}

func (s *server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	n := s.requests.Add(1)
	if s.failEvery > 0 && n%s.failEvery == 0 {
		respondJSON(w, http.StatusInternalServerError, map[string]any{"error": "injected failure"})
		return
	}
	work, err := strconv.Atoi(r.URL.Query().Get("work"))
	if err != nil || work < 1 {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "work must be a positive integer"})
		return
	}
	if work > maxWorkUnits {
		work = maxWorkUnits
	}
	if s.ioActive() {
		time.Sleep(50 * time.Millisecond)
	}

	start := time.Now()
	out := hashWork(work)
	elapsed := time.Since(start)
	ms := float64(elapsed.Microseconds()) / 1000
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(work) / elapsed.Seconds()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"duration_ms": ms,
		"throughput":  throughput,
		"iterations":  work,
		"result":      out["result"],
		"server_pid":  os.Getpid(),
		"status":      "ok",
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	var cpuLoad, memUsage float64
	if pct, err := cpu.PercentWithContext(r.Context(), 0, false); err == nil && len(pct) > 0 {
		cpuLoad = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		memUsage = vm.UsedPercent
	}
	uptime := time.Since(s.started).Seconds()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"service":          "benchmark-mock",
		"cpu_load":         cpuLoad,
		"memory_usage":     memUsage,
		"active_users":     s.users.Load(),
		"requests_per_sec": float64(s.requests.Load()) / uptime,
		"db_ops_per_sec":   float64(s.dbOps.Load()) / uptime,
		"cpu_simulation":   s.cpuActive(),
		"io_simulation":    s.ioActive(),
	})
}

func (s *server) handleProbe(fn func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		payload := fn()
		respondJSON(w, http.StatusOK, map[string]any{
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
			"data":        payload,
		})
	}
}

func (s *server) handleControl(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		fn()
		respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "path": r.URL.Path})
	}
}

func (s *server) cpuActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.cpuUntil)
}

func (s *server) ioActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.ioUntil)
}

func hashWork(iterations int) map[string]any {
	var sum [32]byte
	var buf [8]byte
	for i := 0; i < iterations; i++ {
		binary.LittleEndian.PutUint64(buf[:], binary.LittleEndian.Uint64(sum[:8])^uint64(i))
		sum = sha256.Sum256(buf[:])
	}
	return map[string]any{"result": binary.LittleEndian.Uint32(sum[:4])}
}

func burnUntil(deadline time.Time) {
	for time.Now().Before(deadline) {
		hashWork(10_000)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
