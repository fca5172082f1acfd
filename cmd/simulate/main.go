package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caresync/healthcare-backend/internal/booking"
	"github.com/caresync/healthcare-backend/internal/config"
	"github.com/caresync/healthcare-backend/internal/db"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	ProviderLim  int
	PatientLim   int
	SlotMinutes  int
	HorizonHours int
	PostgresDSN  string
}

type DataPool struct {
	Providers []uuid.UUID
	Patients  []uuid.UUID
}

type OperationMetrics struct {
	Total     int64
	Committed int64
	Conflict  int64
	Rejected  int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Committed, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case status >= 400 && status < 500:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	idx := func(p int) int {
		i := len(latencies) * p / 100
		if i >= len(latencies) {
			i = len(latencies) - 1
		}
		return i
	}
	return avg, latencies[idx(50)], latencies[idx(95)]
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics OperationMetrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required (set in .env or environment)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded: %d providers, %d patients", len(dataPool.Providers), len(dataPool.Patients))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()

	if err := verifyNoOverlaps(context.Background(), pgPool, dataPool.Providers); err != nil {
		log.Fatalf("INVARIANT VIOLATED: %v", err)
	}
	log.Println("schedule invariant holds: no overlapping scheduled appointments per provider")
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		ProviderLim:  getInt("SIM_PROVIDER_LIMIT", 20),
		PatientLim:   getInt("SIM_PATIENT_LIMIT", 2000),
		SlotMinutes:  getInt("SIM_SLOT_MINUTES", 30),
		HorizonHours: getInt("SIM_HORIZON_HOURS", 48),
		PostgresDSN:  baseCfg.PostgresDSN,
	}
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM providers LIMIT $1`, cfg.ProviderLim)
	if err != nil {
		return nil, fmt.Errorf("load providers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Providers = append(dataPool.Providers, id)
	}

	rows, err = pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, cfg.PatientLim)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}

	if len(dataPool.Providers) == 0 {
		return nil, fmt.Errorf("no providers loaded, run the seed first")
	}
	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run the seed first")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			s.doBooking(ctx, rng)
		}
	}
}

// doBooking books a random aligned slot in the horizon; aligned slots make
// collisions frequent enough to exercise the conflict path.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	providerID := s.pool.Providers[rng.Intn(len(s.pool.Providers))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	slot := time.Duration(s.config.SlotMinutes) * time.Minute
	slotsInHorizon := int(time.Duration(s.config.HorizonHours) * time.Hour / slot)
	base := time.Now().Truncate(slot).Add(slot)
	start := base.Add(time.Duration(rng.Intn(slotsInHorizon)) * slot)
	end := start.Add(slot)

	body, _ := json.Marshal(map[string]string{
		"provider_id": providerID.String(),
		"patient_id":  patientID.String(),
		"start":       start.Format(time.RFC3339),
		"end":         end.Format(time.RFC3339),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.Record(time.Since(started), 0)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	s.metrics.Record(time.Since(started), resp.StatusCode)
}

func (s *Simulator) PrintReport() {
	avg, p50, p95 := s.metrics.Stats()
	log.Printf("bookings: total=%d committed=%d conflict=%d rejected=%d error=%d",
		atomic.LoadInt64(&s.metrics.Total),
		atomic.LoadInt64(&s.metrics.Committed),
		atomic.LoadInt64(&s.metrics.Conflict),
		atomic.LoadInt64(&s.metrics.Rejected),
		atomic.LoadInt64(&s.metrics.Error),
	)
	log.Printf("latency: avg=%s p50=%s p95=%s", avg, p50, p95)
}

// verifyNoOverlaps re-reads every provider's scheduled appointments and
// checks the pairwise non-overlap invariant directly against the store.
func verifyNoOverlaps(ctx context.Context, pool *pgxpool.Pool, providers []uuid.UUID) error {
	store := booking.NewPgStore(pool)

	for _, providerID := range providers {
		appts, err := store.ListForProvider(ctx, providerID, time.Time{}, time.Time{})
		if err != nil {
			return fmt.Errorf("list provider %s: %w", providerID, err)
		}
		for i := 1; i < len(appts); i++ {
			prev, cur := appts[i-1], appts[i]
			if booking.Overlaps(prev.Start, prev.End, cur.Start, cur.End) {
				return fmt.Errorf("provider %s: %s [%s,%s) overlaps %s [%s,%s)",
					providerID, prev.ID, prev.Start, prev.End, cur.ID, cur.Start, cur.End)
			}
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
