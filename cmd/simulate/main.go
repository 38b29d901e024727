package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vitacare-orchestrator/internal/config"
	"github.com/hackgods/vitacare-orchestrator/internal/db"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

var intents = []string{"tomorrow", "next week", "this week", "monday", "thursday", "book something soon"}

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	CancelRatio  float64
	ReadRatio    float64
	PairLimit    int
	PostgresDSN  string
}

// pair is a patient with one of their doctors.
type pair struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
}

type DataPool struct {
	Pairs    []pair
	mu       sync.Mutex
	bookings []uuid.UUID
}

func (dp *DataPool) AddBooking(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, id)
}

// TakeBooking removes and returns a random booking so it is cancelled once.
func (dp *DataPool) TakeBooking(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.bookings) == 0 {
		return uuid.Nil, false
	}
	idx := rng.Intn(len(dp.bookings))
	id := dp.bookings[idx]
	dp.bookings[idx] = dp.bookings[len(dp.bookings)-1]
	dp.bookings = dp.bookings[:len(dp.bookings)-1]
	return id, true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	lo = latencies[0]
	hi = latencies[len(latencies)-1]
	p50 = latencies[min(len(latencies)*50/100, len(latencies)-1)]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	return avg, lo, hi, p50, p95
}

type Metrics struct {
	Suggest       OperationMetrics
	Booking       OperationMetrics
	Cancel        OperationMetrics
	ListByPatient OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	logger  *logging.Logger
}

func main() {
	logger := logging.Default()
	logger.Info("simulator starting")

	cfg := loadConfig(logger)
	if err := validateConfig(cfg); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger.Info("simulation config",
		"duration", cfg.Duration, "workers", cfg.Workers,
		"booking", cfg.BookingRatio, "cancel", cfg.CancelRatio, "read", cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{
		MaxConns: int32(cfg.Workers) + 2,
		AppName:  "vitacare-simulate",
	})
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Error("load data pool", "error", err)
		os.Exit(1)
	}
	logger.Info("data loaded", "pairs", len(dataPool.Pairs))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	sim.Run()
	sim.PrintReport()

	dupes, err := countDoubleBookings(ctx, pgPool)
	if err != nil {
		logger.Error("double booking check failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Double bookings (doctor or patient, live): %d\n", dupes)
	if dupes > 0 {
		os.Exit(1)
	}
}

func loadConfig(logger *logging.Logger) SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load base config", "error", err)
		os.Exit(1)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		// A small pair pool keeps workers fighting over the same slots.
		PairLimit:   getInt("SIM_PAIR_LIMIT", 20),
		PostgresDSN: baseCfg.PostgresDSN,
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	rows, err := pool.Query(ctx, `
		SELECT DISTINCT ON (pid) pid, did
		FROM doctors
		ORDER BY pid, created_at
		LIMIT $1
	`, cfg.PairLimit)
	if err != nil {
		return nil, fmt.Errorf("load pairs: %w", err)
	}
	defer rows.Close()

	dataPool := &DataPool{}
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.PatientID, &p.DoctorID); err != nil {
			return nil, err
		}
		dataPool.Pairs = append(dataPool.Pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(dataPool.Pairs) == 0 {
		return nil, fmt.Errorf("no patients with doctors loaded, run seed first")
	}
	return dataPool, nil
}

func countDoubleBookings(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT
		  (SELECT count(*) FROM (
		     SELECT did, appointment_time FROM schedule WHERE status <> 'cancelled'
		     GROUP BY did, appointment_time HAVING count(*) > 1) d)
		+ (SELECT count(*) FROM (
		     SELECT pid, appointment_time FROM schedule WHERE status <> 'cancelled'
		     GROUP BY pid, appointment_time HAVING count(*) > 1) p)
	`).Scan(&n)
	return n, err
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("starting simulation", "duration", s.config.Duration, "workers", s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doSuggestAndBook(ctx, rng)
			case r < s.config.BookingRatio+s.config.CancelRatio:
				s.doCancel(ctx, rng)
			default:
				s.doListByPatient(ctx, rng)
			}
		}
	}
}

type slotJSON struct {
	DateTime string `json:"datetime"`
	DoctorID string `json:"doctor_id"`
}

func (s *Simulator) doSuggestAndBook(ctx context.Context, rng *rand.Rand) {
	p := s.pool.Pairs[rng.Intn(len(s.pool.Pairs))]

	var suggest struct {
		Success bool       `json:"success"`
		Slots   []slotJSON `json:"slots"`
	}
	start := time.Now()
	status, err := s.postJSON(ctx, "/api/agents/schedule/suggest", map[string]string{
		"user_input": intents[rng.Intn(len(intents))],
		"patient_id": p.PatientID.String(),
	}, &suggest)
	s.metrics.Suggest.Record(time.Since(start), err == nil && status == http.StatusOK, false)
	if err != nil || !suggest.Success || len(suggest.Slots) == 0 {
		return
	}

	slot := suggest.Slots[rng.Intn(len(suggest.Slots))]
	var booked struct {
		Booking struct {
			ScheduleID uuid.UUID `json:"schedule_id"`
		} `json:"booking"`
	}
	start = time.Now()
	status, err = s.postJSON(ctx, "/api/agents/booking/create", map[string]string{
		"patient_id":       p.PatientID.String(),
		"doctor_id":        slot.DoctorID,
		"appointment_time": slot.DateTime,
	}, &booked)
	latency := time.Since(start)

	success := err == nil && status == http.StatusCreated
	if success && booked.Booking.ScheduleID != uuid.Nil {
		s.pool.AddBooking(booked.Booking.ScheduleID)
	}
	s.metrics.Booking.Record(latency, success, status == http.StatusConflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.TakeBooking(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, err := s.postJSON(ctx, "/api/agents/booking/cancel", map[string]string{"schedule_id": id.String()}, nil)
	s.metrics.Cancel.Record(time.Since(start), err == nil && status == http.StatusOK, status == http.StatusNotFound)
}

func (s *Simulator) doListByPatient(ctx context.Context, rng *rand.Rand) {
	p := s.pool.Pairs[rng.Intn(len(s.pool.Pairs))]

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/patients/%s/bookings", s.config.APIBaseURL, p.PatientID), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}
	s.metrics.ListByPatient.Record(latency, success, false)
}

func (s *Simulator) postJSON(ctx context.Context, path string, body any, out any) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Suggest", &s.metrics.Suggest)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("List by Patient", &s.metrics.ListByPatient)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
