package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/vitacare-orchestrator/internal/db"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

var (
	medicines = []string{
		"Metformin", "Amlodipine", "Atorvastatin", "Levothyroxine", "Lisinopril",
		"Omeprazole", "Losartan", "Paracetamol", "Vitamin D3", "Aspirin",
	}
	buckets = []string{"morning", "afternoon", "night"}
)

func main() {
	logger := logging.Default()
	logger.Info("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Error("POSTGRES_DSN is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{MaxConns: 2, AppName: "vitacare-seed"})
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	// Every seeded patient shares one password so the demo accounts are usable.
	hash, err := bcrypt.GenerateFromPassword([]byte("vitacare-demo"), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", "error", err)
		os.Exit(1)
	}

	if err := seedPatients(context.Background(), pool, logger, 200, string(hash)); err != nil {
		logger.Error("seed patients", "error", err)
		os.Exit(1)
	}

	logger.Info("seed complete")
}

// seedPatients inserts patients in batches. Each gets one processed upload,
// one or two doctors and a few medications with reminder buckets.
func seedPatients(ctx context.Context, pool *pgxpool.Pool, logger *logging.Logger, count int, passwordHash string) error {
	logger.Info("seeding patients", "count", count)

	const batchSize = 50

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			if err := seedPatient(ctx, tx, i, passwordHash); err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info("patients seeded", "done", end, "total", count)
	}

	return nil
}

func seedPatient(ctx context.Context, tx pgx.Tx, n int, passwordHash string) error {
	pid := uuid.New()
	dob := gofakeit.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC))

	_, err := tx.Exec(ctx, `
		INSERT INTO patients (pid, username, name, password_hash, phone, email, dob)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, pid, fmt.Sprintf("%s%d", gofakeit.Username(), n), gofakeit.Name(), passwordHash,
		fmt.Sprintf("+1555%07d", n), fmt.Sprintf("patient%d@%s", n, gofakeit.DomainName()), dob)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}

	uploadID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO uploads (upload_id, pid, file_hash, file_name, file_size, file_type, extraction_status)
		VALUES ($1, $2, $3, $4, $5, 'application/pdf', 'success')
	`, uploadID, pid, uuid.NewString(), fmt.Sprintf("prescription_%d.pdf", n), gofakeit.Number(20_000, 900_000))
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}

	doctors := gofakeit.Number(1, 2)
	for d := 0; d < doctors; d++ {
		_, err = tx.Exec(ctx, `
			INSERT INTO doctors (pid, doctor_name, doctor_id_external, upload_id)
			VALUES ($1, $2, $3, $4)
		`, pid, "Dr. "+gofakeit.LastName(), fmt.Sprintf("REG-%06d", gofakeit.Number(0, 999_999)), uploadID)
		if err != nil {
			return fmt.Errorf("insert doctor: %w", err)
		}
	}

	start := gofakeit.Number(0, len(medicines)-1)
	drugs := gofakeit.Number(1, 3)
	for m := 0; m < drugs; m++ {
		drugID := uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO drugs (drug_id, pid, upload_id, drug_name)
			VALUES ($1, $2, $3, $4)
		`, drugID, pid, uploadID, medicines[(start+m)%len(medicines)])
		if err != nil {
			return fmt.Errorf("insert drug: %w", err)
		}

		first := gofakeit.Number(0, len(buckets)-1)
		slots := gofakeit.Number(1, len(buckets))
		for b := 0; b < slots; b++ {
			_, err = tx.Exec(ctx, `
				INSERT INTO drug_slots (drug_id, slot) VALUES ($1, $2)
			`, drugID, buckets[(first+b)%len(buckets)])
			if err != nil {
				return fmt.Errorf("insert drug slot: %w", err)
			}
		}
	}

	return nil
}
