package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"course-enrollment/internal/config"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/repository"
	"course-enrollment/internal/infra/db/postgres"
	"course-enrollment/internal/infra/logging"
	"course-enrollment/internal/infra/web"
)

// This script is for setting up a clean, predictable database state
// for manual end-to-end testing. It resets one gated student and one
// staff member and prints bearer tokens for both.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	studentUID := flag.String("student", "e2e-student", "uid of the test student")
	staffUID := flag.String("staff", "e2e-staff", "uid of the test staff member")
	currency := flag.String("currency", "USD", "preferred currency of the test student")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)
	ctx := context.Background()

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()
	students := postgres.NewStudentRepo(pool)

	// --- Reset users ---
	st, _ := model.NewStudent(*studentUID, *studentUID+"@example.com", "E2E Student")
	st.PreferredCurrency = *currency
	if err := students.Save(ctx, repository.NoTX, st); err != nil {
		logger.Fatal().Err(err).Msg("save student")
	}
	staff, _ := model.NewStudent(*staffUID, *staffUID+"@example.com", "E2E Staff")
	staff.Role = model.RoleStaff
	staff.Status = model.EnrollmentStatusActive
	if err := students.Save(ctx, repository.NoTX, staff); err != nil {
		logger.Fatal().Err(err).Msg("save staff")
	}

	// --- Tokens ---
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, *ttl)
	studentTok, err := auth.Issue(st.UID, model.RoleStudent)
	if err != nil {
		logger.Fatal().Err(err).Msg("issue student token")
	}
	staffTok, err := auth.Issue(staff.UID, model.RoleStaff)
	if err != nil {
		logger.Fatal().Err(err).Msg("issue staff token")
	}

	fmt.Println("E2E setup complete.")
	fmt.Printf("student %s (status=%s)\n  Authorization: Bearer %s\n", st.UID, st.Status, studentTok)
	fmt.Printf("staff   %s\n  Authorization: Bearer %s\n", staff.UID, staffTok)
}
