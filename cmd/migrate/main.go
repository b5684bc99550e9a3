package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"course-enrollment/internal/infra/db/migrator"
)

func main() {
	_ = godotenv.Load()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	dir := flag.String("dir", "migrations", "migrations directory")
	dsn := flag.String("database", os.Getenv("DATABASE_URL"), "postgres connection string")
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}
	if *dsn == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := migrator.New(*dir, *dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate init failed")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("closing migrate failed")
		}
	}()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		if err := m.Up(); errors.Is(err, migrate.ErrNoChange) {
			logger.Info().Msg("schema already up to date")
		} else if err != nil {
			logger.Fatal().Err(err).Msg("migrate up failed")
		} else {
			logger.Info().Msg("migrations applied")
		}
	case "down":
		if err := m.Steps(-1); err != nil {
			logger.Fatal().Err(err).Msg("migrate down failed")
		}
		logger.Info().Msg("last migration rolled back")
	case "goto":
		v, err := strconv.ParseUint(flag.Arg(1), 10, 64)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid version")
		}
		if err := m.Migrate(uint(v)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Uint64("version", v).Msg("migrate goto failed")
		}
		logger.Info().Uint64("version", v).Msg("migrated")
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info().Msg("no migrations applied")
			return
		}
		if err != nil {
			logger.Fatal().Err(err).Msg("read version failed")
		}
		logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("current version")
	default:
		logger.Error().Str("command", cmd).Msg("unknown command")
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: migrate [-dir migrations] [-database url] up|down|goto <version>|version")
}
