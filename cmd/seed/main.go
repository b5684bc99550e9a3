package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"course-enrollment/internal/config"
	"course-enrollment/internal/domain/model"
	pg "course-enrollment/internal/infra/db/postgres"
	"course-enrollment/internal/infra/logging"
	"course-enrollment/internal/usecase"
)

// catalogFile is the on-disk layout of a catalog import.
type catalogFile struct {
	Courses []struct {
		ID            string `yaml:"id"`
		Title         string `yaml:"title"`
		PriceUSDCents int64  `yaml:"price_usd_cents"`
		Active        *bool  `yaml:"active"`
	} `yaml:"courses"`
	FXRates   map[string]float64 `yaml:"fx_rates"`
	Templates map[string][]struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		MaterialURL string `yaml:"material_url"`
	} `yaml:"templates"`
}

func (f catalogFile) toCatalog() usecase.Catalog {
	c := usecase.Catalog{FXRates: f.FXRates, Templates: make(map[string][]model.StepInput, len(f.Templates))}
	for _, row := range f.Courses {
		active := row.Active == nil || *row.Active
		c.Courses = append(c.Courses, &model.Course{ID: row.ID, Title: row.Title, PriceUSDCents: row.PriceUSDCents, IsActive: active})
	}
	for goal, steps := range f.Templates {
		for _, s := range steps {
			c.Templates[goal] = append(c.Templates[goal], model.StepInput{Title: s.Title, Description: s.Description, MaterialURL: s.MaterialURL})
		}
	}
	return c
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	catalogPath := flag.String("catalog", "catalog.yaml", "path to catalog YAML (courses, fx_rates, templates)")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	raw, err := os.ReadFile(*catalogPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *catalogPath).Msg("read catalog")
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		logger.Fatal().Err(err).Str("path", *catalogPath).Msg("parse catalog")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	uc := usecase.NewCatalogUseCase(pg.NewCatalogRepo(pool), pg.NewTxManager(pool), logger)
	rep, err := uc.Import(ctx, file.toCatalog())
	if err != nil {
		logger.Fatal().Err(err).Msg("import catalog")
	}
	fmt.Printf("seeded: %d courses, %d fx rates, %d goal templates (%d steps)\n", rep.Courses, rep.FXRates, rep.Templates, rep.Steps)
	if cfg.Redis.TTL > 0 {
		fmt.Printf("note: cached fx rates expire within %s\n", cfg.Redis.TTL)
	}
}
