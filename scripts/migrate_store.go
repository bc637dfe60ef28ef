package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"guesthouse/internal/models"
	"guesthouse/internal/service"
	"guesthouse/internal/storage"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Copies the JSON file store into the sqlite document store and optionally
// seeds testimonials from a YAML file.

type SeedConfig struct {
	Testimonials []service.TestimonialRequest `yaml:"testimonials"`
}

var collections = []string{
	models.CollectionBookings,
	models.CollectionContacts,
	models.CollectionTestimonials,
	models.CollectionVisitorCounter,
	models.CollectionPayments,
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		dataDir  = flag.String("data", "./data", "directory of the JSON file store")
		dbPath   = flag.String("db", "./data/guesthouse.db", "path to sqlite db")
		seedPath = flag.String("seed", "", "optional YAML file with testimonials to seed")
		force    = flag.Bool("force", false, "overwrite collections that already hold documents")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	source, err := storage.NewFileStore(*dataDir)
	if err != nil {
		return fmt.Errorf("open file store: %w", err)
	}
	target, err := storage.NewSQLiteStore(ctx, *dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer target.Close()

	copied, skipped, err := copyCollections(ctx, source, target, *force, &logger)
	if err != nil {
		return err
	}

	seeded := 0
	if *seedPath != "" {
		seeded, err = seedTestimonials(ctx, target, *seedPath, &logger)
		if err != nil {
			return err
		}
	}

	fmt.Printf("done: copied=%d skipped=%d seeded=%d\n", copied, skipped, seeded)
	return nil
}

func seedTestimonials(ctx context.Context, store storage.Store, path string, logger *zerolog.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed: %w", err)
	}
	var cfg SeedConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return 0, fmt.Errorf("parse seed: %w", err)
	}

	testimonials := service.NewTestimonialService(store, logger)
	existing, err := testimonials.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		logger.Info().Int("existing", len(existing)).Msg("testimonials present, seed skipped")
		return 0, nil
	}

	seeded := 0
	for _, req := range cfg.Testimonials {
		if _, err := testimonials.Add(ctx, req); err != nil {
			logger.Warn().Err(err).Str("name", req.Name).Msg("seed testimonial rejected")
			continue
		}
		seeded++
	}
	return seeded, nil
}

func copyCollections(ctx context.Context, source, target storage.Store, force bool, logger *zerolog.Logger) (copied, skipped int, err error) {
	for _, name := range collections {
		docs, err := source.Collection(name).Read(ctx)
		if err != nil {
			return copied, skipped, fmt.Errorf("read %s: %w", name, err)
		}
		dst := target.Collection(name)
		existing, err := dst.Read(ctx)
		if err != nil {
			return copied, skipped, fmt.Errorf("read target %s: %w", name, err)
		}
		if len(existing) > 0 && !force {
			logger.Warn().Str("collection", name).Int("existing", len(existing)).Msg("target not empty, skipping")
			skipped++
			continue
		}
		if err := dst.Write(ctx, docs); err != nil {
			return copied, skipped, fmt.Errorf("write %s: %w", name, err)
		}
		logger.Info().Str("collection", name).Int("documents", len(docs)).Msg("collection copied")
		copied++
	}
	return copied, skipped, nil
}
