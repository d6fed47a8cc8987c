// Command seed inserts a public, published demo tour so the playback page has
// something to show on a fresh database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/demotours/tour-builder/internal/core/domain"
	"github.com/demotours/tour-builder/internal/core/ports"
	"github.com/demotours/tour-builder/internal/core/service"
	"github.com/demotours/tour-builder/internal/infrastructure/config"
	"github.com/demotours/tour-builder/internal/infrastructure/db/mongo"
	"github.com/demotours/tour-builder/pkg/logger"
)

type seedConfig struct {
	Mongo    config.MongoConfig
	OwnerID  string `env:"SEED_OWNER_ID"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
}

// demoTour is the tour every fresh install starts with.
func demoTour(ownerID string) ports.CreateTourInput {
	return ports.CreateTourInput{
		OwnerID:     ownerID,
		Title:       "Demo Tour",
		Description: "A quick walkthrough of the tour builder.",
		Status:      string(domain.StatusPublished),
		IsPublic:    true,
		Steps: []ports.StepInput{
			{Title: "Welcome", Description: "This is the first step of the demo.", Duration: domain.DefaultStepDuration},
			{Title: "Build your steps", Description: "Add a title, a description and a screenshot to each step.", Duration: domain.DefaultStepDuration},
			{Title: "Share it", Description: "Publish the tour and send the link to your users.", Duration: domain.DefaultStepDuration},
		},
	}
}

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	var cfg seedConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "tour-seed"})

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	defer func() { _ = client.Disconnect(ctx) }()

	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("ensure indexes")
	}

	tours := service.NewTourService(mongo.NewTourRepository(db), nil, log)
	tour, err := tours.CreateTour(ctx, demoTour(cfg.OwnerID))
	if err != nil {
		log.Fatal().Err(err).Msg("seed demo tour")
	}
	log.Info().Str("tour_id", tour.ID).Int("steps", len(tour.Steps)).Msg("demo tour inserted")
	fmt.Println(tour.ID)
}
