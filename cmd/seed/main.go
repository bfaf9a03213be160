package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"events-tracker/internal/config"
	"events-tracker/internal/domain"
	"events-tracker/internal/repository/sqlite"
)

type seedEvent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Category    string `json:"category"`
}

// seed loads sample events from a JSON file and inserts them on behalf of an
// existing user.
func main() {
	file := flag.String("file", "sample_events.json", "path to the sample events JSON file")
	owner := flag.String("owner", "", "username that will own the seeded events")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *owner == "" {
		logger.Fatal("-owner is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatalf("read %s: %v", *file, err)
	}

	var samples []seedEvent
	if err := json.Unmarshal(raw, &samples); err != nil {
		logger.Fatalf("parse %s: %v", *file, err)
	}

	ctx := context.Background()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	eventRepo := sqlite.NewEventRepository(db)
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := eventRepo.Init(ctx); err != nil {
		logger.Fatalf("init event repository: %v", err)
	}

	creator, err := userRepo.GetByUsername(ctx, *owner)
	if err != nil {
		logger.Fatalf("look up owner %q: %v", *owner, err)
	}

	for _, sample := range samples {
		date, err := time.Parse(time.RFC3339, sample.Date)
		if err != nil {
			// seed files written by hand often omit the zone
			date, err = time.Parse("2006-01-02T15:04:05", sample.Date)
		}
		if err != nil {
			logger.Warnf("skip %q: bad date %q", sample.Title, sample.Date)
			continue
		}

		category, err := domain.ParseCategory(sample.Category)
		if err != nil {
			logger.Warnf("skip %q: %v", sample.Title, err)
			continue
		}

		event := &domain.Event{
			Title:       sample.Title,
			Description: sample.Description,
			Date:        date.UTC(),
			Location:    sample.Location,
			Category:    category,
			CreatorID:   creator.ID,
		}
		if _, err := eventRepo.Create(ctx, event); err != nil {
			logger.Fatalf("insert %q: %v", sample.Title, err)
		}
		logger.Infof("seeded event %d: %s", event.ID, event.Title)
	}
}
