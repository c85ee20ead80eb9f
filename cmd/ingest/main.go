package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"

	"github.com/mark-c-hall/swapi-characters/internal/config"
	"github.com/mark-c-hall/swapi-characters/internal/graph"
	"github.com/mark-c-hall/swapi-characters/internal/logging"
	"github.com/mark-c-hall/swapi-characters/internal/models"
	"github.com/mark-c-hall/swapi-characters/internal/roster"
	"github.com/mark-c-hall/swapi-characters/internal/swapi"
	"github.com/mark-c-hall/swapi-characters/internal/telemetry"
)

var fromFlag = flag.Int("from", 1, "first film id to ingest")
var toFlag = flag.Int("to", 6, "last film id to ingest (inclusive)")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("Error loading config:", err)
	}
	logger := logging.New(cfg.Log, os.Stderr)

	if *fromFlag < 1 || *toFlag < *fromFlag {
		log.Fatalf("Invalid film range %d..%d", *fromFlag, *toFlag)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, telemetry.Options{})
	if err != nil {
		log.Fatalln("Error setting up telemetry:", err)
	}
	defer shutdown(context.Background())

	svc := roster.NewService(swapi.NewClient(*cfg), logger)

	db, err := graph.NewDriver(ctx, *cfg)
	if err != nil {
		log.Fatalln("Error connecting to neo4j:", err)
	}
	defer db.Close(context.Background())

	if err := db.SetupSchema(ctx); err != nil {
		log.Fatalln("Error setting up schema:", err)
	}

	ingested := 0
	for id := *fromFlag; id <= *toFlag; id++ {
		if ctx.Err() != nil {
			logger.Info("interrupted, stopping ingest")
			break
		}

		filmID := strconv.Itoa(id)
		cast, err := svc.Cast(ctx, filmID)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn("error fetching cast, skipping", "film_id", filmID, "error", err)
			continue
		}

		logger.Info("ingesting film",
			"film_id", filmID,
			"title", cast.Film.Title,
			"characters", len(cast.Characters),
		)

		if err := db.IngestFilmCast(ctx, cast.Film, cast.Characters); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("error ingesting cast", "film_id", filmID, "error", err)
			continue
		}
		ingested++

		stored, err := db.FilmCharacters(ctx, filmID)
		if err != nil {
			logger.Warn("could not read back stored cast", "film_id", filmID, "error", err)
			continue
		}
		if !sameCast(stored, cast.Characters) {
			logger.Warn("stored cast differs from fetched cast",
				"film_id", filmID,
				"stored", len(stored),
				"fetched", len(cast.Characters),
			)
		}
	}

	stats, err := db.GetStats(context.Background())
	if err != nil {
		logger.Warn("could not read graph stats", "error", err)
	} else {
		logger.Info("ingest complete",
			"films_ingested", ingested,
			"films", stats.FilmCount,
			"characters", stats.CharacterCount,
			"appearances", stats.AppearanceCount,
			"most_appearing", stats.MostAppearingCharacter,
		)
	}
}

// sameCast reports whether the graph holds the fetched characters in the
// film's order. A film without characters reads back as nil.
func sameCast(stored, fetched []models.Character) bool {
	return slices.Equal(stored, fetched)
}
