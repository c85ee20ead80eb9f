// Package roster resolves the cast of a film: it fetches the film, follows
// every character URL concurrently and returns the names in film order.
package roster

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mark-c-hall/swapi-characters/internal/fanout"
	"github.com/mark-c-hall/swapi-characters/internal/models"
)

const instrumentationName = "github.com/mark-c-hall/swapi-characters/internal/roster"

// Fetcher is the subset of the API client the pipeline needs.
type Fetcher interface {
	GetFilm(ctx context.Context, filmID string) (*models.Film, error)
	GetCharacterName(ctx context.Context, characterURL string) (string, error)
}

type Cast struct {
	Film       models.Film
	Characters []models.Character
}

// Names returns the character names in film order.
func (c *Cast) Names() []string {
	names := make([]string, len(c.Characters))
	for i, character := range c.Characters {
		names[i] = character.Name
	}
	return names
}

type Service struct {
	api    Fetcher
	logger *slog.Logger
	tracer trace.Tracer
}

func NewService(api Fetcher, logger *slog.Logger) *Service {
	return &Service{
		api:    api,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}
}

// Cast fetches the film first and only then fans out to its characters. Any
// failing character fetch fails the whole cast.
func (s *Service) Cast(ctx context.Context, filmID string) (*Cast, error) {
	ctx, span := s.tracer.Start(ctx, "roster.Cast", trace.WithAttributes(attribute.String("film.id", filmID)))
	defer span.End()

	film, err := s.api.GetFilm(ctx, filmID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "film fetch failed")
		return nil, fmt.Errorf("error fetching film: %w", err)
	}
	span.SetAttributes(attribute.Int("film.characters", len(film.Characters)))
	s.logger.DebugContext(ctx, "film fetched",
		"film_id", filmID,
		"title", film.Title,
		"characters", len(film.Characters),
	)

	names, err := fanout.All(ctx, film.Characters, s.api.GetCharacterName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "character fetch failed")
		return nil, fmt.Errorf("error fetching characters: %w", err)
	}

	characters := make([]models.Character, len(names))
	for i, name := range names {
		characters[i] = models.Character{URL: film.Characters[i], Name: name}
	}

	return &Cast{Film: *film, Characters: characters}, nil
}

func (s *Service) CharacterNames(ctx context.Context, filmID string) ([]string, error) {
	cast, err := s.Cast(ctx, filmID)
	if err != nil {
		return nil, err
	}
	return cast.Names(), nil
}

// Print writes one name per line.
func Print(w io.Writer, names []string) error {
	bw := bufio.NewWriter(w)
	for _, name := range names {
		if _, err := fmt.Fprintln(bw, name); err != nil {
			return fmt.Errorf("error writing name: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("error flushing output: %w", err)
	}
	return nil
}
