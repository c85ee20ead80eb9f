package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"

	"github.com/mark-c-hall/swapi-characters/internal/config"
	"github.com/mark-c-hall/swapi-characters/internal/models"
)

type Driver struct {
	driver neo4j.Driver
}

type Stats struct {
	FilmCount              int
	CharacterCount         int
	AppearanceCount        int
	MostAppearingCharacter string
	MostAppearingCount     int
}

func NewDriver(ctx context.Context, cfg config.Config) (*Driver, error) {
	if err := cfg.DB.Validate(); err != nil {
		return nil, err
	}

	driver, err := neo4j.NewDriver(
		cfg.DB.URI,
		neo4j.BasicAuth(cfg.DB.User, cfg.DB.Pass, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating neo4j driver: %w", err)
	}

	if err = driver.VerifyAuthentication(ctx, nil); err != nil {
		return nil, fmt.Errorf("error authenticating into neo4j: %w", err)
	}

	return &Driver{driver: driver}, nil
}

func (d *Driver) SetupSchema(ctx context.Context) error {
	queries := []string{
		"CREATE CONSTRAINT film_swapi_id IF NOT EXISTS FOR (f:Film) REQUIRE f.swapi_id IS UNIQUE",
		"CREATE CONSTRAINT character_url IF NOT EXISTS FOR (c:Character) REQUIRE c.url IS UNIQUE",
	}

	session := d.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, query := range queries {
		if _, err := session.Run(ctx, query, nil); err != nil {
			return fmt.Errorf("error running schema query: %w", err)
		}
	}

	return nil
}

func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

func (d *Driver) VerifyConnectivity(ctx context.Context) error {
	return d.driver.VerifyConnectivity(ctx)
}

// IngestFilmCast writes a film and its ordered characters in one transaction.
// Appearances left over from an earlier ingest of the same film are replaced.
func (d *Driver) IngestFilmCast(ctx context.Context, film models.Film, characters []models.Character) error {
	rows := make([]any, len(characters))
	for i, character := range characters {
		rows[i] = map[string]any{"url": character.URL, "name": character.Name, "position": i}
	}

	session := d.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx,
			"MERGE (f:Film {swapi_id: $id}) SET f.title = $title, f.episode_id = $episode",
			map[string]any{"id": film.ID, "title": film.Title, "episode": film.EpisodeID},
		); err != nil {
			return nil, err
		}

		if _, err := tx.Run(ctx,
			"MATCH (:Character)-[r:APPEARS_IN]->(:Film {swapi_id: $id}) DELETE r",
			map[string]any{"id": film.ID},
		); err != nil {
			return nil, err
		}

		_, err := tx.Run(ctx, `
			MATCH (f:Film {swapi_id: $id})
			UNWIND $rows AS row
			MERGE (c:Character {url: row.url})
			SET c.name = row.name
			MERGE (c)-[r:APPEARS_IN]->(f)
			SET r.position = row.position`,
			map[string]any{"id": film.ID, "rows": rows},
		)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("error ingesting film cast: %w", err)
	}

	return nil
}

// FilmCharacters returns the stored cast of a film in its original order.
func (d *Driver) FilmCharacters(ctx context.Context, filmID string) ([]models.Character, error) {
	cypher := `
		MATCH (c:Character)-[r:APPEARS_IN]->(f:Film {swapi_id: $id})
		RETURN c.url AS url, c.name AS name
		ORDER BY r.position`
	params := map[string]any{"id": filmID}

	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("error reading film characters: %w", err)
	}

	var characters []models.Character
	for result.Next(ctx) {
		record := result.Record()
		url, _ := record.Get("url")
		name, _ := record.Get("name")
		characters = append(characters, models.Character{
			URL:  url.(string),
			Name: name.(string),
		})
	}
	if err = result.Err(); err != nil {
		return nil, fmt.Errorf("error iterating character results: %w", err)
	}

	return characters, nil
}

func (d *Driver) GetStats(ctx context.Context) (*Stats, error) {
	cypher := `
		OPTIONAL MATCH (f:Film)
		WITH count(f) AS filmCount
		OPTIONAL MATCH (c:Character)
		WITH filmCount, count(c) AS characterCount
		OPTIONAL MATCH ()-[r:APPEARS_IN]->()
		WITH filmCount, characterCount, count(r) AS appearanceCount
		OPTIONAL MATCH (c:Character)-[r:APPEARS_IN]->()
		WITH filmCount, characterCount, appearanceCount, c, count(r) AS films
		ORDER BY films DESC, c.name
		LIMIT 1
		RETURN filmCount, characterCount, appearanceCount, c.name AS topCharacter, films AS topCount`

	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, nil)
	if err != nil {
		return nil, fmt.Errorf("error getting stats: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return &Stats{}, nil // empty graph
	}

	filmCount, _ := record.Get("filmCount")
	characterCount, _ := record.Get("characterCount")
	appearanceCount, _ := record.Get("appearanceCount")
	topCharacter, _ := record.Get("topCharacter")
	topCount, _ := record.Get("topCount")

	stats := &Stats{
		FilmCount:       int(filmCount.(int64)),
		CharacterCount:  int(characterCount.(int64)),
		AppearanceCount: int(appearanceCount.(int64)),
	}
	if topCharacter != nil {
		stats.MostAppearingCharacter = topCharacter.(string)
		stats.MostAppearingCount = int(topCount.(int64))
	}

	return stats, nil
}
