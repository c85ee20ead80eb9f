//go:build integration

package graph

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"

	"github.com/mark-c-hall/swapi-characters/internal/config"
	"github.com/mark-c-hall/swapi-characters/internal/models"
)

var testDriver *Driver

func setupContainer(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	container, err := tcneo4j.Run(ctx, "neo4j:5", tcneo4j.WithoutAuthentication())
	if err != nil {
		t.Fatalf("failed to start neo4j container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(context.Background()) })

	boltURL, err := container.BoltUrl(ctx)
	if err != nil {
		t.Fatalf("failed to get bolt url: %v", err)
	}

	cfg := config.Config{
		DB: config.DBConfig{
			URI:  boltURL,
			User: "neo4j",
			Pass: "",
		},
	}

	// Neo4j may need a moment to be ready for auth-free connections
	var d *Driver
	for range 10 {
		d, err = NewDriver(ctx, cfg)
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
	t.Cleanup(func() { d.Close(context.Background()) })

	if err = d.SetupSchema(ctx); err != nil {
		t.Fatalf("failed to setup schema: %v", err)
	}

	testDriver = d
}

func clearGraph(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	session := testDriver.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	if _, err := session.Run(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
		t.Fatalf("failed to clear graph: %v", err)
	}
}

func names(characters []models.Character) []string {
	out := make([]string, len(characters))
	for i, c := range characters {
		out[i] = c.Name
	}
	return out
}

func TestSetupSchema_Idempotent(t *testing.T) {
	setupContainer(t)
	ctx := context.Background()

	// Running schema setup a second time should not error
	if err := testDriver.SetupSchema(ctx); err != nil {
		t.Fatalf("second SetupSchema call failed: %v", err)
	}
}

func TestIngestFilmCast_UpdatesCharacterName(t *testing.T) {
	setupContainer(t)
	clearGraph(t)
	ctx := context.Background()

	film := models.Film{ID: "1", Title: "A New Hope", EpisodeID: 4}
	character := models.Character{URL: "https://swapi.dev/api/people/1/", Name: "Luke"}
	if err := testDriver.IngestFilmCast(ctx, film, []models.Character{character}); err != nil {
		t.Fatalf("IngestFilmCast failed: %v", err)
	}

	character.Name = "Luke Skywalker"
	if err := testDriver.IngestFilmCast(ctx, film, []models.Character{character}); err != nil {
		t.Fatalf("IngestFilmCast update failed: %v", err)
	}

	session := testDriver.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, "MATCH (c:Character {url: $url}) RETURN c.name AS name, count(c) AS n",
		map[string]any{"url": character.URL})
	if err != nil {
		t.Fatalf("verification query failed: %v", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		t.Fatalf("expected exactly one record: %v", err)
	}
	name, _ := record.Get("name")
	count, _ := record.Get("n")
	if name.(string) != "Luke Skywalker" {
		t.Errorf("expected updated name, got %s", name)
	}
	if count.(int64) != 1 {
		t.Errorf("expected 1 character node, got %d", count)
	}
}

func TestFilmCharacters_Ordered(t *testing.T) {
	setupContainer(t)
	clearGraph(t)
	ctx := context.Background()

	film := models.Film{ID: "1", Title: "A New Hope", EpisodeID: 4}
	cast := []models.Character{
		{URL: "https://swapi.dev/api/people/14/", Name: "Han Solo"},
		{URL: "https://swapi.dev/api/people/1/", Name: "Luke Skywalker"},
		{URL: "https://swapi.dev/api/people/5/", Name: "Leia Organa"},
	}
	if err := testDriver.IngestFilmCast(ctx, film, cast); err != nil {
		t.Fatalf("IngestFilmCast failed: %v", err)
	}

	got, err := testDriver.FilmCharacters(ctx, film.ID)
	if err != nil {
		t.Fatalf("FilmCharacters failed: %v", err)
	}
	if !slices.Equal(got, cast) {
		t.Errorf("expected %v, got %v", names(cast), names(got))
	}
}

func TestIngestFilmCast_ReplacesPreviousCast(t *testing.T) {
	setupContainer(t)
	clearGraph(t)
	ctx := context.Background()

	film := models.Film{ID: "2", Title: "The Empire Strikes Back", EpisodeID: 5}
	first := []models.Character{
		{URL: "https://swapi.dev/api/people/1/", Name: "Luke Skywalker"},
		{URL: "https://swapi.dev/api/people/2/", Name: "C-3PO"},
	}
	if err := testDriver.IngestFilmCast(ctx, film, first); err != nil {
		t.Fatalf("IngestFilmCast failed: %v", err)
	}

	second := []models.Character{
		{URL: "https://swapi.dev/api/people/2/", Name: "C-3PO"},
		{URL: "https://swapi.dev/api/people/13/", Name: "Chewbacca"},
	}
	if err := testDriver.IngestFilmCast(ctx, film, second); err != nil {
		t.Fatalf("second IngestFilmCast failed: %v", err)
	}

	got, err := testDriver.FilmCharacters(ctx, film.ID)
	if err != nil {
		t.Fatalf("FilmCharacters failed: %v", err)
	}
	if !slices.Equal(names(got), []string{"C-3PO", "Chewbacca"}) {
		t.Errorf("expected second cast only, got %v", names(got))
	}
}

func TestFilmCharacters_UnknownFilm(t *testing.T) {
	setupContainer(t)
	clearGraph(t)

	got, err := testDriver.FilmCharacters(context.Background(), "404")
	if err != nil {
		t.Fatalf("FilmCharacters failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no characters, got %+v", got)
	}
}

func TestGetStats(t *testing.T) {
	setupContainer(t)
	clearGraph(t)
	ctx := context.Background()

	// Empty graph
	stats, err := testDriver.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats on empty graph failed: %v", err)
	}
	if stats.FilmCount != 0 || stats.CharacterCount != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	luke := models.Character{URL: "https://swapi.dev/api/people/1/", Name: "Luke Skywalker"}
	vader := models.Character{URL: "https://swapi.dev/api/people/4/", Name: "Darth Vader"}
	yoda := models.Character{URL: "https://swapi.dev/api/people/20/", Name: "Yoda"}
	testDriver.IngestFilmCast(ctx, models.Film{ID: "1", Title: "A New Hope"}, []models.Character{luke, vader})
	testDriver.IngestFilmCast(ctx, models.Film{ID: "2", Title: "The Empire Strikes Back"}, []models.Character{luke, vader, yoda})
	testDriver.IngestFilmCast(ctx, models.Film{ID: "3", Title: "Return of the Jedi"}, []models.Character{luke, yoda})

	stats, err = testDriver.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.FilmCount != 3 {
		t.Errorf("expected 3 films, got %d", stats.FilmCount)
	}
	if stats.CharacterCount != 3 {
		t.Errorf("expected 3 characters, got %d", stats.CharacterCount)
	}
	if stats.AppearanceCount != 7 {
		t.Errorf("expected 7 appearances, got %d", stats.AppearanceCount)
	}
	if stats.MostAppearingCharacter != "Luke Skywalker" || stats.MostAppearingCount != 3 {
		t.Errorf("expected Luke Skywalker in 3 films, got %s in %d", stats.MostAppearingCharacter, stats.MostAppearingCount)
	}
}

func TestVerifyConnectivity(t *testing.T) {
	setupContainer(t)
	ctx := context.Background()

	if err := testDriver.VerifyConnectivity(ctx); err != nil {
		t.Fatalf("VerifyConnectivity failed: %v", err)
	}
}
