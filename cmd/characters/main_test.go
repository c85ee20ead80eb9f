package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newFakeSWAPI(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var characterCalls atomic.Int32
	people := map[string]string{"1": "Luke Skywalker", "5": "Leia Organa", "14": "Han Solo"}

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	mux.HandleFunc("GET /api/films/{id}/", func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"detail": "Not found"}`)
			return
		}
		switch r.PathValue("id") {
		case "7":
			fmt.Fprint(w, `{"title": "Empty", "characters": []}`)
			return
		case "2":
			// Leia's resource lives on a server that is no longer listening.
			fmt.Fprintf(w, `{"title": "The Empire Strikes Back", "characters": [
				"%[1]s/api/people/1/", "%[2]s/api/people/5/", "%[1]s/api/people/14/"
			]}`, server.URL, dead.URL)
			return
		}
		fmt.Fprintf(w, `{"title": "A New Hope", "characters": [
			"%[1]s/api/people/1/", "%[1]s/api/people/5/", "%[1]s/api/people/14/"
		]}`, server.URL)
	})
	mux.HandleFunc("GET /api/people/{id}/", func(w http.ResponseWriter, r *http.Request) {
		characterCalls.Add(1)
		// Luke answers last.
		if r.PathValue("id") == "1" {
			time.Sleep(20 * time.Millisecond)
		}
		fmt.Fprintf(w, `{"name": %q}`, people[r.PathValue("id")])
	})

	return server, &characterCalls
}

func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("SWAPI_BASE_URL", baseURL)
	t.Setenv("OTEL_TRACES_EXPORTER", "none")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "text")
}

func TestRun_PrintsNamesInFilmOrder(t *testing.T) {
	server, _ := newFakeSWAPI(t, http.StatusOK)
	setEnv(t, server.URL)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"1"}, &stdout, &stderr)

	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	want := "Luke Skywalker\nLeia Organa\nHan Solo\n"
	if stdout.String() != want {
		t.Errorf("expected %q, got %q", want, stdout.String())
	}
}

func TestRun_EmptyFilm(t *testing.T) {
	server, calls := newFakeSWAPI(t, http.StatusOK)
	setEnv(t, server.URL)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"7"}, &stdout, &stderr)

	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no output, got %q", stdout.String())
	}
	if calls.Load() != 0 {
		t.Errorf("expected no character fetches, got %d", calls.Load())
	}
}

func TestRun_FilmFailure(t *testing.T) {
	server, calls := newFakeSWAPI(t, http.StatusNotFound)
	setEnv(t, server.URL)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"99"}, &stdout, &stderr)

	if code != exitError {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected nothing on stdout, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "error fetching characters") {
		t.Errorf("expected error on stderr, got %q", stderr.String())
	}
	if calls.Load() != 0 {
		t.Errorf("expected no character fetches, got %d", calls.Load())
	}
}

func TestRun_CharacterFailure(t *testing.T) {
	server, calls := newFakeSWAPI(t, http.StatusOK)
	setEnv(t, server.URL)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"2"}, &stdout, &stderr)

	if code != exitError {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no names on stdout, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "error fetching characters") {
		t.Errorf("expected error on stderr, got %q", stderr.String())
	}
	if calls.Load() != 2 {
		t.Errorf("expected the two reachable characters to be fetched, got %d", calls.Load())
	}
}

func TestRun_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	setEnv(t, server.URL)

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"1"}, &stdout, &stderr); code != exitError {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if stderr.Len() == 0 {
		t.Error("expected an error message on stderr")
	}
}

func TestRun_Usage(t *testing.T) {
	cases := map[string][]string{
		"no args":    nil,
		"two args":   {"1", "2"},
		"invalid id": {"1/2"},
		"blank id":   {" "},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			setEnv(t, "http://127.0.0.1:0")

			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), args, &stdout, &stderr); code != exitUsage {
				t.Errorf("expected exit 2, got %d", code)
			}
			if stdout.Len() != 0 {
				t.Errorf("expected nothing on stdout, got %q", stdout.String())
			}
		})
	}
}
