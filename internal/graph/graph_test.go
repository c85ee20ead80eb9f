package graph

import (
	"context"
	"testing"

	"github.com/mark-c-hall/swapi-characters/internal/config"
)

func TestNewDriver_RequiresDBConfig(t *testing.T) {
	_, err := NewDriver(context.Background(), config.Config{})
	if err == nil {
		t.Fatal("expected error without NEO4J_URI")
	}
}
