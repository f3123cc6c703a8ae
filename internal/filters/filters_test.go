package filters_test

import (
	"errors"
	"strings"
	"testing"

	"clipforge/internal/filters"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	recipe, err := filters.Lookup("  CineMatic ")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if recipe.Kind != filters.KindCinematic {
		t.Fatalf("unexpected kind %q", recipe.Kind)
	}
	if recipe.IsNoop() {
		t.Fatal("expected cinematic recipe to be applied")
	}
	if !strings.Contains(recipe.Graph, "vignette") {
		t.Fatalf("unexpected cinematic graph %q", recipe.Graph)
	}
}

func TestLookupNoneIsNoop(t *testing.T) {
	for _, id := range []string{"none", "NONE", ""} {
		recipe, err := filters.Lookup(id)
		if err != nil {
			t.Fatalf("Lookup(%q) returned error: %v", id, err)
		}
		if !recipe.IsNoop() {
			t.Fatalf("expected %q to resolve to a no-op recipe", id)
		}
	}
}

func TestLookupRejectsUnknown(t *testing.T) {
	_, err := filters.Lookup("sepia")
	if !errors.Is(err, filters.ErrUnknownFilter) {
		t.Fatalf("expected ErrUnknownFilter, got %v", err)
	}
	if !strings.Contains(err.Error(), "sepia") {
		t.Fatalf("expected identifier in error, got %q", err.Error())
	}
}

func TestEveryKindHasRecipe(t *testing.T) {
	for _, kind := range filters.All() {
		recipe, err := filters.Lookup(string(kind))
		if err != nil {
			t.Fatalf("Lookup(%q) returned error: %v", kind, err)
		}
		if kind == filters.KindNone {
			continue
		}
		if recipe.IsNoop() {
			t.Fatalf("expected %q to carry a filter graph", kind)
		}
	}
}
