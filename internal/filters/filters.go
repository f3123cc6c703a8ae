package filters

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFilter reports a filter identifier outside the registry.
var ErrUnknownFilter = errors.New("unknown filter")

// Kind enumerates the supported visual filters.
type Kind string

const (
	KindNone      Kind = "none"
	KindCinematic Kind = "cinematic"
	KindBright    Kind = "bright"
	KindCyberpunk Kind = "cyberpunk"
	KindVintage   Kind = "vintage"
	KindWarm      Kind = "warm"
	KindCool      Kind = "cool"
)

// Recipe is the ffmpeg video filter graph for a filter kind. A none recipe has
// an empty graph and must not be sent to the engine.
type Recipe struct {
	Kind  Kind
	Graph string
}

// IsNoop reports whether applying the recipe would leave the video unchanged.
func (r Recipe) IsNoop() bool {
	return r.Kind == KindNone || strings.TrimSpace(r.Graph) == ""
}

var kinds = []Kind{
	KindNone,
	KindCinematic,
	KindBright,
	KindCyberpunk,
	KindVintage,
	KindWarm,
	KindCool,
}

var graphs = map[Kind]string{
	KindNone:      "",
	KindCinematic: "eq=contrast=1.2:brightness=0.05:saturation=0.8,vignette=PI/4",
	KindBright:    "eq=brightness=0.15:contrast=1.1:saturation=1.2",
	KindCyberpunk: "eq=contrast=1.3:saturation=1.5,colorchannelmixer=rr=1:rb=0.3:br=0.2:bb=1:bg=0.2",
	KindVintage:   "curves=vintage,colorbalance=rs=0.1:gs=-0.05:bs=-0.1",
	KindWarm:      "colortemperature=temperature=7000,eq=saturation=1.1",
	KindCool:      "colortemperature=temperature=3000,eq=saturation=1.1",
}

// All returns the registered kinds in display order.
func All() []Kind {
	cp := make([]Kind, len(kinds))
	copy(cp, kinds)
	return cp
}

// Parse normalizes a filter identifier. Matching is case-insensitive and an
// empty identifier means none.
func Parse(id string) (Kind, error) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(id)))
	if normalized == "" {
		return KindNone, nil
	}
	if _, ok := graphs[normalized]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFilter, id)
	}
	return normalized, nil
}

// Lookup resolves a filter identifier to its recipe.
func Lookup(id string) (Recipe, error) {
	kind, err := Parse(id)
	if err != nil {
		return Recipe{}, err
	}
	return Recipe{Kind: kind, Graph: graphs[kind]}, nil
}
