package extract

import (
	"reflect"
	"testing"

	"github.com/glitchymagic/cardpulse/internal/config"
)

func testMatcher(t *testing.T) *Matcher {
	t.Helper()
	cfg := config.Default()
	m, err := NewMatcher(cfg.Entities, cfg.Patterns, cfg.MinTextLength)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return m
}

func TestMatchEntityAliases(t *testing.T) {
	m := testMatcher(t)

	// Different spellings of the same card normalize to one canonical id.
	for _, text := range []string{
		"Just pulled a moonbreon from my evolving skies box, what a day",
		"The umbreon vmax alt is the chase card of the whole era",
		"UMBREON VMAX ALTERNATE ART prices keep climbing this month",
	} {
		mentions, _ := m.Match(text)
		if len(mentions) != 1 {
			t.Fatalf("text %q: expected 1 mention, got %d", text, len(mentions))
		}
		if mentions[0].EntityID != "umbreon-vmax-alt" {
			t.Errorf("text %q: expected umbreon-vmax-alt, got %s", text, mentions[0].EntityID)
		}
		if mentions[0].Weight != 1.0 {
			t.Errorf("expected weight 1.0, got %f", mentions[0].Weight)
		}
	}
}

func TestMatchDeduplicatesEntities(t *testing.T) {
	m := testMatcher(t)

	// Two aliases of the same entity in one post still yield one mention.
	mentions, _ := m.Match("moonbreon aka the umbreon vmax alt is sleeping on everyone's radar")
	if len(mentions) != 1 {
		t.Errorf("expected 1 deduplicated mention, got %d", len(mentions))
	}
}

func TestMatchPatternCounts(t *testing.T) {
	m := testMatcher(t)

	_, hits := m.Match("This card is undervalued, seriously undervalued and trading below market")
	if len(hits) != 1 {
		t.Fatalf("expected 1 pattern hit, got %d", len(hits))
	}
	if hits[0].Pattern != "undervalued" {
		t.Errorf("expected undervalued, got %s", hits[0].Pattern)
	}
	// "undervalued" twice plus "below market" once.
	if hits[0].Matches != 3 {
		t.Errorf("expected 3 matches, got %d", hits[0].Matches)
	}
	if hits[0].Strength != 1.5 {
		t.Errorf("expected strength 1.5, got %f", hits[0].Strength)
	}
}

func TestMatchMinimumLength(t *testing.T) {
	m := testMatcher(t)

	mentions, hits := m.Match("moonbreon")
	if mentions != nil || hits != nil {
		t.Errorf("short text should yield nothing, got %v / %v", mentions, hits)
	}
}

func TestMatchNoVocabulary(t *testing.T) {
	m := testMatcher(t)

	mentions, hits := m.Match("Completely unrelated post about cooking pasta for dinner tonight")
	if len(mentions) != 0 {
		t.Errorf("expected no mentions, got %v", mentions)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
}

func TestMatchDeterminism(t *testing.T) {
	m := testMatcher(t)
	text := "moonbreon sold out everywhere, psa 10 copies pumping to all time high"

	m1, h1 := m.Match(text)
	m2, h2 := m.Match(text)

	if !reflect.DeepEqual(m1, m2) {
		t.Errorf("mentions differ between identical calls: %v vs %v", m1, m2)
	}
	if !reflect.DeepEqual(h1, h2) {
		t.Errorf("hits differ between identical calls: %v vs %v", h1, h2)
	}
}

func TestMatchMultiplePatterns(t *testing.T) {
	m := testMatcher(t)

	_, hits := m.Match("moonbreon is sold out at every store and prices are skyrocketing")
	names := make(map[string]bool)
	for _, h := range hits {
		names[h.Pattern] = true
	}
	if !names["supply-shock"] || !names["hype-surge"] {
		t.Errorf("expected supply-shock and hype-surge, got %v", names)
	}
}
