// Package extract turns raw post text into canonical entity mentions and
// narrative pattern hits.
//
// Matching is cheap regex - case-insensitive keyword and alias matching with
// word boundaries, no NLP. The matcher is pure: the same text always yields
// the same mentions and hits, which keeps the whole scoring path replayable.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/glitchymagic/cardpulse/internal/card"
	"github.com/glitchymagic/cardpulse/internal/config"
)

// Matcher extracts entity mentions and pattern hits from free text.
type Matcher struct {
	entities []entityDef
	patterns []patternDef
	minLen   int
}

type entityDef struct {
	id     string
	name   string
	weight float64
	res    []*regexp.Regexp
}

type patternDef struct {
	name     string
	strength float64
	res      []*regexp.Regexp
}

// NewMatcher compiles the configured vocabulary. Catalog order is preserved
// so output order is deterministic.
func NewMatcher(entities []config.Entity, patterns []config.Pattern, minTextLength int) (*Matcher, error) {
	m := &Matcher{minLen: minTextLength}

	for _, e := range entities {
		def := entityDef{id: e.ID, name: e.Name, weight: e.Weight}
		for _, alias := range e.Aliases {
			re, err := compileKeyword(alias)
			if err != nil {
				return nil, fmt.Errorf("entity %q alias %q: %w", e.ID, alias, err)
			}
			def.res = append(def.res, re)
		}
		m.entities = append(m.entities, def)
	}

	for _, p := range patterns {
		def := patternDef{name: p.Name, strength: p.Strength}
		for _, kw := range p.Keywords {
			re, err := compileKeyword(kw)
			if err != nil {
				return nil, fmt.Errorf("pattern %q keyword %q: %w", p.Name, kw, err)
			}
			def.res = append(def.res, re)
		}
		m.patterns = append(m.patterns, def)
	}

	return m, nil
}

// compileKeyword builds a case-insensitive whole-word regexp for a keyword
// or alias phrase.
func compileKeyword(kw string) (*regexp.Regexp, error) {
	kw = strings.TrimSpace(kw)
	if kw == "" {
		return nil, fmt.Errorf("empty keyword")
	}
	return regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
}

// Match extracts entity mentions (deduplicated per call) and pattern hits
// (with match counts) from text. Text below the minimum length yields
// nothing; so does text containing none of the configured vocabulary.
func (m *Matcher) Match(text string) ([]card.EntityMention, []card.PatternHit) {
	if len(strings.TrimSpace(text)) < m.minLen {
		return nil, nil
	}

	var mentions []card.EntityMention
	for _, e := range m.entities {
		for _, re := range e.res {
			if re.MatchString(text) {
				mentions = append(mentions, card.EntityMention{
					EntityID: e.id,
					Name:     e.name,
					Weight:   e.weight,
				})
				break // one mention per entity per observation
			}
		}
	}

	var hits []card.PatternHit
	for _, p := range m.patterns {
		count := 0
		for _, re := range p.res {
			count += len(re.FindAllStringIndex(text, -1))
		}
		if count > 0 {
			hits = append(hits, card.PatternHit{
				Pattern:  p.name,
				Strength: p.strength,
				Matches:  count,
			})
		}
	}

	return mentions, hits
}
