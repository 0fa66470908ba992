package config

import (
	"os"
	"path/filepath"
)

// Default returns the built-in configuration: the curated target list, the
// card vocabulary, the pattern catalog, and the archetype catalog with the
// tuning constants the engine shipped with.
func Default() *Config {
	return &Config{
		DBPath:   defaultDBPath(),
		LogLevel: "info",

		AnalysisIntervalMinutes: 15,
		SamplesPerCycle:         3,
		TierIntervalsMinutes:    []int{15, 45, 120}, // tier 0, 1, 2
		JitterMinSeconds:        20,
		JitterMaxSeconds:        90,
		FetchTimeoutSeconds:     30,
		RequestsPerMinute:       10,

		DecayWindowHours: 72,
		MinTextLength:    20,
		Engagement: EngagementWeights{
			Approval:   1.0,
			Share:      2.5, // amplification spreads a narrative; weigh it well above approval
			Reply:      1.5,
			HourlyNorm: 50,
			Ceiling:    2.0,
		},
		Strength: StrengthWeights{
			PatternDamping: 0.3,
			EngagementCap:  1.0,
		},
		Correlation: CorrelationWeights{
			Single: map[string]float64{
				"community": 0.70,
				"author":    0.80, // individual authors have been the better leading indicator
			},
			Both:              0.95,
			TimingBonus:       0.25,
			TimingWindowHours: 24,
		},
		Actionability: ActionabilityWeights{
			MultiPlatformBonus: 1.20,
			MomentumBonus:      1.10,
			MomentumThreshold:  0.5,
			AuthorBonus:        1.15,
			AuthorThreshold:    3,
		},

		Targets: []Target{
			{Kind: "community", Handle: "r/PokemonTCG", Name: "Pokemon TCG", URL: "https://www.reddit.com/r/PokemonTCG/.rss", Weight: 0.9, Tier: 0},
			{Kind: "community", Handle: "r/pkmntcgtrades", Name: "TCG Trades", URL: "https://www.reddit.com/r/pkmntcgtrades/.rss", Weight: 0.7, Tier: 1},
			{Kind: "community", Handle: "r/PokeInvesting", Name: "Poke Investing", URL: "https://www.reddit.com/r/PokeInvesting/.rss", Weight: 0.85, Tier: 0},
			{Kind: "community", Handle: "pokebeach", Name: "PokeBeach", URL: "https://www.pokebeach.com/feed", Weight: 0.6, Tier: 2},
			{Kind: "author", Handle: "@poketrendz", Name: "Poke Trendz", URL: "https://nitter.net/poketrendz", Weight: 1.0, Tier: 0},
			{Kind: "author", Handle: "@slabwatch", Name: "Slab Watch", URL: "https://nitter.net/slabwatch", Weight: 0.8, Tier: 1},
		},

		Entities: []Entity{
			{ID: "umbreon-vmax-alt", Name: "Umbreon VMAX Alt Art", Weight: 1.0,
				Aliases: []string{"moonbreon", "umbreon vmax alt", "umbreon vmax alternate art", "evolving skies umbreon", "umbreon 215"}},
			{ID: "charizard-base", Name: "Base Set Charizard", Weight: 0.95,
				Aliases: []string{"base set charizard", "charizard 4/102", "base zard", "base set zard"}},
			{ID: "pikachu-illustrator", Name: "Pikachu Illustrator", Weight: 0.9,
				Aliases: []string{"pikachu illustrator", "illustrator promo"}},
			{ID: "umbreon-gold-star", Name: "Umbreon Gold Star", Weight: 0.85,
				Aliases: []string{"umbreon gold star", "gold star umbreon", "pop 5 umbreon"}},
			{ID: "rayquaza-vmax-alt", Name: "Rayquaza VMAX Alt Art", Weight: 0.8,
				Aliases: []string{"rayquaza vmax alt", "evolving skies rayquaza", "rayquaza 218"}},
			{ID: "lugia-neo-genesis", Name: "Neo Genesis Lugia", Weight: 0.8,
				Aliases: []string{"neo genesis lugia", "lugia 9/111"}},
			{ID: "giratina-v-alt", Name: "Giratina V Alt Art", Weight: 0.75,
				Aliases: []string{"giratina v alt", "lost origin giratina", "giratina 186"}},
			{ID: "gengar-vmax-alt", Name: "Gengar VMAX Alt Art", Weight: 0.7,
				Aliases: []string{"gengar vmax alt", "fusion strike gengar", "gengar 271"}},
		},

		Patterns: []Pattern{
			{Name: "undervalued", Strength: 1.5,
				Keywords: []string{"undervalued", "underpriced", "sleeping on", "below market", "steal at", "quietly buying", "accumulating"}},
			{Name: "supply-shock", Strength: 1.6,
				Keywords: []string{"sold out", "selling out", "shortage", "allocation", "out of stock", "can't find", "vaulted", "print run"}},
			{Name: "hype-surge", Strength: 1.4,
				Keywords: []string{"mooning", "pumping", "skyrocketing", "blowing up", "all time high", "ath", "parabolic"}},
			{Name: "sell-off", Strength: 1.35,
				Keywords: []string{"dumping", "crashing", "tanking", "panic sell", "falling knife", "bag holder"}},
			{Name: "grading-focus", Strength: 1.3,
				Keywords: []string{"psa 10", "bgs 9.5", "cgc 10", "gem mint", "grading", "pop report", "slab", "sub grades"}},
			{Name: "reprint-risk", Strength: 1.25,
				Keywords: []string{"reprint", "special set", "rerelease", "celebrations style"}},
			{Name: "tournament-play", Strength: 1.2,
				Keywords: []string{"meta", "tournament", "regionals", "worlds", "playable", "deck tech", "top 8"}},
		},

		Archetypes: []Archetype{
			{Name: "quiet-accumulation", Action: "bullish", Confidence: 0.80,
				Patterns: []string{"undervalued"}},
			{Name: "supply-squeeze", Action: "urgent", Confidence: 0.85,
				Patterns: []string{"supply-shock"}},
			{Name: "hype-wave", Action: "volatile", Confidence: 0.70,
				Patterns: []string{"hype-surge"}},
			{Name: "grading-premium", Action: "premium", Confidence: 0.75,
				Patterns: []string{"grading-focus"}},
			{Name: "competitive-shift", Action: "gameplay", Confidence: 0.70,
				Patterns: []string{"tournament-play"}},
			{Name: "market-cooling", Action: "caution", Confidence: 0.75,
				Patterns: []string{"sell-off", "reprint-risk"}},
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cardpulse.db"
	}
	return filepath.Join(home, ".cardpulse", "cardpulse.db")
}
