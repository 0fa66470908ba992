// Cardpulse - card market narrative intelligence engine.
//
// Polls community feeds and influential authors for card mentions, scores
// the mentions into signals, correlates them across sources into market
// narratives, and emits insights and predictions for the strong ones.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glitchymagic/cardpulse/internal/card"
	"github.com/glitchymagic/cardpulse/internal/config"
	"github.com/glitchymagic/cardpulse/internal/engine"
	"github.com/glitchymagic/cardpulse/internal/fetch"
	"github.com/glitchymagic/cardpulse/internal/logging"
	"github.com/glitchymagic/cardpulse/internal/store"
	"github.com/glitchymagic/cardpulse/internal/ui"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	withTUI := flag.Bool("tui", false, "run the live terminal dashboard")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Configuration errors are fatal: the engine must not run with an
		// undefined scoring function.
		fatal("Failed to load config: %v", err)
	}

	if err := logging.Init(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	logging.Info("cardpulse starting",
		"targets", len(cfg.Targets),
		"entities", len(cfg.Entities),
		"patterns", len(cfg.Patterns))

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		fatal("Failed to open store: %v", err)
	}
	defer st.Close()
	logging.Info("store initialized", "path", cfg.DBPath)

	client := fetch.NewClient(time.Duration(cfg.FetchTimeoutSeconds)*time.Second, cfg.RequestsPerMinute)
	fetchers := map[card.SourceKind]fetch.Fetcher{
		card.KindCommunity: fetch.NewRSSFetcher(client, nil),
		card.KindAuthor:    fetch.NewPageFetcher(client, nil),
	}

	eng, err := engine.New(cfg, engine.Options{
		Fetchers: fetchers,
		Store:    st,
		Seed:     time.Now().UnixNano(),
	})
	if err != nil {
		fatal("Failed to build engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*withTUI {
		if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
			fatal("Engine error: %v", err)
		}
		logging.Info("cardpulse exiting normally")
		return
	}

	// Dashboard mode: engine in the background, Bubble Tea in front.
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	p := tea.NewProgram(ui.NewDashboard(eng.Events), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logging.Error("dashboard error", "error", err)
	}
	stop()
	<-done

	logging.Info("cardpulse exiting normally")
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
