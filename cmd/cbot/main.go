package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/Dimah98/CBot/internal/bot"
	"github.com/Dimah98/CBot/internal/browser"
	"github.com/Dimah98/CBot/internal/config"
	"github.com/Dimah98/CBot/internal/farm"
	"github.com/Dimah98/CBot/internal/history"
)

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "path to config.yaml")
		farmID      = flag.String("farm", "", "farm id (overrides config)")
		apiKey      = flag.String("api-key", "", "x-api-key value (overrides config)")
		profileDir  = flag.String("profile", "", "browser profile directory (overrides config)")
		storeFlag   = flag.String("store", "", "store coordinate as x,y (overrides config)")
		gameURL     = flag.String("game-url", "", "game url (overrides config)")
		historyPath = flag.String("history", "", "run history sqlite path (overrides config)")
		showHistory = flag.Int("show-history", 0, "print the last N runs and exit")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[cbot] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load config: %v", err)
		}
		// No config file is fine when flags carry everything.
		cfg = config.Defaults()
	}

	if *farmID != "" {
		cfg.Farm.ID = *farmID
	}
	if *apiKey != "" {
		cfg.Farm.APIKey = *apiKey
	}
	if *profileDir != "" {
		cfg.Browser.ProfileDir = *profileDir
	}
	if *gameURL != "" {
		cfg.Browser.GameURL = *gameURL
	}
	if *historyPath != "" {
		cfg.History.Path = *historyPath
	}
	if *storeFlag != "" {
		x, y, err := parseStore(*storeFlag)
		if err != nil {
			logger.Fatalf("bad -store: %v", err)
		}
		cfg.Store.X, cfg.Store.Y = x, y
	}

	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			logger.Fatalf("open history: %v", err)
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *showHistory > 0 {
		if store == nil {
			logger.Fatalf("-show-history needs a history path")
		}
		printHistory(ctx, logger, store, *showHistory)
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	runner := &bot.Runner{
		Farm:    farm.NewClient(cfg.Farm.BaseURL, logger),
		Browser: browser.NewSession(cfg.Browser.DebugPort, cfg.Browser.ChromePath, logger),
		Logger:  logger,
		GameURL: cfg.Browser.GameURL,
	}
	if store != nil {
		runner.History = store
	}

	outcome, err := runner.Run(ctx, bot.Params{
		FarmID:     cfg.Farm.ID,
		APIKey:     cfg.Farm.APIKey,
		ProfileDir: cfg.Browser.ProfileDir,
		Store:      cfg.StoreCoordinate(),
	})
	if err != nil {
		logger.Printf("run failed: %v", err)
	}
	logger.Printf("outcome: %s", outcome)
	if outcome.Failed() {
		os.Exit(1)
	}
}

func parseStore(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want x,y, got %q", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func printHistory(ctx context.Context, logger *log.Logger, store *history.Store, n int) {
	runs, err := store.RecentRuns(ctx, n)
	if err != nil {
		logger.Fatalf("list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  farm=%s  %s  clicks=%d  %s",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.FarmID, r.Outcome, r.Clicks, r.ID)
		if r.Err != "" {
			line += "  err=" + r.Err
		}
		fmt.Println(line)
	}
}
