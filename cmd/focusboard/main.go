package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"focusboard/internal/config"
	"focusboard/internal/decompose"
	"focusboard/internal/identity"
	"focusboard/internal/player"
	"focusboard/internal/provider"
	"focusboard/internal/storage"
	"focusboard/internal/timer"
	"focusboard/internal/tui"
)

func main() {
	var (
		configPath string
		dataDir    string
		authToken  string
		plain      bool
	)
	flag.StringVar(&configPath, "config", "", "Path to config JSON/JSONC")
	flag.StringVar(&dataDir, "data", "", "Data directory override")
	flag.StringVar(&authToken, "token", "", "Sign in with an opaque token instead of anonymously")
	flag.BoolVar(&plain, "plain", false, "Run the plain line-based interface instead of the TUI")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if strings.TrimSpace(dataDir) != "" {
		cfg.Storage.BaseDir = dataDir
	}

	store, err := storage.Open(filepath.Join(cfg.Storage.BaseDir, "focusboard.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	idp, err := identity.NewProvider(cfg.Storage.BaseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init identity failed: %v\n", err)
		os.Exit(1)
	}
	var id identity.Identity
	if strings.TrimSpace(authToken) != "" {
		id, err = idp.SignInWithToken(authToken)
	} else {
		id, err = idp.SignInAnonymous()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign in failed: %v\n", err)
		os.Exit(1)
	}

	gen, err := provider.NewClient(provider.Config{
		BaseURL:   cfg.Provider.BaseURL,
		APIKey:    cfg.Provider.APIKey,
		Model:     cfg.Provider.Model,
		TimeoutMS: cfg.Provider.TimeoutMS,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init provider failed: %v\n", err)
		os.Exit(1)
	}

	pipeline := decompose.New(gen, store, decompose.Options{
		MinTasks:      cfg.Generation.MinTasks,
		MaxTasks:      cfg.Generation.MaxTasks,
		MaxTitleWords: cfg.Generation.MaxTitleWords,
		MaxGoalTokens: cfg.Generation.MaxGoalTokens,
		MaxAttempts:   cfg.Generation.MaxAttempts,
		InitialDelay:  time.Duration(cfg.Generation.InitialDelayMS) * time.Millisecond,
	})

	music := player.New(store, cfg.Music.DefaultURL)

	durations := timer.Durations{
		Work:           cfg.Timer.WorkSeconds,
		ShortBreak:     cfg.Timer.ShortBreakSeconds,
		LongBreak:      cfg.Timer.LongBreakSeconds,
		LongBreakEvery: cfg.Timer.LongBreakEvery,
	}

	if plain {
		if err := runREPL(cfg, id.UserID, store, pipeline, music, durations); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	err = tui.Run(tui.Options{
		UserID:    id.UserID,
		Store:     store,
		Pipeline:  pipeline,
		Player:    music,
		Durations: durations,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tui failed: %v\n", err)
		os.Exit(1)
	}
}
