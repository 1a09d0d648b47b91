package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"tanx.game/internal/match"
	"tanx.game/internal/persistence/matchdb"
	"tanx.game/internal/persistence/replay"
	"tanx.game/internal/sim/tuning"
	"tanx.game/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "terrain seed")
		style      = flag.String("style", "", "terrain style override (classic|urban)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: built-in constants)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite match index")
		playerOne  = flag.String("p1", "Player 1", "left player name")
		playerTwo  = flag.String("p2", "Player 2", "right player name")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune := tuning.Defaults()
	if tp := strings.TrimSpace(*tuningPath); tp != "" {
		loaded, err := tuning.Load(tp)
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = loaded
	}
	if *style != "" {
		tune.Terrain.Style = *style
		if err := tune.Terrain.Validate(); err != nil {
			logger.Fatalf("terrain style: %v", err)
		}
	}

	var recorders match.MultiRecorder

	replayDir := filepath.Join(*dataDir, "replays")
	var store *matchdb.Store
	if !*disableDB {
		db, err := matchdb.Open(filepath.Join(*dataDir, "matches.db"))
		if err != nil {
			logger.Fatalf("open match index: %v", err)
		}
		store = db
		defer store.Close()
		recorders = append(recorders, store)
	}

	m, err := buildMatch(tune, *seed, *playerOne, *playerTwo, replayDir, recorders, logger)
	if err != nil {
		logger.Fatalf("create match: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go m.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", ws.NewServer(m, logger).Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "match_id": m.ID})
	})

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("match %s listening on %s (seed=%d style=%s)", m.ID, *addr, *seed, tune.Terrain.Style)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("serve: %v", err)
	}
}

func buildMatch(tune tuning.Tuning, seed int64, p1, p2, replayDir string, recorders match.MultiRecorder, logger *log.Logger) (*match.Runtime, error) {
	matchID := uuid.NewString()
	w, err := replay.NewWriter(replayDir, matchID)
	if err != nil {
		return nil, err
	}
	recorders = append(recorders, match.ReplayRecorder{W: w})
	m, err := match.New(match.Config{
		ID:          matchID,
		Tuning:      tune,
		Seed:        seed,
		PlayerNames: [2]string{p1, p2},
		Recorder:    recorders,
		Logger:      logger,
	})
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return m, nil
}
