// Command server runs the authoritative dog-roam game: the public JSON API,
// the simulation clock, the Postgres leaderboard and the loopback debug
// surface (pprof, metrics, render, spectator feed).
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loothound/internal/api"
	"loothound/internal/app"
	"loothound/internal/config"
	"loothound/internal/game"
	"loothound/internal/records"
	"loothound/internal/render"
	"loothound/internal/snapshot"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env if present; plain environment variables work too.
	if err := godotenv.Load(); err == nil {
		log.Println("✅ Loaded environment from .env")
	}

	cmd := &cli.Command{
		Name:  "server",
		Usage: "game server where dogs roam road networks and haul loot to offices",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config-file",
				Aliases:  []string{"c"},
				Usage:    "path of the world config JSON",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "tick-period",
				Aliases: []string{"t"},
				Usage:   "simulation step in milliseconds (omit to drive ticks through the API)",
			},
			&cli.StringFlag{
				Name:    "www-root",
				Aliases: []string{"w"},
				Usage:   "directory of the frontend files",
				Value:   "static",
			},
			&cli.BoolFlag{
				Name:  "randomize-spawn-points",
				Usage: "spawn joining dogs at random road points",
			},
			&cli.StringFlag{
				Name:  "state-file",
				Usage: "world snapshot path (omit to run without persistence)",
			},
			&cli.IntFlag{
				Name:  "save-state-period",
				Usage: "autosave interval in milliseconds of game time",
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "listen address of the public API (default from SERVER_ADDRESS or :8080)",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("🛑 %v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log.Println("🎮 ================================")
	log.Println("🎮  LOOT HOUND - GAME SERVER")
	log.Println("🎮 ================================")

	cfg := config.Load()
	if addr := cmd.String("address"); addr != "" {
		cfg.Server.Address = addr
	}

	world, err := config.LoadWorld(cmd.String("config-file"))
	if err != nil {
		return err
	}
	log.Printf("🗺️ Loaded %d maps from %s", len(world.Maps), cmd.String("config-file"))

	if cfg.Database.URL == "" {
		return errors.New("GAME_DB_URL is not set")
	}
	db, err := records.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to the records database: %w", err)
	}
	defer db.Close()

	store := records.New(db, cfg.Database.QueryTimeout)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("preparing the records schema: %w", err)
	}
	log.Println("✅ Records store ready")

	g := game.NewGame(world.Maps, game.Options{
		LootPeriod:      world.LootPeriod,
		LootProbability: world.LootProbability,
		RetireAfter:     world.RetireAfter,
		RandomSpawns:    cmd.Bool("randomize-spawn-points"),
	})

	// A saved world is best effort: anything unreadable starts fresh.
	stateFile := cmd.String("state-file")
	if stateFile != "" {
		st, err := snapshot.ReadFile(stateFile)
		switch {
		case err != nil:
			log.Printf("⚠️ Ignoring state file: %v", err)
		case st != nil:
			snapshot.Restore(g, st)
			log.Printf("📦 Restored world state from %s", stateFile)
		}
	}

	tickPeriod := time.Duration(cmd.Int("tick-period")) * time.Millisecond
	application := app.New(g, app.Options{
		TickPeriod: tickPeriod,
		OnTickDone: func(elapsed time.Duration, players, loots int) {
			api.RecordTick(elapsed)
			api.UpdatePlayerCount(players)
			api.UpdateLootCount(loots)
		},
	})
	application.SetRetirementSink(func(name string, score int, playTime float64) {
		store.Add(context.Background(), name, score, playTime)
		api.RecordRetirement()
	})
	if tickPeriod > 0 {
		log.Printf("⏱️ Automatic ticks every %v", tickPeriod)
	} else {
		log.Println("⏱️ Manual ticks enabled via POST /api/v1/game/tick")
	}

	var saver *snapshot.Saver
	if stateFile != "" {
		savePeriod := time.Duration(cmd.Int("save-state-period")) * time.Millisecond
		saver = snapshot.NewSaver(application, stateFile, savePeriod)
		saver.OnSave = api.RecordSnapshotSave
		application.AddTickListener(saver)
		if savePeriod > 0 {
			log.Printf("💾 Autosave every %v of game time to %s", savePeriod, stateFile)
		} else {
			log.Printf("💾 State saved on shutdown to %s", stateFile)
		}
	}

	router := api.NewRouter(api.RouterConfig{
		Game:    application,
		Records: store,
		Static:  api.NewStaticHandler(cmd.String("www-root")),
	})
	server := api.NewServer(cfg.Server, router)

	watch := api.NewWatchHub(application)
	api.StartDebugServer(api.DebugConfig{
		Enabled:       cfg.Debug.Address != "",
		ListenAddr:    cfg.Debug.Address,
		BasicAuthUser: cfg.Debug.AuthUser,
		BasicAuthPass: cfg.Debug.AuthPass,
		Extra: map[string]http.Handler{
			"/debug/render": api.NewRenderHandler(application, render.New(1024, 768)),
			"/debug/watch":  http.HandlerFunc(watch.HandleWatch),
		},
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return application.Run(ctx) })
	eg.Go(func() error { return watch.Run(ctx) })
	eg.Go(func() error { return server.Run(ctx) })

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	err = eg.Wait()

	if saver != nil {
		if saveErr := saver.Save(); saveErr != nil {
			log.Printf("⚠️ Final state save failed: %v", saveErr)
		} else {
			log.Println("💾 Final state saved")
		}
	}

	log.Println("👋 Goodbye!")
	return err
}
