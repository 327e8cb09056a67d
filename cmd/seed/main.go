// Command seed populates the store with demo data and persists a snapshot,
// so a freshly started server comes up with a believable feed.
package main

import (
	"context"
	"flag"
	"os"

	"confide/internal/config"
	"confide/internal/engine"
	"confide/internal/middleware"
	"confide/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.NumUsers, "users", opts.NumUsers, "number of users to create")
	flag.IntVar(&opts.NumPosts, "posts", opts.NumPosts, "number of posts to create")
	flag.IntVar(&opts.NumMessages, "messages", opts.NumMessages, "total messages across conversations")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	middleware.InitMiddleware(cfg)

	ctx := context.Background()
	eng := engine.New(cfg)
	if err := eng.Init(ctx); err != nil {
		middleware.Logger.Error("engine initialization failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = eng.Close(ctx) }()

	if err := seed.Run(ctx, eng.DB(), opts); err != nil {
		middleware.Logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	eng.Persister().Checkpoint(ctx)
	middleware.Logger.Info("seed complete", "users", opts.NumUsers, "posts", opts.NumPosts)
}
