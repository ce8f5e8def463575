// Command convert ingests one exported chat-log document: it parses the
// markup tree, reconstructs the entity graph, prints a transcript to stdout
// and persists everything into the relational archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"chatvault/internal/archive"
	"chatvault/internal/asset"
	"chatvault/internal/markup"
	"chatvault/internal/store"
	"chatvault/pkg/config"
	"chatvault/pkg/logger"
)

func main() {
	channel := flag.String("channel", "", "channel infix naming the target message table (required)")
	channelName := flag.String("name", "", "channel display name, defaults to the infix")
	flag.Parse()

	if *channel == "" || flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s -channel <infix> [-name <name>] <export.html>\n", os.Args[0])
		os.Exit(2)
	}
	input := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()
	log := logger.Get()

	ctx := context.Background()

	doc, err := markup.ParseFile(input)
	if err != nil {
		log.Fatal("failed to parse export document", zap.String("input", input), zap.Error(err))
	}

	builder := archive.NewBuilder()
	if err := builder.Scan(doc); err != nil {
		log.Fatal("extraction aborted", zap.Error(err))
	}

	// Transcript goes out regardless of how persistence fares.
	archive.NewTranscript(os.Stdout).Print(builder)

	db, err := store.Connect(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		log.Fatal("schema migration failed", zap.Error(err))
	}

	name := *channelName
	if name == "" {
		name = *channel
	}
	if err := store.EnsureChannel(ctx, db, *channel, name, nil); err != nil {
		log.Fatal("failed to ensure channel", zap.Error(err))
	}

	repo := store.NewRepository(db)
	fetcher := asset.NewFetcher(cfg.DownloadDir, cfg.FetchTimeout)
	assets := asset.NewStore(cfg.AssetRoot, repo, fetcher)

	// Warm the download cache before persistence serializes into
	// per-message transactions.
	if urls := builder.RemoteURLs(); len(urls) > 0 {
		log.Info("prefetching remote assets", zap.Int("count", len(urls)))
		fetcher.Prefetch(ctx, urls)
	}

	// Asset sources in the document are relative to the export bundle.
	persister := store.NewPersister(repo, assets, filepath.Dir(input))

	// Batches are independent: a failed author batch must not block message
	// persistence, and vice versa.
	if err := persister.PersistAuthors(ctx, builder.Authors()); err != nil {
		log.Error("author batch failed", zap.Error(err))
	}
	if err := persister.PersistMessages(ctx, store.MessageTable(*channel), builder.Messages()); err != nil {
		log.Error("message batch finished with failures", zap.Error(err))
	}
}
