// Command bot keeps registered channels in sync with live chat: new and
// edited messages flow through the same entity model and persistence path as
// document imports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"chatvault/internal/asset"
	"chatvault/internal/discord"
	"chatvault/internal/store"
	"chatvault/pkg/config"
	"chatvault/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()
	log := logger.Get()

	if cfg.DiscordBotToken == "" {
		log.Fatal("DISCORD_BOT_TOKEN is required")
	}

	db, err := store.Connect(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		log.Fatal("schema migration failed", zap.Error(err))
	}

	repo := store.NewRepository(db)
	fetcher := asset.NewFetcher(cfg.DownloadDir, cfg.FetchTimeout)
	assets := asset.NewStore(cfg.AssetRoot, repo, fetcher)

	dg, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		log.Fatal("failed to create Discord session", zap.Error(err))
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	syncer := discord.NewSyncer(dg, repo, assets)
	if err := syncer.LoadChannels(context.Background()); err != nil {
		log.Fatal("failed to load sync channels", zap.Error(err))
	}
	syncer.Register()

	if err := dg.Open(); err != nil {
		log.Fatal("failed to open Discord connection", zap.Error(err))
	}
	defer dg.Close()

	log.Info("sync bot running, press CTRL-C to exit")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop

	log.Info("shutting down")
}
