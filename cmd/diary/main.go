package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ponto2/line-diary/internal/profile"
	"github.com/ponto2/line-diary/plugin/ai"
	"github.com/ponto2/line-diary/plugin/drive"
	"github.com/ponto2/line-diary/server"
	"github.com/ponto2/line-diary/server/diary"
	"github.com/ponto2/line-diary/server/linebot"
	"github.com/ponto2/line-diary/server/streak"
	"github.com/ponto2/line-diary/store"
	"github.com/ponto2/line-diary/store/db"
	"github.com/ponto2/line-diary/store/logstore"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "diary",
	Short: "Personal diary bot: LINE webhook in, AI-enriched Notion entries and reviews out",
	RunE: func(_ *cobra.Command, _ []string) error {
		p := loadProfile()
		if err := p.Validate(); err != nil {
			return err
		}
		return run(p)
	},
}

func init() {
	viper.SetEnvPrefix("diary")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the bot, can be "prod" or "dev"`)
	flags.String("addr", "", "binding address for the webhook server")
	flags.Int("port", 8230, "binding port for the webhook server")
	flags.String("data", ".", "data directory for local state")
	flags.String("driver", "sqlite", `state store driver, "sqlite" or "redis"`)
	flags.String("timezone", "Asia/Tokyo", "calendar timezone for day keys and schedules")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "timezone"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func loadProfile() *profile.Profile {
	p := &profile.Profile{
		Mode:          viper.GetString("mode"),
		Addr:          viper.GetString("addr"),
		Port:          viper.GetInt("port"),
		Data:          viper.GetString("data"),
		Driver:        viper.GetString("driver"),
		Timezone:      viper.GetString("timezone"),
		RedisAddr:     viper.GetString("redis-addr"),
		RedisPassword: viper.GetString("redis-password"),
		Version:       version,
		LineToken:     viper.GetString("line-token"),
		LineUserID:    viper.GetString("line-user-id"),
		NotionToken:   viper.GetString("notion-token"),
		NotionDBID:    viper.GetString("notion-db-id"),
		AIAPIKey:      viper.GetString("ai-api-key"),
		AIBaseURL:     viper.GetString("ai-base-url"),
		DriveFolderID: viper.GetString("drive-folder-id"),
		DriveToken:    viper.GetString("drive-token"),
		UserProfile:   viper.GetString("user-profile"),
	}
	if models := viper.GetString("ai-models"); models != "" {
		for _, m := range strings.Split(models, ",") {
			if m = strings.TrimSpace(m); m != "" {
				p.ModelCandidates = append(p.ModelCandidates, m)
			}
		}
	}
	return p
}

func run(p *profile.Profile) error {
	logger := newLogger(p)
	slog.SetDefault(logger)

	driver, err := db.NewDriver(p)
	if err != nil {
		return err
	}
	stateStore := store.New(driver)
	defer stateStore.Close()

	logs := logstore.NewNotionStore(&logstore.NotionConfig{
		Token:      p.NotionToken,
		DatabaseID: p.NotionDBID,
		Location:   p.Location(),
	}, logger)

	aiProvider := ai.NewProvider(&ai.Config{
		BaseURL: p.AIBaseURL,
		APIKey:  p.AIAPIKey,
		Models:  p.ModelCandidates,
	})

	lineClient := linebot.NewClient(p.LineToken)
	driveClient := drive.NewClient(&drive.Config{
		FolderID: p.DriveFolderID,
		Token:    p.DriveToken,
	})

	streakEngine := streak.NewEngine(stateStore, logs, p.Location(), logger)
	service := diary.NewService(p, logs, stateStore, streakEngine, aiProvider, lineClient, driveClient, logger)
	srv := server.New(p, service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(p *profile.Profile) *slog.Logger {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
