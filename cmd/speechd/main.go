package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"speechd/internal/config"
	"speechd/internal/httpapi"
	"speechd/internal/manager"
	"speechd/internal/registry"
	"speechd/internal/session"
	"speechd/internal/vad"
)

var (
	flagConfig   string
	flagAddr     string
	flagModels   string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "speechd",
		Short: "Local speech inference gateway",
		Long:  "speechd manages speech model lifecycles and serves streaming transcription and one-shot synthesis over HTTP.",
	}
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE:  runServe,
	}
	serve.Flags().StringVarP(&flagConfig, "config", "c", "", "config file (.yaml, .json or .toml)")
	serve.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address, overrides config")
	serve.Flags().StringVar(&flagModels, "models-dir", "", "weights directory, overrides config")
	root.AddCommand(serve)

	models := &cobra.Command{
		Use:   "models",
		Short: "Print the known model catalog",
		RunE:  runModels,
	}
	models.Flags().StringVar(&flagModels, "models-dir", "~/.speechd/models", "weights directory")
	root.AddCommand(models)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	lvl, err := zerolog.ParseLevel(flagLogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func runModels(cmd *cobra.Command, args []string) error {
	models, err := registry.Load(flagModels, "", "")
	if err != nil {
		return err
	}
	for _, m := range models {
		state := "remote"
		if m.Path != "" {
			state = "downloaded"
		}
		fmt.Printf("%-28s %-4s %-10s %s\n", m.ID, m.Kind, state, m.Description)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger()

	var cfg config.Config
	if flagConfig != "" {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if flagAddr != "" {
		cfg.Addr = flagAddr
	}
	if flagModels != "" {
		cfg.ModelsDir = flagModels
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = "~/.speechd/models"
	}
	if cfg.DefaultSTTModel == "" {
		cfg.DefaultSTTModel = "whisper-base"
	}
	if cfg.MaxConcurrentSessions <= 0 {
		cfg.MaxConcurrentSessions = 4
	}
	if cfg.ModelIdleTTLSec < 0 {
		cfg.ModelIdleTTLSec = 0
	}

	models, err := registry.Load(cfg.ModelsDir, cfg.DefaultSTTModel, cfg.DefaultTTSModel)
	if err != nil {
		return fmt.Errorf("load model registry: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := manager.New(manager.Config{
		Registry:      models,
		ModelsDir:     cfg.ModelsDir,
		IdleTTL:       time.Duration(cfg.ModelIdleTTLSec) * time.Second,
		MaxLoaded:     cfg.MaxLoadedModels,
		LoadTimeout:   time.Duration(cfg.LoadTimeoutSec) * time.Second,
		SweepInterval: time.Duration(cfg.SweepIntervalSec) * time.Second,
		Logger:        log.With().Str("component", "manager").Logger(),
	})
	mgr.StartSweeper(ctx)

	vadFactory := vad.NewEnergy()
	if cfg.SileroModelPath != "" {
		vadFactory = vad.NewSilero(cfg.SileroModelPath)
	}
	sup := session.NewSupervisor(session.SupervisorConfig{
		Manager: mgr,
		VAD:     vadFactory,
		Session: session.Config{
			SpeechThreshold: cfg.SpeechThreshold,
			EndpointingMs:   cfg.EndpointingMs,
			ChunkMs:         cfg.ChunkMs,
			MaxUtteranceMs:  cfg.MaxUtteranceMs,
			SampleRate:      cfg.SampleRate,
		},
		MaxSessions: cfg.MaxConcurrentSessions,
		Logger:      log.With().Str("component", "session").Logger(),
	})

	// Warm the default transcription model in the background so the first
	// session does not pay the cold-load cost. Readiness reflects it.
	go func() {
		if err := mgr.Warm(ctx, cfg.DefaultSTTModel); err != nil {
			log.Warn().Str("model", cfg.DefaultSTTModel).Err(err).Msg("default model warmup failed")
		}
	}()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.NewServer(mgr, sup, log.With().Str("component", "http").Logger()).Mux(),
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("speechd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	sup.CloseAll()
	cancel()
	return nil
}
