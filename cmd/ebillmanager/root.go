package main

import (
	"context"
	"fmt"

	"github.com/bher20/ebillmanager/internal/billing"
	"github.com/bher20/ebillmanager/internal/config"
	"github.com/bher20/ebillmanager/internal/events"
	"github.com/bher20/ebillmanager/internal/household"
	"github.com/bher20/ebillmanager/internal/logging"
	"github.com/bher20/ebillmanager/internal/storage"
	"github.com/bher20/ebillmanager/internal/tariff"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "ebillmanager",
	Short:         "Electricity billing service",
	Long:          "Register households, price consumption against the slab tariff, and issue bills that carry unpaid dues forward.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default ./ebillmanager.yaml if present)")
}

// app holds everything a command needs, built from configuration.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	store      storage.Storage
	calc       *tariff.Calculator
	engine     *billing.Engine
	households *household.Service
	pub        events.Publisher
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAppFrom(ctx, cfg, log)
}

func newAppFrom(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	var err error
	schedule := tariff.DefaultSchedule()
	if cfg.Tariff.File != "" {
		schedule, err = tariff.LoadScheduleFile(cfg.Tariff.File)
		if err != nil {
			return nil, err
		}
		log.Info("tariff loaded", zap.String("file", cfg.Tariff.File), zap.Int("slabs", len(schedule.Slabs)))
	}
	calc, err := tariff.NewCalculator(schedule)
	if err != nil {
		return nil, fmt.Errorf("tariff: %w", err)
	}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	st, err := storage.Open(ctx, storage.Config{Driver: cfg.Storage.Driver, DSN: cfg.Storage.DSN}, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	var pub events.Publisher = events.Nop{}
	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			RequiredAcks: cfg.Kafka.RequiredAcks,
			RetryMax:     cfg.Kafka.RetryMax,
		}, log)
		if err != nil {
			st.Close()
			return nil, err
		}
		pub = kp
	}

	opts := []billing.Option{billing.WithLogger(log), billing.WithPublisher(pub)}
	// Replicas sharing a Postgres pool serialize through advisory locks.
	if pg, ok := st.(*storage.PostgresPoolStorage); ok {
		opts = append(opts, billing.WithLocker(pg))
	}

	return &app{
		cfg:        cfg,
		log:        log,
		store:      st,
		calc:       calc,
		engine:     billing.NewEngine(st, calc, policy, opts...),
		households: household.NewService(st, log),
		pub:        pub,
	}, nil
}

func (a *app) Close() {
	if err := a.pub.Close(); err != nil {
		a.log.Warn("close publisher", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("close storage", zap.Error(err))
	}
	_ = a.log.Sync()
}

// warnEphemeral reminds CLI users that the memory backend forgets everything
// when the command exits.
func (a *app) warnEphemeral(cmd *cobra.Command) {
	if a.cfg.Storage.Driver == "memory" {
		fmt.Fprintln(cmd.ErrOrStderr(), "  warning: storage.driver is memory; nothing will be kept after this command")
	}
}
