package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/layer-3/carbx"
	"github.com/layer-3/carbx/adapters/backend"
	"github.com/layer-3/carbx/adapters/clock"
	"github.com/layer-3/carbx/adapters/events"
	"github.com/layer-3/carbx/adapters/registry"
	soladapter "github.com/layer-3/carbx/adapters/solana"
	"github.com/layer-3/carbx/adapters/store"
	"github.com/layer-3/carbx/adapters/tokenizer"
	"github.com/layer-3/carbx/adapters/wallet"
	"github.com/layer-3/carbx/internal/config"
	"github.com/layer-3/carbx/internal/logger"
	"github.com/layer-3/carbx/internal/metrics"
	"github.com/layer-3/carbx/internal/solana"
	"github.com/layer-3/carbx/ports"
	"github.com/layer-3/carbx/service"
)

// app is a wired dashboard with everything that needs closing
type app struct {
	cfg       *config.Config
	dashboard *carbx.Dashboard
	metrics   *metrics.Metrics
	closers   []func() error
}

func newApp(ctx context.Context, opts rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configFile, opts.envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags:      map[string]string{"service": "carbx"},
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	restClient, err := backend.NewRESTClient(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		return err
	}

	commitment := ports.Commitment(cfg.Solana.Commitment)
	rpcClient, err := soladapter.NewRPCClient(ctx, cfg.Solana.RPCURL, commitment, cfg.Solana.ConfirmPollInterval)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error {
		rpcClient.Close()
		return nil
	})

	programID, err := solana.PublicKeyFromBase58(cfg.Registry.ProgramID)
	if err != nil {
		return fmt.Errorf("invalid registry.program_id: %w", err)
	}
	configAccount, err := solana.PublicKeyFromBase58(cfg.Registry.ConfigAccount)
	if err != nil {
		return fmt.Errorf("invalid registry.config_account: %w", err)
	}

	keypairWallet, err := wallet.LoadKeypairWallet(cfg.Wallet.KeypairPath)
	if err != nil {
		return err
	}
	keypairWallet.Connect()

	publisher, err := a.messagePublisher()
	if err != nil {
		return err
	}

	a.metrics = metrics.New(prometheus.DefaultRegisterer)

	a.dashboard = carbx.New(carbx.Deps{
		Store:     store.NewMemoryStore(),
		Backend:   restClient,
		Wallet:    keypairWallet,
		Chain:     rpcClient,
		Indexer:   soladapter.NewDASClient(cfg.Solana.DASURL, cfg.API.Timeout),
		Program:   registry.NewProgram(programID, rpcClient),
		Tokenizer: tokenizer.NewJWTTokenizer(),
		Events: events.NewWatermillPublisher(publisher, events.Topics{
			Logout:     cfg.Events.LogoutTopic,
			Redemption: cfg.Events.RedemptionTopic,
		}),
		Clock:   clock.NewClock(),
		Metrics: a.metrics,
	}, carbx.Options{
		MinterPDA: cfg.Registry.MinterPDA,
		Redemption: service.RedemptionConfig{
			ConfigAccount: configAccount,
			Cluster:       solana.ClusterFromRPCURL(cfg.Solana.RPCURL),
			Commitment:    commitment,
			ValidationTTL: cfg.Notifications.ValidationTTL,
			RegistryTTL:   cfg.Notifications.RegistryTTL,
			SuccessTTL:    cfg.Notifications.SuccessTTL,
			FailureTTL:    cfg.Notifications.FailureTTL,
		},
	})

	logger.Info("dashboard ready",
		zap.String("wallet", a.dashboard.WalletStatus().Address),
		zap.String("rpc", cfg.Solana.RPCURL),
		zap.String("api", cfg.API.BaseURL),
	)
	return nil
}

// messagePublisher publishes to redis streams when events.redis_url is set, in process otherwise
func (a *app) messagePublisher() (message.Publisher, error) {
	var client redis.UniversalClient
	if a.cfg.Events.RedisURL != "" {
		opts, err := redis.ParseURL(a.cfg.Events.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		a.closers = append(a.closers, redisClient.Close)
		client = redisClient
	}

	publisher, err := events.NewMessagePublisher(client, watermill.NewStdLogger(a.cfg.Debug, false))
	if err != nil {
		return nil, err
	}
	// The publisher closes before the redis client it writes to
	a.closers = append(a.closers, publisher.Close)
	return publisher, nil
}

// Close waits for background work and releases connections in reverse order
func (a *app) Close() {
	if a.dashboard != nil {
		a.dashboard.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	logger.Flush(2 * time.Second)
}
