package main

import (
	"flag"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/layer-3/salvo/adapters/events"
	"github.com/layer-3/salvo/adapters/gateway"
	"github.com/layer-3/salvo/adapters/store"
	"github.com/layer-3/salvo/adapters/wallet"
	"github.com/layer-3/salvo/config"
	"github.com/layer-3/salvo/ports"
	"github.com/layer-3/salvo/service"
	transport "github.com/layer-3/salvo/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "salvo").Logger()

	// Wallet key for server-side signing and submission.
	keyHex := os.Getenv(cfg.WalletKeyEnv)
	if keyHex == "" {
		logger.Fatal().Str("env", cfg.WalletKeyEnv).Msg("wallet key not set")
	}
	key, err := gethcrypto.HexToECDSA(keyHex)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse wallet key")
	}

	ethClient, err := wallet.Dial(cfg.EthEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to dial eth endpoint")
	}
	provider := wallet.NewKeyedProvider(key, ethClient)

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse redis URL")
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create event publisher")
	}

	kv := store.NewRedisStore(redisClient)
	clock := ports.SystemClock{}

	issuer := gateway.NewClient(cfg.IssuerBaseURL, nil)
	authClient := gateway.NewAuthClient(issuer)
	directory := gateway.NewDirectoryClient(issuer)
	signer := gateway.NewSignerClient(nil)

	sessions := service.NewSessionStore(kv, clock)
	auth := service.NewAuthService(sessions, authClient, authClient, clock, logger)
	cache := service.NewSignatureCache(kv, clock)
	collector := service.NewQuorumCollector(cache, directory, signer, clock, logger)
	settlement := service.NewSettlementDriver(provider, cfg.ChainID, clock, logger)
	withdrawals := service.NewWithdrawalService(
		auth, collector, settlement, cache,
		events.NewWatermillPublisher(publisher),
		service.WithdrawalConfig{
			TokenAddress:    common.HexToAddress(cfg.TokenAddress),
			ContractAddress: common.HexToAddress(cfg.ContractAddress),
			TokenDecimals:   cfg.TokenDecimals,
		},
		logger,
	)

	router := transport.SetupRouter(auth, withdrawals, sessions, provider)

	logger.Info().Str("addr", cfg.ListenAddress).Msg("starting")
	if err := router.Run(cfg.ListenAddress); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
