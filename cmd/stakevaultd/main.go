package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"stakevault/config"
	"stakevault/core"
	"stakevault/observability/logging"
	"stakevault/rpc"
	"stakevault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("SVT_ENV"))
	logger := logging.Setup("stakevaultd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	conversionRate, err := cfg.ConversionRate()
	if err != nil {
		logger.Error("Invalid reward conversion rate", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	node, err := core.NewNode(db, cfg.RewardTokenSymbol, conversionRate)
	if err != nil {
		logger.Error("Failed to initialise node", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Node initialised",
		slog.String("network", cfg.NetworkName),
		slog.String("rewardToken", cfg.RewardTokenSymbol),
	)

	server := rpc.NewServer(node)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
