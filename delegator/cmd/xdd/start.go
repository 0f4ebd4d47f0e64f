package main

import (
	"fmt"
	"path/filepath"

	"github.com/lightningnetwork/lnd/signal"
	"github.com/urfave/cli"

	xddcfg "github.com/omnistake/xcm-delegator/delegator/config"
	"github.com/omnistake/xcm-delegator/delegator/service"
	"github.com/omnistake/xcm-delegator/log"
	"github.com/omnistake/xcm-delegator/util"
)

var startCommand = cli.Command{
	Name:        "start",
	Usage:       "xdd start",
	Description: "Start the delegation coordinator. The message broker and the asset ledger should be reachable beforehand",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  homeFlag,
			Usage: "The path to the delegation coordinator home directory",
			Value: xddcfg.DefaultXddDir,
		},
		cli.StringFlag{
			Name:  rpcListenerFlag,
			Usage: "The address the admin API listens on, overriding the config file",
		},
	},
	Action: start,
}

func start(ctx *cli.Context) error {
	homePath, err := filepath.Abs(ctx.String(homeFlag))
	if err != nil {
		return err
	}
	homePath = util.CleanAndExpandPath(homePath)

	cfg, err := xddcfg.LoadConfig(homePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if listener := ctx.String(rpcListenerFlag); listener != "" {
		cfg.RpcListener = listener
	}

	logger, err := log.NewRootLoggerWithFile(xddcfg.LogFile(homePath), cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize the logger: %w", err)
	}

	db, err := cfg.DatabaseConfig.GetDbBackend()
	if err != nil {
		return fmt.Errorf("failed to create db backend: %w", err)
	}

	app, err := service.NewAppFromConfig(cfg, db, logger)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create delegation coordinator app: %w", err)
	}

	// Hook interceptor for os signals.
	shutdownInterceptor, err := signal.Intercept()
	if err != nil {
		db.Close()
		return err
	}

	xddServer := service.NewCoordinatorServer(cfg, logger, app, db, shutdownInterceptor)

	return xddServer.RunUntilShutdown()
}
