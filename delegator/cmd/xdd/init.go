package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli"

	xddcfg "github.com/omnistake/xcm-delegator/delegator/config"
	"github.com/omnistake/xcm-delegator/util"
)

var initCommand = cli.Command{
	Name:  "init",
	Usage: "Initialize a delegation coordinator home directory.",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  homeFlag,
			Usage: "Path to where the home directory will be initialized",
			Value: xddcfg.DefaultXddDir,
		},
		cli.UintFlag{
			Name:  parachainIDFlag,
			Usage: "The parachain id of the local chain",
		},
		cli.BoolFlag{
			Name:     forceFlag,
			Usage:    "Override existing configuration",
			Required: false,
		},
	},
	Action: initHome,
}

func initHome(c *cli.Context) error {
	homePath, err := filepath.Abs(c.String(homeFlag))
	if err != nil {
		return err
	}
	force := c.Bool(forceFlag)

	if util.FileExists(homePath) && !force {
		return fmt.Errorf("home path %s already exists", homePath)
	}

	// ensure the directory exists
	homePath = util.CleanAndExpandPath(homePath)
	if err := util.MakeDirectory(homePath); err != nil {
		return err
	}
	// Create log directory
	logDir := xddcfg.LogDir(homePath)
	if err := util.MakeDirectory(logDir); err != nil {
		return err
	}

	defaultConfig := xddcfg.DefaultConfigWithHome(homePath)
	if id := c.Uint(parachainIDFlag); id != 0 {
		defaultConfig.Coordinator.ParachainID = uint32(id)
	}

	return xddcfg.WriteConfig(homePath, &defaultConfig)
}
