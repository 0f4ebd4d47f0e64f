package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli"

	xddcfg "github.com/omnistake/xcm-delegator/delegator/config"
	dc "github.com/omnistake/xcm-delegator/delegator/service/client"
	"github.com/omnistake/xcm-delegator/types"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[xdcli] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "xdcli"
	app.Usage = "Control plane for the Cross-chain Delegation Daemon (xdd)."
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  daemonAddressFlag,
			Usage: "The admin API address of xdd",
			Value: xddcfg.DefaultRpcListener,
		},
		cli.StringFlag{
			Name:   tokenFlag,
			Usage:  "The API token identifying the caller",
			EnvVar: tokenEnvVar,
		},
	}
	app.Commands = append(app.Commands, getInfoCmd, pendingStatusesCmd)
	app.Commands = append(app.Commands, directoryCommands...)
	app.Commands = append(app.Commands, taskCommands...)
	app.Commands = append(app.Commands, settingsCommands...)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func newClient(ctx *cli.Context) *dc.CoordinatorRpcClient {
	return dc.NewCoordinatorRpcClient(ctx.GlobalString(daemonAddressFlag), ctx.GlobalString(tokenFlag))
}

func printRespJSON(resp interface{}) {
	jsonBytes, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}

	fmt.Printf("%s\n", jsonBytes)
}

func protocolArg(ctx *cli.Context) (types.StakingProtocol, error) {
	return types.ParseStakingProtocol(ctx.String(protocolFlag))
}

func accountArg(ctx *cli.Context, name string) (types.Account, error) {
	a, err := types.ParseAccount(ctx.String(name))
	if err != nil {
		return types.Account{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return a, nil
}

var protocolCliFlag = cli.StringFlag{
	Name:     protocolFlag,
	Usage:    "The staking protocol: AstarDappStaking, PolkadotStaking or MoonbeamStaking",
	Required: true,
}

var delegatorCliFlag = cli.StringFlag{
	Name:     delegatorFlag,
	Usage:    "The delegator account in hex or SS58",
	Required: true,
}

var getInfoCmd = cli.Command{
	Name:      "get-info",
	ShortName: "gi",
	Usage:     "Get information of the running daemon.",
	Action: func(ctx *cli.Context) error {
		info, err := newClient(ctx).Health(context.Background())
		if err != nil {
			return err
		}
		printRespJSON(info)
		return nil
	},
}

var pendingStatusesCmd = cli.Command{
	Name:      "list-pending-statuses",
	ShortName: "lps",
	Usage:     "List the dispatched tasks awaiting a response.",
	Action: func(ctx *cli.Context) error {
		list, err := newClient(ctx).PendingStatuses(context.Background())
		if err != nil {
			return err
		}
		printRespJSON(list)
		return nil
	},
}
