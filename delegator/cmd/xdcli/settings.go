package main

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/urfave/cli"

	"github.com/omnistake/xcm-delegator/types"
)

var settingsCommands = []cli.Command{
	{
		Name:  "fee",
		Usage: "Show the weight and fee attached to messages of a task kind.",
		Flags: []cli.Flag{protocolCliFlag, taskCliFlag},
		Action: func(ctx *cli.Context) error {
			p, kind, err := taskArgs(ctx)
			if err != nil {
				return err
			}
			fee, err := newClient(ctx).XcmTaskFee(context.Background(), p, kind)
			if err != nil {
				return err
			}
			printRespJSON(fee)
			return nil
		},
	},
	{
		Name:  "set-fee",
		Usage: "Set the weight and fee attached to messages of a task kind.",
		Flags: []cli.Flag{
			protocolCliFlag,
			taskCliFlag,
			cli.Uint64Flag{
				Name:     weightFlag,
				Usage:    "The execution weight bought on the destination",
				Required: true,
			},
			cli.StringFlag{
				Name:     feeFlag,
				Usage:    "The fee paid for the weight",
				Required: true,
			},
		},
		Action: func(ctx *cli.Context) error {
			p, kind, err := taskArgs(ctx)
			if err != nil {
				return err
			}
			fee, ok := sdkmath.NewIntFromString(ctx.String(feeFlag))
			if !ok {
				return fmt.Errorf("invalid fee %q", ctx.String(feeFlag))
			}
			return newClient(ctx).SetXcmTaskFee(context.Background(), p, kind, types.XcmFee{Weight: ctx.Uint64(weightFlag), Fee: fee})
		},
	},
	{
		Name:  "set-fee-rate",
		Usage: "Set the share of staking rewards taken as protocol fee, in parts per million.",
		Flags: []cli.Flag{protocolCliFlag, permillCliFlag},
		Action: func(ctx *cli.Context) error {
			p, err := protocolArg(ctx)
			if err != nil {
				return err
			}
			return newClient(ctx).SetProtocolFeeRate(context.Background(), p, uint32(ctx.Uint(permillFlag)))
		},
	},
	{
		Name:  "time-unit",
		Usage: "Show the ongoing time unit of a protocol.",
		Flags: []cli.Flag{protocolCliFlag},
		Action: func(ctx *cli.Context) error {
			p, err := protocolArg(ctx)
			if err != nil {
				return err
			}
			unit, err := newClient(ctx).OngoingTimeUnit(context.Background(), p)
			if err != nil {
				return err
			}
			printRespJSON(unit)
			return nil
		},
	},
	{
		Name:  "update-time-unit",
		Usage: "Advance the ongoing time unit by one, or set it to the given value.",
		Flags: []cli.Flag{
			protocolCliFlag,
			cli.IntFlag{
				Name:  valueFlag,
				Usage: "The time unit value to set; advance by one if negative",
				Value: -1,
			},
		},
		Action: func(ctx *cli.Context) error {
			p, err := protocolArg(ctx)
			if err != nil {
				return err
			}
			var unit *types.TimeUnit
			if v := ctx.Int(valueFlag); v >= 0 {
				unit = &types.TimeUnit{Kind: p.Info().TimeUnitKind, Value: uint32(v)}
			}
			updated, err := newClient(ctx).UpdateOngoingTimeUnit(context.Background(), p, unit)
			if err != nil {
				return err
			}
			printRespJSON(updated)
			return nil
		},
	},
	{
		Name:  "set-time-unit-interval",
		Usage: "Set the minimum time between two operator advances of the time unit.",
		Flags: []cli.Flag{protocolCliFlag, intervalCliFlag},
		Action: func(ctx *cli.Context) error {
			p, err := protocolArg(ctx)
			if err != nil {
				return err
			}
			return newClient(ctx).SetUpdateOngoingTimeUnitInterval(context.Background(), p, ctx.Duration(intervalFlag))
		},
	},
	{
		Name:  "exchange-rate",
		Usage: "Show the token pool and derived issuance of a protocol.",
		Flags: []cli.Flag{protocolCliFlag},
		Action: func(ctx *cli.Context) error {
			p, err := protocolArg(ctx)
			if err != nil {
				return err
			}
			rate, err := newClient(ctx).ExchangeRate(context.Background(), p)
			if err != nil {
				return err
			}
			printRespJSON(rate)
			return nil
		},
	},
	{
		Name:  "update-exchange-rate",
		Usage: "Report the staking reward observed for a delegator.",
		Flags: []cli.Flag{
			protocolCliFlag,
			delegatorCliFlag,
			cli.StringFlag{
				Name:     amountFlag,
				Usage:    "The observed reward",
				Required: true,
			},
		},
		Action: func(ctx *cli.Context) error {
			p, err := protocolArg(ctx)
			if err != nil {
				return err
			}
			d, err := accountArg(ctx, delegatorFlag)
			if err != nil {
				return err
			}
			amount, ok := sdkmath.NewIntFromString(ctx.String(amountFlag))
			if !ok {
				return fmt.Errorf("invalid amount %q", ctx.String(amountFlag))
			}
			ev, err := newClient(ctx).UpdateTokenExchangeRate(context.Background(), p, d, amount)
			if err != nil {
				return err
			}
			printRespJSON(ev)
			return nil
		},
	},
	{
		Name:  "set-exchange-rate-limit",
		Usage: "Bound how often and how much exchange rate updates may grow the token pool.",
		Flags: []cli.Flag{protocolCliFlag, intervalCliFlag, permillCliFlag},
		Action: func(ctx *cli.Context) error {
			p, err := protocolArg(ctx)
			if err != nil {
				return err
			}
			return newClient(ctx).SetUpdateTokenExchangeRateLimit(context.Background(), p, ctx.Duration(intervalFlag), uint32(ctx.Uint(permillFlag)))
		},
	},
}

var taskCliFlag = cli.StringFlag{
	Name:     taskFlag,
	Usage:    "The task kind, e.g. Lock, Bond or Delegate",
	Required: true,
}

var permillCliFlag = cli.UintFlag{
	Name:     permillFlag,
	Usage:    "Parts per million, at most 1000000",
	Required: true,
}

var intervalCliFlag = cli.DurationFlag{
	Name:     intervalFlag,
	Usage:    "A duration such as 6h or 30m",
	Required: true,
}

func taskArgs(ctx *cli.Context) (types.StakingProtocol, types.TaskKind, error) {
	p, err := protocolArg(ctx)
	if err != nil {
		return 0, 0, err
	}
	kind, err := types.ParseTaskKind(ctx.String(taskFlag))
	if err != nil {
		return 0, 0, err
	}
	return p, kind, nil
}
