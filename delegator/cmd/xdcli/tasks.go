package main

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/urfave/cli"

	"github.com/omnistake/xcm-delegator/types"
)

var taskCommands = []cli.Command{
	{
		Name:      "dispatch-task",
		ShortName: "dt",
		Usage:     "Send a staking task on behalf of a delegator.",
		Flags: []cli.Flag{
			protocolCliFlag,
			delegatorCliFlag,
			cli.StringFlag{
				Name:     taskFlag,
				Usage:    "The task kind, e.g. Lock, Bond or Delegate",
				Required: true,
			},
			cli.StringFlag{
				Name:  amountFlag,
				Usage: "The amount in the smallest unit of the native currency",
			},
			cli.StringSliceFlag{
				Name:  validatorFlag,
				Usage: "A validator targeted by the task; may be given multiple times",
			},
			cli.IntFlag{
				Name:  eraFlag,
				Usage: "The era of a payout; unset if negative",
				Value: -1,
			},
		},
		Action: dispatchTask,
	},
}

func dispatchTask(ctx *cli.Context) error {
	p, err := protocolArg(ctx)
	if err != nil {
		return err
	}
	d, err := accountArg(ctx, delegatorFlag)
	if err != nil {
		return err
	}
	kind, err := types.ParseTaskKind(ctx.String(taskFlag))
	if err != nil {
		return err
	}

	task := types.NewTask(kind)
	if s := ctx.String(amountFlag); s != "" {
		amount, ok := sdkmath.NewIntFromString(s)
		if !ok {
			return fmt.Errorf("invalid amount %q", s)
		}
		task = task.WithAmount(amount)
	}
	if vals := ctx.StringSlice(validatorFlag); len(vals) > 0 {
		targets := make([]types.Account, 0, len(vals))
		for _, s := range vals {
			v, err := types.ParseAccount(s)
			if err != nil {
				return fmt.Errorf("invalid validator %q: %w", s, err)
			}
			targets = append(targets, v)
		}
		task = task.WithValidators(targets...)
	}
	if era := ctx.Int(eraFlag); era >= 0 {
		task = task.WithEra(uint32(era))
	}
	if err := task.ValidateBasic(p); err != nil {
		return err
	}

	queryID, err := newClient(ctx).DispatchTask(context.Background(), p, d, task)
	if err != nil {
		return err
	}
	printRespJSON(map[string]interface{}{"query_id": queryID})
	return nil
}
