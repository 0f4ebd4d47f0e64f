package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/omnistake/xcm-delegator/types"
)

var directoryCommands = []cli.Command{
	{
		Name:      "list-delegators",
		ShortName: "ld",
		Usage:     "List the delegators registered for a protocol.",
		Flags:     []cli.Flag{protocolCliFlag},
		Action:    listDelegators,
	},
	{
		Name:      "add-delegator",
		ShortName: "ad",
		Usage:     "Register the derivative sub-account of the next free index, or of the given one.",
		Flags: []cli.Flag{
			protocolCliFlag,
			cli.IntFlag{
				Name:  indexFlag,
				Usage: "The derivative index to register; the next free index if negative",
				Value: -1,
			},
		},
		Action: addDelegator,
	},
	{
		Name:      "remove-delegator",
		ShortName: "rd",
		Usage:     "Deregister a delegator whose ledger is empty.",
		Flags:     []cli.Flag{protocolCliFlag, delegatorCliFlag},
		Action:    removeDelegator,
	},
	{
		Name:   "ledger",
		Usage:  "Show the mirrored ledger of a delegator.",
		Flags:  []cli.Flag{protocolCliFlag, delegatorCliFlag},
		Action: getLedger,
	},
	{
		Name:  "set-ledger",
		Usage: "Override the mirrored ledger of a delegator with the content of a JSON file.",
		Flags: []cli.Flag{
			protocolCliFlag,
			delegatorCliFlag,
			cli.StringFlag{
				Name:     ledgerFlag,
				Usage:    "Path to the JSON encoded ledger",
				Required: true,
			},
		},
		Action: setLedger,
	},
	{
		Name:      "list-validators",
		ShortName: "lv",
		Usage:     "List the validators a delegator may target.",
		Flags:     []cli.Flag{protocolCliFlag, delegatorCliFlag},
		Action:    listValidators,
	},
	{
		Name:      "add-validator",
		ShortName: "av",
		Usage:     "Allow a delegator to target a validator.",
		Flags:     []cli.Flag{protocolCliFlag, delegatorCliFlag, validatorCliFlag},
		Action:    addValidator,
	},
	{
		Name:      "remove-validator",
		ShortName: "rv",
		Usage:     "Remove a validator from the targets of a delegator.",
		Flags:     []cli.Flag{protocolCliFlag, delegatorCliFlag, validatorCliFlag},
		Action:    removeValidator,
	},
}

var validatorCliFlag = cli.StringFlag{
	Name:     validatorFlag,
	Usage:    "The validator account in hex or SS58",
	Required: true,
}

func listDelegators(ctx *cli.Context) error {
	p, err := protocolArg(ctx)
	if err != nil {
		return err
	}
	entries, err := newClient(ctx).Delegators(context.Background(), p)
	if err != nil {
		return err
	}
	printRespJSON(entries)
	return nil
}

func addDelegator(ctx *cli.Context) error {
	p, err := protocolArg(ctx)
	if err != nil {
		return err
	}
	var index *uint16
	if i := ctx.Int(indexFlag); i >= 0 {
		if i > 0xffff {
			return fmt.Errorf("index %d out of range", i)
		}
		idx := uint16(i)
		index = &idx
	}
	entry, err := newClient(ctx).AddDelegator(context.Background(), p, index)
	if err != nil {
		return err
	}
	printRespJSON(entry)
	return nil
}

func removeDelegator(ctx *cli.Context) error {
	p, err := protocolArg(ctx)
	if err != nil {
		return err
	}
	d, err := accountArg(ctx, delegatorFlag)
	if err != nil {
		return err
	}
	return newClient(ctx).RemoveDelegator(context.Background(), p, d)
}

func getLedger(ctx *cli.Context) error {
	p, err := protocolArg(ctx)
	if err != nil {
		return err
	}
	d, err := accountArg(ctx, delegatorFlag)
	if err != nil {
		return err
	}
	ledger, err := newClient(ctx).Ledger(context.Background(), p, d)
	if err != nil {
		return err
	}
	printRespJSON(ledger)
	return nil
}

func setLedger(ctx *cli.Context) error {
	p, err := protocolArg(ctx)
	if err != nil {
		return err
	}
	d, err := accountArg(ctx, delegatorFlag)
	if err != nil {
		return err
	}
	bz, err := os.ReadFile(ctx.String(ledgerFlag))
	if err != nil {
		return fmt.Errorf("failed to read ledger file: %w", err)
	}
	var ledger types.Ledger
	if err := json.Unmarshal(bz, &ledger); err != nil {
		return fmt.Errorf("invalid ledger file: %w", err)
	}
	return newClient(ctx).SetLedger(context.Background(), p, d, &ledger)
}

func listValidators(ctx *cli.Context) error {
	p, err := protocolArg(ctx)
	if err != nil {
		return err
	}
	d, err := accountArg(ctx, delegatorFlag)
	if err != nil {
		return err
	}
	vals, err := newClient(ctx).Validators(context.Background(), p, d)
	if err != nil {
		return err
	}
	printRespJSON(vals)
	return nil
}

func validatorArgs(ctx *cli.Context) (types.StakingProtocol, types.Account, types.Account, error) {
	p, err := protocolArg(ctx)
	if err != nil {
		return 0, types.Account{}, types.Account{}, err
	}
	d, err := accountArg(ctx, delegatorFlag)
	if err != nil {
		return 0, types.Account{}, types.Account{}, err
	}
	v, err := accountArg(ctx, validatorFlag)
	if err != nil {
		return 0, types.Account{}, types.Account{}, err
	}
	return p, d, v, nil
}

func addValidator(ctx *cli.Context) error {
	p, d, v, err := validatorArgs(ctx)
	if err != nil {
		return err
	}
	return newClient(ctx).AddValidator(context.Background(), p, d, v)
}

func removeValidator(ctx *cli.Context) error {
	p, d, v, err := validatorArgs(ctx)
	if err != nil {
		return err
	}
	return newClient(ctx).RemoveValidator(context.Background(), p, d, v)
}
