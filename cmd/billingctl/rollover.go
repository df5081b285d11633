package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRolloverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Rollover maintenance commands",
	}

	var sweepAt string
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Roll over every active subscription whose period has ended",
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := parseAt(sweepAt)
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(ctx context.Context, d *deps) error {
				res, err := d.Scheduler.Sweep(ctx, now)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	sweep.Flags().StringVar(&sweepAt, "at", "", "sweep time in RFC3339 (default now)")

	var expireAt string
	expire := &cobra.Command{
		Use:   "expire",
		Short: "Mark rollover records past their grace window as expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := parseAt(expireAt)
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(ctx context.Context, d *deps) error {
				n, err := d.Scheduler.ExpireRollovers(ctx, now)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int64{"expired_count": n})
			})
		},
	}
	expire.Flags().StringVar(&expireAt, "at", "", "expiry cut-off in RFC3339 (default now)")

	cmd.AddCommand(sweep, expire)
	return cmd
}
