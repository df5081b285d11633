package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fatflowers/pointsledger/pkg/types"
)

func newPointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Balance commands",
	}

	var (
		userID      string
		amount      int64
		typ         string
		description string
	)
	adjust := &cobra.Command{
		Use:   "adjust",
		Short: "Credit (positive --amount) or debit (negative --amount) a balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := types.PointsHistoryType(typ)
			if !t.Valid() {
				return fmt.Errorf("invalid --type %q", typ)
			}
			return withDeps(cmd.Context(), func(ctx context.Context, d *deps) error {
				bal, err := d.Points.AddPoints(ctx, userID, amount, t, description)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), bal)
			})
		},
	}
	adjust.Flags().StringVar(&userID, "user", "", "user id")
	adjust.Flags().Int64Var(&amount, "amount", 0, "signed points delta")
	adjust.Flags().StringVar(&typ, "type", string(types.PointsHistoryTypeAdminAdjustment), "history type")
	adjust.Flags().StringVar(&description, "description", "", "history description")
	_ = adjust.MarkFlagRequired("user")
	_ = adjust.MarkFlagRequired("amount")

	var reconcileUser string
	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare a stored balance with the sum of its history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(ctx context.Context, d *deps) error {
				rec, err := d.Points.Reconcile(ctx, reconcileUser)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), rec); err != nil {
					return err
				}
				if !rec.Consistent {
					return fmt.Errorf("balance of %s is off by %d", reconcileUser, rec.Difference)
				}
				return nil
			})
		},
	}
	reconcile.Flags().StringVar(&reconcileUser, "user", "", "user id")
	_ = reconcile.MarkFlagRequired("user")

	cmd.AddCommand(adjust, reconcile)
	return cmd
}
