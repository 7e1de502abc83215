package main

import (
	"fmt"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/spf13/cobra"
)

func learnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn <merchant> <category>",
		Short: "Teach the categorizer a merchant's category",
		Long: `Creates or replaces a rule assigning the merchant to the category. Future
transactions from the merchant, and merchants with similar names, are
categorized accordingly.`,
		Example: `  spicesms learn "CHAI POINT" "Food & Dining"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawDirection, _ := cmd.Flags().GetString("direction")
			ctx := cmd.Context()

			direction, err := parseDirection(rawDirection)
			if err != nil {
				return err
			}

			svc, err := initServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			category, err := svc.lookupCategory(ctx, args[1])
			if err != nil {
				return err
			}

			txn := model.Transaction{MerchantName: args[0], Direction: direction}
			if err := svc.categorizer.LearnFromUserInput(ctx, txn, category.ID); err != nil {
				return common.NewUserError(fmt.Sprintf("could not learn %s → %s", args[0], category.Name), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("%s will be categorized as %s", args[0], category.Name)))
			return nil
		},
	}

	cmd.Flags().StringP("direction", "d", "", "Direction the category applies to (default: expense)")

	return cmd
}

func correctCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correct <transaction-id> <category>",
		Short: "Recategorize a stored transaction and learn from it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := initServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			category, err := svc.lookupCategory(ctx, args[1])
			if err != nil {
				return err
			}

			if err := svc.pipeline().Correct(ctx, args[0], *category); err != nil {
				return common.NewUserError(fmt.Sprintf("could not recategorize %s", args[0]), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Transaction %s is now %s", args[0], category.Name)))
			return nil
		},
	}
}
