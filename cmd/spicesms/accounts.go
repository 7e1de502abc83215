package main

import (
	"fmt"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Map masked account numbers to your accounts",
		Long: `Bank messages only quote masked account numbers such as XX1234. Account
mappings bind an institution and masked identifier to an account reference
of your choosing, so transactions from different banks land in the right
account.`,
	}

	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsMapCmd())
	cmd.AddCommand(accountsToggleCmd("enable", "Enable an account mapping", true))
	cmd.AddCommand(accountsToggleCmd("disable", "Disable an account mapping", false))
	cmd.AddCommand(accountsDeleteCmd())

	return cmd
}

func accountsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List account mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accountRef, _ := cmd.Flags().GetString("account")

			svc, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			var mappings []model.AccountMapping
			if accountRef != "" {
				mappings, err = svc.resolver.MappingsForAccount(cmd.Context(), accountRef)
			} else {
				mappings, err = svc.resolver.AllMappings(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("failed to list account mappings: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Account Mappings"))
			fmt.Fprintln(out, renderMappings(mappings))
			return nil
		},
	}

	cmd.Flags().StringP("account", "a", "", "Only show mappings for this account reference")

	return cmd
}

func renderMappings(mappings []model.AccountMapping) string {
	if len(mappings) == 0 {
		return cli.FormatInfo("No account mappings found")
	}
	rows := make([][]string, 0, len(mappings))
	for _, m := range mappings {
		status := cli.SuccessIcon
		if !m.IsActive {
			status = cli.ErrorIcon
		}
		rows = append(rows, []string{status, m.ID, m.AccountRef, m.Institution, m.Identifier})
	}
	return cli.RenderTable([]string{"", "ID", "Account", "Institution", "Identifier"}, rows)
}

func accountsMapCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "map <account-ref> <institution> <identifier>",
		Short:   "Bind a masked account identifier to an account",
		Example: `  spicesms accounts map hdfc-savings "HDFC Bank" XXXX1234`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			mapping, err := svc.resolver.CreateMapping(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return common.NewUserError("could not create account mapping", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Mapped %s %s to %s (%s)", mapping.Institution, mapping.Identifier, mapping.AccountRef, mapping.ID)))
			return nil
		},
	}
}

func accountsToggleCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <mapping-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			toggle := svc.resolver.Deactivate
			verb := "Disabled"
			if active {
				toggle = svc.resolver.Activate
				verb = "Enabled"
			}
			if err := toggle(cmd.Context(), args[0]); err != nil {
				return common.NewUserError(fmt.Sprintf("could not %s mapping %s", use, args[0]), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s mapping %s", verb, args[0])))
			return nil
		},
	}
}

func accountsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <mapping-id>",
		Short: "Delete an account mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.resolver.Delete(cmd.Context(), args[0]); err != nil {
				return common.NewUserError(fmt.Sprintf("could not delete mapping %s", args[0]), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted mapping %s", args[0])))
			return nil
		},
	}
}
