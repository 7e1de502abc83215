package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/config"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/pattern"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Manage institution message patterns",
		Long: `Message patterns recognize a bank's notifications by sender ID and pull
the amount, merchant, date, direction and account out of the body.

Built-in patterns cover the major Indian banks and wallets. Patterns added
here are stored in the database and take precedence over configured and
built-in ones.`,
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsAddCmd())
	cmd.AddCommand(patternsToggleCmd("enable", "Enable a message pattern", true))
	cmd.AddCommand(patternsToggleCmd("disable", "Disable a message pattern", false))
	cmd.AddCommand(patternsDeleteCmd())
	cmd.AddCommand(patternsTestCmd())
	cmd.AddCommand(patternsExportCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List message patterns in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			institution, _ := cmd.Flags().GetString("institution")
			all, _ := cmd.Flags().GetBool("all")

			svc, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			patterns := svc.registry.All()
			if institution != "" {
				patterns = svc.registry.ByInstitution(institution)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Message Patterns"))
			fmt.Fprintln(out, renderPatterns(patterns, all))
			return nil
		},
	}

	cmd.Flags().StringP("institution", "i", "", "Only show patterns for this institution")
	cmd.Flags().BoolP("all", "a", false, "Include disabled patterns")

	return cmd
}

func renderPatterns(patterns []*pattern.Pattern, includeInactive bool) string {
	rows := make([][]string, 0, len(patterns))
	for _, p := range patterns {
		if !p.IsActive && !includeInactive {
			continue
		}
		status := cli.SuccessIcon
		if !p.IsActive {
			status = cli.ErrorIcon
		}
		rows = append(rows, []string{status, p.ID, p.Institution, p.SenderPattern})
	}
	if len(rows) == 0 {
		return cli.FormatInfo("No patterns found")
	}
	return cli.RenderTable([]string{"", "ID", "Institution", "Sender"}, rows)
}

func patternsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new message pattern",
		Example: `  spicesms patterns add --institution "Federal Bank" --sender 'FEDBNK' \
    --amount 'Rs\.?\s*([\d,]+\.?\d*)' --merchant 'at\s+([A-Z0-9 ]+)' \
    --direction '(debited|credited)'`,
		Args: cobra.NoArgs,
		RunE: runPatternsAdd,
	}

	cmd.Flags().String("id", "", "Pattern ID (default: generated)")
	cmd.Flags().String("institution", "", "Institution name (required)")
	cmd.Flags().String("sender", "", "Sender ID regex (required)")
	cmd.Flags().String("amount", "", "Amount regex")
	cmd.Flags().String("merchant", "", "Merchant regex")
	cmd.Flags().String("date", "", "Date regex")
	cmd.Flags().String("direction", "", "Direction keyword regex")
	cmd.Flags().String("account", "", "Masked account regex")
	_ = cmd.MarkFlagRequired("institution")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

func runPatternsAdd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	get := func(name string) string {
		v, _ := flags.GetString(name)
		return v
	}

	p := model.MessagePattern{
		ID:               get("id"),
		Institution:      get("institution"),
		SenderPattern:    get("sender"),
		AmountPattern:    get("amount"),
		MerchantPattern:  get("merchant"),
		DatePattern:      get("date"),
		DirectionPattern: get("direction"),
		AccountPattern:   get("account"),
		IsActive:         true,
	}

	svc, err := initServices(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	registered, err := svc.registry.Register(cmd.Context(), p)
	if err != nil {
		return common.NewUserError("could not register pattern", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
		fmt.Sprintf("Registered pattern %s for %s", registered.ID, registered.Institution)))
	return nil
}

func patternsToggleCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <pattern-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			toggle := svc.registry.Deactivate
			verb := "Disabled"
			if active {
				toggle = svc.registry.Activate
				verb = "Enabled"
			}
			if err := toggle(cmd.Context(), args[0]); err != nil {
				return common.NewUserError(fmt.Sprintf("could not %s pattern %s", use, args[0]), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s pattern %s", verb, args[0])))
			return nil
		},
	}
}

func patternsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pattern-id>",
		Short: "Delete a message pattern",
		Long: `Removes a pattern from the registry and the database. Built-in patterns
come back on the next run; disable them instead to keep them out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.registry.Delete(cmd.Context(), args[0]); err != nil {
				return common.NewUserError(fmt.Sprintf("could not delete pattern %s", args[0]), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted pattern %s", args[0])))
			return nil
		},
	}
}

func patternsTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <message body>",
		Short: "Show which pattern matches a message and what each field captures",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, _ := cmd.Flags().GetString("sender")

			svc, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			body := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			p := svc.registry.Match(sender, body)
			if p == nil {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("No active pattern matches sender %q", sender)))
				return nil
			}

			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s (%s)", p.ID, p.Institution)))
			fmt.Fprintln(out, renderCaptures(p, body))
			return nil
		},
	}

	cmd.Flags().StringP("sender", "s", "", "Message sender ID (required)")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

func renderCaptures(p *pattern.Pattern, body string) string {
	rows := make([][]string, 0, len(model.CanonicalFields))
	for _, field := range model.CanonicalFields {
		re := p.FieldRegex(field)
		if re == nil {
			rows = append(rows, []string{string(field), "-", "generic fallback"})
			continue
		}
		value, ok := common.FirstCapture(re, body)
		if !ok {
			rows = append(rows, []string{string(field), cli.ErrorIcon, re.String()})
			continue
		}
		rows = append(rows, []string{string(field), value, re.String()})
	}
	return cli.RenderTable([]string{"Field", "Captured", "Regex"}, rows)
}

func patternsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print every pattern as configuration YAML",
		Long: `Writes the registry as a patterns: block that can be pasted into
config.yaml, e.g. to carry custom patterns to another machine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			return exportPatterns(cmd.OutOrStdout(), svc.registry.All())
		},
	}
}

func exportPatterns(w io.Writer, patterns []*pattern.Pattern) error {
	doc := struct {
		Patterns []config.PatternConfig `yaml:"patterns"`
	}{
		Patterns: make([]config.PatternConfig, 0, len(patterns)),
	}
	for _, p := range patterns {
		doc.Patterns = append(doc.Patterns, config.NewPatternConfig(p.MessagePattern))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode patterns: %w", err)
	}
	return enc.Close()
}
