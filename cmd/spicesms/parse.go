package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <message body>",
		Short: "Extract and categorize a single message without storing it",
		Long: `Runs one message through pattern lookup, field extraction, account
resolution and categorization, then prints every intermediate result.
Nothing is written to the database.`,
		Example: `  spicesms parse --sender AD-HDFCBK "Rs.500.00 debited from a/c **1234 on 12-01-24 to VPA swiggy@icici"`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runParse,
	}

	cmd.Flags().StringP("sender", "s", "", "Message sender ID (required)")
	cmd.Flags().String("received-at", "", "When the message arrived (default: now)")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	sender, _ := cmd.Flags().GetString("sender")
	rawReceived, _ := cmd.Flags().GetString("received-at")
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	receivedAt, err := parseReceivedAt(rawReceived, time.Now())
	if err != nil {
		return common.NewUserError("invalid --received-at", err)
	}

	svc, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	msg := model.Message{
		Sender:     sender,
		ReceivedAt: receivedAt,
		Body:       strings.Join(args, " "),
	}
	result := svc.extractor.Extract(ctx, msg)

	fmt.Fprintln(out, cli.FormatTitle("Extraction"))
	fmt.Fprintln(out, formatExtraction(result))

	if !result.Success {
		return nil
	}

	categorization, err := svc.categorizer.Categorize(ctx, *result.Transaction)
	if err != nil {
		return fmt.Errorf("failed to categorize: %w", err)
	}
	fmt.Fprintln(out, cli.FormatTitle("Category"))
	fmt.Fprintln(out, formatCategorization(categorization))
	return nil
}

func formatExtraction(result model.ExtractionResult) string {
	d := result.Details
	fields := make([]string, 0, len(d.FieldsFound))
	for _, f := range d.FieldsFound {
		fields = append(fields, string(f))
	}

	rows := [][]string{
		{"Stage", string(d.Stage)},
		{"Institution", valueOr(d.Institution, "-")},
		{"Pattern", valueOr(d.PatternID, "generic")},
		{"Fields", valueOr(strings.Join(fields, ", "), "-")},
		{"Duration", d.Duration.String()},
	}

	if !result.Success {
		rows = append(rows, []string{"Result", cli.FormatError(string(d.FailureReason))})
		if d.Err != nil {
			rows = append(rows, []string{"Error", d.Err.Error()})
		}
		return cli.RenderTable([]string{"Step", "Value"}, rows)
	}

	txn := result.Transaction
	rows = append(rows,
		[]string{"Amount", cli.FormatAmount(txn.Amount, txn.Direction)},
		[]string{"Direction", string(txn.Direction)},
		[]string{"Merchant", txn.MerchantName},
		[]string{"Date", txn.Date.Format("2006-01-02 15:04")},
		[]string{"Account", valueOr(txn.AccountIdentifier, "-")},
		[]string{"Account ref", valueOr(txn.AccountRef, "unmapped")},
		[]string{"Confidence", cli.FormatConfidence(result.Confidence)},
	)
	return cli.RenderTable([]string{"Step", "Value"}, rows)
}

func formatCategorization(result *model.CategorizationResult) string {
	return fmt.Sprintf("%s  %s  (%s)",
		result.Category.Name,
		cli.FormatConfidence(result.Confidence),
		result.Reason)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
