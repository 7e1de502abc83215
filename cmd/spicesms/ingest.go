package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/engine"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/spf13/cobra"
)

// receivedAtLayouts are the timestamp formats accepted in the received_at column.
var receivedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <messages.csv>",
		Short: "Extract and categorize a batch of bank messages",
		Long: `Reads bank notification messages from a CSV file with the columns
sender, received_at and body (a header row is optional), extracts a
transaction from each one and stores it with a category.

Messages that are not transactions (OTPs, promotions) are skipped, and
messages already ingested are reported as duplicates, so re-running a file
is safe.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")
	cmd.Flags().BoolP("verbose", "v", false, "List every message that was not saved")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	verbose, _ := cmd.Flags().GetBool("verbose")
	out := cmd.OutOrStdout()

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			common.LogError(closeErr, "Failed to close message file", common.Fields{"path": args[0]})
		}
	}()

	messages, err := readMessages(file, time.Now())
	if err != nil {
		return common.NewUserError(fmt.Sprintf("could not read messages from %s", args[0]), err)
	}
	if len(messages) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("No messages found"))
		return nil
	}

	interruptHandler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Ingest")
	ctx := interruptHandler.HandleInterrupts(cmd.Context())
	defer interruptHandler.Stop()

	svc, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	var opts []engine.Option
	if !noProgress {
		bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(messages), "Ingesting messages")
		opts = append(opts, engine.WithProgress(func(engine.Outcome) {
			cli.Advance(bar)
		}))
	}

	summary, err := svc.pipeline(opts...).ProcessBatch(ctx, messages)
	if err != nil && !interruptHandler.WasInterrupted() {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderBox("Ingest Summary", formatSummary(summary)))

	if verbose {
		if table := outcomeTable(summary.Outcomes); table != "" {
			fmt.Fprintln(out, table)
		}
	}
	return nil
}

func formatSummary(summary *engine.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Saved:      %d\n", cli.SuccessIcon, summary.Saved)
	fmt.Fprintf(&b, "%s Skipped:    %d\n", cli.InfoIcon, summary.Skipped)
	fmt.Fprintf(&b, "%s Duplicates: %d\n", cli.WarningIcon, summary.Duplicates)
	fmt.Fprintf(&b, "%s Failed:     %d\n", cli.ErrorIcon, summary.Failed)
	fmt.Fprintf(&b, "Time: %s", summary.ProcessingTime.Round(time.Millisecond))
	return b.String()
}

// outcomeTable lists the processed messages that did not produce a new
// transaction.
func outcomeTable(outcomes []engine.Outcome) string {
	var rows [][]string
	for _, o := range outcomes {
		if o.Status == engine.StatusSaved || o.Status == "" {
			continue
		}
		reason := ""
		if o.Err != nil {
			reason = o.Err.Error()
		}
		rows = append(rows, []string{
			string(o.Status),
			o.Message.Sender,
			truncate(o.Message.Body, 40),
			reason,
		})
	}
	if len(rows) == 0 {
		return ""
	}
	return cli.RenderTable([]string{"Status", "Sender", "Message", "Reason"}, rows)
}

// readMessages parses CSV rows of sender, received_at and body. A first row
// whose columns are the literal header names is skipped. Rows with an empty
// received_at are stamped with now.
func readMessages(r io.Reader, now time.Time) ([]model.Message, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	var messages []model.Message
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidFormat, err)
		}
		if line == 1 && isHeader(record) {
			continue
		}

		receivedAt, err := parseReceivedAt(record[1], now)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		messages = append(messages, model.Message{
			Sender:     strings.TrimSpace(record[0]),
			ReceivedAt: receivedAt,
			Body:       record[2],
		})
	}
	return messages, nil
}

func isHeader(record []string) bool {
	return strings.EqualFold(strings.TrimSpace(record[0]), "sender") &&
		strings.EqualFold(strings.TrimSpace(record[2]), "body")
}

func parseReceivedAt(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, nil
	}
	for _, layout := range receivedAtLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized received_at %q", common.ErrInvalidFormat, raw)
}

func truncate(s string, n int) string {
	runes := []rune(strings.Join(strings.Fields(s), " "))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n-1]) + "…"
}
