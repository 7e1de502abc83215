package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Browse stored transactions",
	}

	cmd.AddCommand(transactionsListCmd())

	return cmd
}

func transactionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE:  runTransactionsList,
	}

	cmd.Flags().String("since", "", "Only transactions on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("until", "", "Only transactions before this date (YYYY-MM-DD)")
	cmd.Flags().StringP("account", "a", "", "Only transactions for this account reference")
	cmd.Flags().StringP("category", "c", "", "Only transactions in this category")
	cmd.Flags().IntP("limit", "n", 50, "Maximum number of transactions (0 for all)")

	return cmd
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	rawSince, _ := flags.GetString("since")
	rawUntil, _ := flags.GetString("until")
	accountRef, _ := flags.GetString("account")
	categoryName, _ := flags.GetString("category")
	limit, _ := flags.GetInt("limit")
	ctx := cmd.Context()

	since, err := parseDateFlag("since", rawSince)
	if err != nil {
		return err
	}
	until, err := parseDateFlag("until", rawUntil)
	if err != nil {
		return err
	}

	svc, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	filter := storage.TransactionFilter{
		Since:      since,
		Until:      until,
		AccountRef: accountRef,
		Limit:      limit,
	}
	if categoryName != "" {
		category, err := svc.lookupCategory(ctx, categoryName)
		if err != nil {
			return err
		}
		filter.CategoryID = category.ID
	}

	transactions, err := svc.store.ListTransactions(ctx, filter)
	if err != nil {
		return err
	}
	categories, err := svc.store.GetCategories(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle("Transactions"))
	fmt.Fprintln(out, renderTransactions(transactions, categoryNames(categories)))
	return nil
}

func renderTransactions(transactions []model.Transaction, names map[int]string) string {
	if len(transactions) == 0 {
		return cli.FormatInfo("No transactions found")
	}
	rows := make([][]string, 0, len(transactions))
	for _, t := range transactions {
		rows = append(rows, []string{
			t.ID,
			t.Date.Format(dateLayout),
			truncate(t.MerchantName, 30),
			cli.FormatAmount(t.Amount, t.Direction),
			valueOr(names[t.CategoryID], model.UncategorizedCategoryName),
			cli.FormatConfidence(t.CategoryConfidence),
			valueOr(t.AccountRef, "-"),
		})
	}
	return cli.RenderTable([]string{"ID", "Date", "Merchant", "Amount", "Category", "Confidence", "Account"}, rows)
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show spending per category for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rawMonth, _ := cmd.Flags().GetString("month")
			ctx := cmd.Context()

			start, end, err := monthRange(rawMonth, time.Now())
			if err != nil {
				return err
			}

			svc, err := initServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			totals, err := svc.store.GetCategorySummary(ctx, start, end)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Spending for "+start.Format("January 2006")))
			fmt.Fprintln(out, renderSummary(totals))
			return nil
		},
	}

	cmd.Flags().StringP("month", "m", "", "Month to summarize (YYYY-MM, default: current month)")

	return cmd
}

// renderSummary lists category totals, largest first, followed by the grand total.
func renderSummary(totals map[string]decimal.Decimal) string {
	if len(totals) == 0 {
		return cli.FormatInfo("No spending recorded")
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if cmp := totals[names[i]].Cmp(totals[names[j]]); cmp != 0 {
			return cmp > 0
		}
		return names[i] < names[j]
	})

	total := decimal.Zero
	rows := make([][]string, 0, len(names)+1)
	for _, name := range names {
		total = total.Add(totals[name])
		rows = append(rows, []string{name, "₹" + totals[name].StringFixed(2)})
	}
	rows = append(rows, []string{"Total", "₹" + total.StringFixed(2)})
	return cli.RenderTable([]string{"Category", "Spent"}, rows)
}

// monthRange returns [first day, first day of next month) for a YYYY-MM
// value, or for the month containing now when raw is empty.
func monthRange(raw string, now time.Time) (time.Time, time.Time, error) {
	var start time.Time
	if raw == "" {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else {
		parsed, err := time.ParseInLocation("2006-01", raw, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, common.NewUserError(
				fmt.Sprintf("invalid month %q, expected YYYY-MM", raw), common.ErrValidationFailed)
		}
		start = parsed
	}
	return start, start.AddDate(0, 1, 0), nil
}

func parseDateFlag(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, common.NewUserError(
			fmt.Sprintf("invalid --%s %q, expected YYYY-MM-DD", name, raw), common.ErrValidationFailed)
	}
	return t, nil
}
