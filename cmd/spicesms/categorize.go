package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/spf13/cobra"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize <merchant>",
		Short: "Show how a merchant would be categorized",
		Long: `Runs the categorization chain for a merchant name: your rules first, then
merchant history, similar merchants and keywords. Ranked suggestions from
every source are listed below the chosen category.`,
		Example: `  spicesms categorize "SWIGGY BANGALORE"
  spicesms categorize --direction income "ACME CORP PVT LTD"
  spicesms categorize --category "Food & Dining" zomato`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCategorize,
	}

	cmd.Flags().StringP("direction", "d", "", "Transaction direction (default: expense)")
	cmd.Flags().StringP("category", "c", "", "Only report the confidence for this category")
	cmd.Flags().IntP("suggestions", "n", 5, "Number of suggestions to show (0 to hide)")

	return cmd
}

func runCategorize(cmd *cobra.Command, args []string) error {
	rawDirection, _ := cmd.Flags().GetString("direction")
	categoryName, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("suggestions")
	merchant := strings.Join(args, " ")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	direction, err := parseDirection(rawDirection)
	if err != nil {
		return err
	}

	svc, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	if categoryName != "" {
		category, err := svc.lookupCategory(ctx, categoryName)
		if err != nil {
			return err
		}
		confidence, err := svc.categorizer.GetConfidence(ctx, merchant, category.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s → %s  %s\n", merchant, category.Name, cli.FormatConfidence(confidence))
		return nil
	}

	result, err := svc.categorizer.Categorize(ctx, model.Transaction{
		MerchantName: merchant,
		Direction:    direction,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatTitle(merchant))
	fmt.Fprintln(out, formatCategorization(result))

	if limit <= 0 {
		return nil
	}
	suggestions, err := svc.categorizer.SuggestCategories(ctx, merchant)
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.FormatTitle("Suggestions"))
	fmt.Fprintln(out, renderSuggestions(suggestions.TopN(limit)))
	return nil
}

func renderSuggestions(suggestions model.CategorySuggestions) string {
	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		rows = append(rows, []string{s.Category.Name, cli.FormatConfidence(s.Confidence), string(s.Reason)})
	}
	return cli.RenderTable([]string{"Category", "Confidence", "Source"}, rows)
}
