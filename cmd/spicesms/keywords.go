package main

import (
	"fmt"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/spf13/cobra"
)

func keywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Manage merchant keyword mappings",
		Long: `Keywords map a single merchant name token (swiggy, uber, netflix) to a
category. They are the last source consulted before a transaction is left
uncategorized. Your own keywords override the built-in ones.`,
	}

	cmd.AddCommand(keywordsListCmd())
	cmd.AddCommand(keywordsAddCmd())
	cmd.AddCommand(keywordsRemoveCmd())

	return cmd
}

func keywordsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keyword mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categoryName, _ := cmd.Flags().GetString("category")
			ctx := cmd.Context()

			svc, err := initServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			var keywords []model.KeywordMapping
			if categoryName != "" {
				category, lookupErr := svc.lookupCategory(ctx, categoryName)
				if lookupErr != nil {
					return lookupErr
				}
				keywords, err = svc.categorizer.Keywords().KeywordsForCategory(ctx, category.ID)
			} else {
				keywords, err = svc.store.GetAllKeywords(ctx)
			}
			if err != nil {
				return err
			}

			categories, err := svc.store.GetCategories(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Keywords"))
			fmt.Fprintln(out, renderKeywords(keywords, categoryNames(categories)))
			return nil
		},
	}

	cmd.Flags().StringP("category", "c", "", "Only show keywords for this category")

	return cmd
}

func renderKeywords(keywords []model.KeywordMapping, names map[int]string) string {
	if len(keywords) == 0 {
		return cli.FormatInfo("No keywords found")
	}
	rows := make([][]string, 0, len(keywords))
	for _, k := range keywords {
		source := "built-in"
		if k.IsUserDefined {
			source = "user"
		}
		rows = append(rows, []string{k.Keyword, names[k.CategoryID], source})
	}
	return cli.RenderTable([]string{"Keyword", "Category", "Source"}, rows)
}

func keywordsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <keyword> <category>",
		Short:   "Map a keyword to a category",
		Example: `  spicesms keywords add chaayos "Food & Dining"`,
		Args:    cobra.ExactArgs(2),
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
			if err := svc.categorizer.Keywords().AddKeyword(ctx, args[0], category.ID); err != nil {
				return common.NewUserError(fmt.Sprintf("could not add keyword %q", args[0]), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Keyword %q now maps to %s", args[0], category.Name)))
			return nil
		},
	}
}

func keywordsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <keyword>",
		Short: "Remove your mapping for a keyword",
		Long: `Removes a keyword you added. A built-in keyword you had overridden goes
back to its built-in category.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := initServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.categorizer.Keywords().RemoveKeyword(ctx, args[0]); err != nil {
				return common.NewUserError(fmt.Sprintf("could not remove keyword %q", args[0]), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Removed keyword %q", args[0])))
			return nil
		},
	}
}
