package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/ofx"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX statements",
		Long: `Import transactions from OFX or QFX statements downloaded from your bank.

Statement transactions are categorized like message transactions. Each
statement account is registered as an account mapping under its masked
number, so later notifications quoting it resolve to the same account.

Examples:
  # Import single file
  spicesms import-ofx ~/Downloads/hdfc_jan_2024.ofx

  # Import every statement in a directory
  spicesms import-ofx ~/Downloads/*.qfx

  # Name the institution and account for a file that omits them
  spicesms import-ofx --institution "ICICI Bank" --account icici-card card.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().String("institution", "", "Institution name (default: the statement's FI/ORG)")
	cmd.Flags().String("account", "", "Account reference for newly seen accounts (default: institution and last four digits)")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	institution, _ := cmd.Flags().GetString("institution")
	accountRef, _ := cmd.Flags().GetString("account")
	out := cmd.OutOrStdout()

	files, err := expandFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return common.NewUserError("no statement files found", common.ErrNotFound)
	}

	interruptHandler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Import")
	ctx := interruptHandler.HandleInterrupts(cmd.Context())
	defer interruptHandler.Stop()

	svc, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	importer := ofx.NewImporter(svc.resolver, svc.categorizer, svc.store)
	opts := ofx.ImportOptions{Institution: institution, AccountRef: accountRef}

	var rows [][]string
	var failed int
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}

		result, err := importFile(ctx, importer, path, opts)
		if err != nil {
			failed++
			common.LogError(err, "Failed to import statement", common.Fields{"path": path})
			rows = append(rows, []string{filepath.Base(path), "-", "-", "-", cli.FormatError(err.Error())})
			continue
		}

		accounts := make([]string, 0, len(result.Mappings))
		for _, m := range result.Mappings {
			accounts = append(accounts, m.AccountRef)
		}
		rows = append(rows, []string{
			filepath.Base(path),
			result.Institution,
			strconv.Itoa(result.Parsed),
			strconv.Itoa(result.Imported),
			valueOr(strings.Join(accounts, ", "), "-"),
		})
	}

	fmt.Fprintln(out, cli.FormatTitle("Statement Import"))
	fmt.Fprintln(out, cli.RenderTable([]string{"File", "Institution", "Parsed", "New", "Accounts"}, rows))

	if failed > 0 {
		return fmt.Errorf("%d of %d statements failed to import", failed, len(files))
	}
	return nil
}

func importFile(ctx context.Context, importer *ofx.Importer, path string, opts ofx.ImportOptions) (*ofx.ImportResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Error("Failed to close statement", "path", path, "error", closeErr)
		}
	}()

	return importer.Import(ctx, file, opts)
}

// expandFiles resolves glob patterns, keeping literal paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}
	return files, nil
}
