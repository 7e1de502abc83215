package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-sms/internal/model"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

type seedCategory struct {
	Name        string
	Type        model.CategoryType
	Description string
}

// TransferCategoryName is the system category for movements between own accounts.
const TransferCategoryName = "Transfer"

var defaultCategories = []seedCategory{
	{Name: model.UncategorizedCategoryName, Type: model.CategoryTypeSystem, Description: "Transactions no source could place"},
	{Name: TransferCategoryName, Type: model.CategoryTypeSystem, Description: "Money moved between accounts"},
	{Name: "Shopping", Type: model.CategoryTypeExpense, Description: "Online and retail purchases"},
	{Name: "Food & Dining", Type: model.CategoryTypeExpense, Description: "Restaurants, cafes and food delivery"},
	{Name: "Groceries", Type: model.CategoryTypeExpense, Description: "Supermarkets and grocery delivery"},
	{Name: "Transportation", Type: model.CategoryTypeExpense, Description: "Cabs, fuel, trains and flights"},
	{Name: "Entertainment", Type: model.CategoryTypeExpense, Description: "Streaming, movies and events"},
	{Name: "Utilities", Type: model.CategoryTypeExpense, Description: "Phone, internet, power and gas"},
	{Name: "Healthcare", Type: model.CategoryTypeExpense, Description: "Pharmacies, clinics and hospitals"},
	{Name: "Insurance", Type: model.CategoryTypeExpense, Description: "Insurance premiums"},
	{Name: "Rent", Type: model.CategoryTypeExpense, Description: "Rent and housing"},
	{Name: "Loan Payments", Type: model.CategoryTypeExpense, Description: "EMIs and loan repayments"},
	{Name: "Salary", Type: model.CategoryTypeIncome, Description: "Salary and wages"},
	{Name: "Interest", Type: model.CategoryTypeIncome, Description: "Interest earned"},
	{Name: "Refunds", Type: model.CategoryTypeIncome, Description: "Refunds, reversals and cashback"},
}

// defaultKeywords is the built-in keyword table, keyed by category name.
var defaultKeywords = map[string][]string{
	"Shopping":       {"amazon", "flipkart", "myntra", "ajio", "meesho", "nykaa", "croma", "decathlon", "ikea"},
	"Food & Dining":  {"swiggy", "zomato", "dominos", "mcdonalds", "starbucks", "kfc", "restaurant", "cafe", "pizza"},
	"Groceries":      {"bigbasket", "blinkit", "zepto", "grofers", "dmart", "grocery", "supermarket"},
	"Transportation": {"uber", "ola", "rapido", "irctc", "metro", "petrol", "fuel", "indigo", "fastag"},
	"Entertainment":  {"netflix", "hotstar", "spotify", "bookmyshow", "pvr", "inox", "prime"},
	"Utilities":      {"airtel", "jio", "vodafone", "bsnl", "electricity", "bescom", "broadband", "tatapower"},
	"Healthcare":     {"apollo", "pharmacy", "medplus", "hospital", "clinic", "netmeds", "pharmeasy"},
	"Insurance":      {"insurance", "lic", "policybazaar"},
	"Rent":           {"rent", "nobroker"},
	"Loan Payments":  {"emi", "loan"},
	"Salary":         {"salary", "payroll"},
	"Interest":       {"interest"},
	"Refunds":        {"refund", "cashback", "reversal"},
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					type TEXT NOT NULL DEFAULT 'expense',
					description TEXT DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					is_active BOOLEAN DEFAULT 1
				)`,
				`CREATE INDEX idx_categories_active ON categories(is_active)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					date DATETIME NOT NULL,
					amount TEXT NOT NULL,
					direction TEXT NOT NULL,
					merchant_name TEXT NOT NULL,
					account_identifier TEXT DEFAULT '',
					account_ref TEXT DEFAULT '',
					sender TEXT DEFAULT '',
					raw_message TEXT DEFAULT '',
					source TEXT NOT NULL,
					category_id INTEGER REFERENCES categories(id),
					category_confidence REAL DEFAULT 0,
					category_reason TEXT DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_merchant ON transactions(merchant_name)`,
				`CREATE INDEX idx_transactions_category ON transactions(category_id)`,

				`CREATE TABLE IF NOT EXISTS category_rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					merchant_pattern TEXT UNIQUE NOT NULL,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					confidence REAL NOT NULL DEFAULT 0.9,
					is_user_defined BOOLEAN NOT NULL DEFAULT 0,
					use_count INTEGER NOT NULL DEFAULT 0,
					last_used DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS merchants (
					normalized_name TEXT PRIMARY KEY,
					display_name TEXT NOT NULL,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					confidence REAL NOT NULL DEFAULT 0,
					transaction_count INTEGER NOT NULL DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_merchants_category ON merchants(category_id)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add keyword mappings",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS keyword_mappings (
					keyword TEXT NOT NULL,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					is_user_defined BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (keyword, is_user_defined)
				)`,
				`CREATE INDEX idx_keyword_mappings_category ON keyword_mappings(category_id)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add account mappings and message patterns",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS account_mappings (
					id TEXT PRIMARY KEY,
					account_ref TEXT NOT NULL,
					institution TEXT NOT NULL,
					institution_key TEXT NOT NULL,
					identifier TEXT NOT NULL,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (account_ref, institution_key, identifier)
				)`,
				`CREATE UNIQUE INDEX idx_account_mappings_active
					ON account_mappings(institution_key, identifier)
					WHERE is_active = 1`,

				`CREATE TABLE IF NOT EXISTS message_patterns (
					id TEXT PRIMARY KEY,
					institution TEXT NOT NULL,
					sender_pattern TEXT NOT NULL,
					amount_pattern TEXT DEFAULT '',
					merchant_pattern TEXT DEFAULT '',
					date_pattern TEXT DEFAULT '',
					direction_pattern TEXT DEFAULT '',
					account_pattern TEXT DEFAULT '',
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			})
		},
	},
	{
		Version:     4,
		Description: "Seed default categories and keywords",
		Up: func(tx *sql.Tx) error {
			for _, cat := range defaultCategories {
				if _, err := tx.Exec(`
					INSERT INTO categories (name, type, description, is_active)
					VALUES (?, ?, ?, 1)
					ON CONFLICT(name) DO NOTHING
				`, cat.Name, string(cat.Type), cat.Description); err != nil {
					return fmt.Errorf("failed to seed category %q: %w", cat.Name, err)
				}
			}

			for categoryName, keywords := range defaultKeywords {
				for _, keyword := range keywords {
					if _, err := tx.Exec(`
						INSERT INTO keyword_mappings (keyword, category_id, is_user_defined)
						SELECT ?, id, 0 FROM categories WHERE name = ?
						ON CONFLICT(keyword, is_user_defined) DO NOTHING
					`, keyword, categoryName); err != nil {
						return fmt.Errorf("failed to seed keyword %q: %w", keyword, err)
					}
				}
			}

			slog.Info("Seeded default categories", "count", len(defaultCategories))
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
