// Package ofx imports OFX/QFX bank and card statements as a second source of
// transactions alongside notification messages.
package ofx

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-sms/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags missing their closing bracket at end of line.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// AccountKind distinguishes deposit accounts from card accounts.
type AccountKind string

// Statement account kinds.
const (
	AccountBank AccountKind = "bank"
	AccountCard AccountKind = "card"
)

// Account is one account a statement reports on.
type Account struct {
	ID   string
	Kind AccountKind
}

// Identifier returns the masked form the account takes in notifications.
func (a Account) Identifier() string {
	return MaskAccountID(a.ID)
}

// Statement is the parsed content of one OFX file.
type Statement struct {
	Institution  string
	Accounts     []Account
	Transactions []model.Transaction
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// MaskAccountID reduces a full account number to the XX-prefixed last four
// digits banks print in notifications.
func MaskAccountID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) <= 4 {
		return id
	}
	return "XX" + id[len(id)-4:]
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file into a statement.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	stmt := &Statement{Institution: strings.TrimSpace(string(resp.Signon.Org))}
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if bank, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			account := Account{ID: string(bank.BankAcctFrom.AcctID), Kind: AccountBank}
			p.addTransactions(stmt, account, bank.BankTranList)
		}
	}

	for _, msg := range resp.CreditCard {
		if card, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			account := Account{ID: string(card.CCAcctFrom.AcctID), Kind: AccountCard}
			p.addTransactions(stmt, account, card.BankTranList)
		}
	}

	slog.Info("Parsed OFX file",
		"institution", stmt.Institution,
		"total_transactions", len(stmt.Transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return stmt, nil
}

func (p *Parser) addTransactions(s *Statement, account Account, list *ofxgo.TransactionList) {
	if account.ID == "" {
		return
	}
	known := false
	for _, a := range s.Accounts {
		if a.ID == account.ID {
			known = true
			break
		}
	}
	if !known {
		s.Accounts = append(s.Accounts, account)
	}
	if list == nil {
		return
	}

	for _, ofxTx := range list.Transactions {
		txn, err := p.convertTransaction(ofxTx, account, s.Institution)
		if err != nil {
			slog.Warn("Skipping statement transaction",
				"account", account.Identifier(),
				"fitid", string(ofxTx.FiTID),
				"error", err)
			continue
		}
		s.Transactions = append(s.Transactions, txn)
	}
}

// convertTransaction converts an OFX transaction to our model.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, account Account, institution string) (model.Transaction, error) {
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount: %w", err)
	}
	if amount.IsZero() {
		return model.Transaction{}, errors.New("zero amount")
	}

	txn := model.Transaction{
		ID:                uuid.NewString(),
		Date:              ofxTx.DtPosted.Time,
		Amount:            amount.Abs(),
		Direction:         direction(ofxTx.TrnType == ofxgo.TrnTypeXfer, amount),
		MerchantName:      p.extractMerchantName(ofxTx),
		AccountIdentifier: account.Identifier(),
		Sender:            institution,
		RawMessage:        strings.TrimSpace(string(ofxTx.Name) + " " + string(ofxTx.Memo)),
		Source:            model.SourceStatement,
	}
	if txn.MerchantName == "" {
		txn.MerchantName = ofxTx.TrnType.String()
	}

	// Statement rows are identified by FITID, so two identical purchases on
	// one day stay distinct.
	sum := sha256.Sum256([]byte(fmt.Sprintf("ofx:%s:%s", account.ID, ofxTx.FiTID)))
	txn.Hash = fmt.Sprintf("%x", sum)

	return txn, nil
}

// direction maps an OFX sign and transaction type onto a direction. OFX
// amounts are negative when money leaves the account.
func direction(isTransfer bool, amount decimal.Decimal) model.Direction {
	outgoing := amount.IsNegative()
	if isTransfer {
		if outgoing {
			return model.DirectionTransferOut
		}
		return model.DirectionTransferIn
	}
	if outgoing {
		return model.DirectionExpense
	}
	return model.DirectionIncome
}

// merchantPrefixes are channel markers banks prepend to statement names.
var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"UPI/",
	"UPI-",
	"NEFT-",
	"IMPS-",
	"POS ",
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && isGenericDescription(name) {
		name = strings.TrimSpace(string(tx.Memo))
	}

	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}

	// Leading "MM/DD " posting dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
		"UPI",
	}

	upperName := strings.ToUpper(name)
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}
