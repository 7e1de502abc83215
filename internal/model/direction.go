package model

// Direction describes which way money moved from the account holder's perspective.
type Direction string

const (
	// DirectionExpense is money spent (debited, withdrawn, paid).
	DirectionExpense Direction = "expense"
	// DirectionIncome is money received (credited, deposited).
	DirectionIncome Direction = "income"
	// DirectionTransferOut is money the account holder sent to another account.
	DirectionTransferOut Direction = "transfer_out"
	// DirectionTransferIn is money another account sent to the account holder.
	DirectionTransferIn Direction = "transfer_in"
)

// IsTransfer reports whether d is either transfer direction.
func (d Direction) IsTransfer() bool {
	return d == DirectionTransferOut || d == DirectionTransferIn
}

// IsValid reports whether d is one of the known directions.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionExpense, DirectionIncome, DirectionTransferOut, DirectionTransferIn:
		return true
	}
	return false
}
