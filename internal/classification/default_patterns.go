package classification

// DefaultPatterns returns the default direction keyword patterns.
func DefaultPatterns() []Pattern {
	return []Pattern{
		// Transfers win over plain debit/credit wording
		{
			Name:       "Account Transfer",
			Type:       PatternTypeTransfer,
			Regex:      `\b(transferred|transfer|xfer|self\s*transfer)\b`,
			Priority:   100,
			Confidence: 0.90,
		},
		{
			Name:       "Refund",
			Type:       PatternTypeIncome,
			Regex:      `\b(refund(ed)?|reversed|reversal|cash\s*back)\b`,
			Priority:   90,
			Confidence: 0.90,
		},
		// UPI debits often read "debited ... credited to <payee>"
		{
			Name:       "Debit",
			Type:       PatternTypeExpense,
			Regex:      `\b(debit(ed)?|withdrawn)\b`,
			Priority:   80,
			Confidence: 0.85,
		},
		// Card spends and bill reminders mention "credit card"
		{
			Name:       "Purchase",
			Type:       PatternTypeExpense,
			Regex:      `\b(spent|purchase|charged)\b`,
			Priority:   75,
			Confidence: 0.85,
		},
		{
			Name:       "Credit",
			Type:       PatternTypeIncome,
			Regex:      `\b(credited|credit\s+(by|of|inr|rs)|received|deposited|sent\s+you)\b`,
			Priority:   70,
			Confidence: 0.85,
		},
		{
			Name:       "Payment",
			Type:       PatternTypeExpense,
			Regex:      `\b(paid|payment\s+of|sent)\b`,
			Priority:   60,
			Confidence: 0.80,
		},
	}
}
