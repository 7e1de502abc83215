package pattern

import "github.com/Veraticus/spice-sms/internal/model"

// Institution names used by the built-in patterns.
const (
	InstitutionHDFC      = "HDFC Bank"
	InstitutionICICI     = "ICICI Bank"
	InstitutionSBI       = "State Bank of India"
	InstitutionAxis      = "Axis Bank"
	InstitutionKotak     = "Kotak Mahindra Bank"
	InstitutionPaytm     = "Paytm"
	InstitutionPhonePe   = "PhonePe"
	InstitutionGooglePay = "Google Pay"
)

// Shared field expressions.
const (
	currencyAmountExpr = `(?:Rs\.?|INR|₹)\s*([\d,]+(?:\.\d{1,2})?)`
	accountExpr        = `\b(?:A/c|Acct|Account|AC|Card)\s*(?:no\.?|ending)?\s*([X*]*\d{3,6})`
	dateExpr           = `(\d{1,2}[-/](?:\d{1,2}|[A-Za-z]{3})[-/]\d{2,4}(?:\s+\d{1,2}:\d{2}(?::\d{2})?)?|\d{4}-\d{2}-\d{2}|\d{1,2}[A-Za-z]{3}\d{2,4})`
)

const (
	hdfcSender      = `HDFCBK|HDFCBN`
	iciciSender     = `ICICI`
	sbiSender       = `SBI`
	axisSender      = `AXIS`
	kotakSender     = `KOTAK`
	paytmSender     = `PAYTM|PYTM`
	phonePeSender   = `PHON?PE`
	googlePaySender = `GPAY|GOOGPY|GOOGLE\s*PAY`
)

// DefaultPatterns returns the built-in institution patterns. IDs are stable so
// persisted overrides can replace them.
func DefaultPatterns() []model.MessagePattern {
	patterns := []model.MessagePattern{
		{
			ID:               "hdfc-card-debit",
			Institution:      InstitutionHDFC,
			SenderPattern:    hdfcSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(debited|spent|withdrawn)\b`,
			MerchantPattern:  `\bat\s+(.+?)(?:\s+on\s+\d|\.\s|\.?$)`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "hdfc-upi-debit",
			Institution:      InstitutionHDFC,
			SenderPattern:    hdfcSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(debited|sent)\b`,
			MerchantPattern:  `\bto\s+(?:VPA\s+)?(.+?)(?:\s*\(|\s+on\s+\d|\s+Ref\b|\.\s|\.?$)`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "hdfc-credit",
			Institution:      InstitutionHDFC,
			SenderPattern:    hdfcSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(credited|deposited|received)\b`,
			MerchantPattern:  `\bfrom\s+(?:VPA\s+)?(.+?)(?:\s*\(|\s+on\s+\d|\s+Ref\b|\.\s|\.?$)`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "hdfc-transfer",
			Institution:      InstitutionHDFC,
			SenderPattern:    hdfcSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(transferred)\b`,
			MerchantPattern:  `\bto\s+(.+?)(?:\s+on\s+\d|\s*\(|\s+Ref\b|\.\s|\.?$)`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "icici-upi-debit",
			Institution:      InstitutionICICI,
			SenderPattern:    iciciSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(debited)\b`,
			MerchantPattern:  `;\s*(.+?)\s+credited\b`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "icici-card-spend",
			Institution:      InstitutionICICI,
			SenderPattern:    iciciSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(spent)\b`,
			MerchantPattern:  `[A-Za-z]{3}-\d{2,4}\s+on\s+(.+?)(?:\.\s|\.?$)`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "icici-credit",
			Institution:      InstitutionICICI,
			SenderPattern:    iciciSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(credited)\b`,
			MerchantPattern:  `\bInfo:?\s*(.+?)(?:\.\s|\.?$)`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "sbi-upi-debit",
			Institution:      InstitutionSBI,
			SenderPattern:    sbiSender,
			AmountPattern:    `debited\s+by\s*(?:Rs\.?\s*)?([\d,]+(?:\.\d{1,2})?)`,
			DirectionPattern: `\b(debited)\b`,
			MerchantPattern:  `\btrf\s+to\s+(.+?)\s+Ref`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "sbi-credit",
			Institution:      InstitutionSBI,
			SenderPattern:    sbiSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(credit\s+by\s+transfer|credited)\b`,
			MerchantPattern:  `\d{2}\s+by\s+(.+?)(?:\.\s|\.?\s*Avl|-SBI|\.?$)`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "sbi-atm-withdrawal",
			Institution:      InstitutionSBI,
			SenderPattern:    sbiSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(withdrawn)\b`,
			MerchantPattern:  `\bat\s+(.+?)\s+from\b`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "axis-card-spend",
			Institution:      InstitutionAxis,
			SenderPattern:    axisSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(spent)\b`,
			MerchantPattern:  `\bat\s+(.+?)\s+on\s+\d`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "axis-upi",
			Institution:      InstitutionAxis,
			SenderPattern:    axisSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(debit|credit)\b`,
			MerchantPattern:  `UPI/P2[AM]/\d+/([^/\n]+?)(?:\s+Not you|\s*$)`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "kotak-upi-sent",
			Institution:      InstitutionKotak,
			SenderPattern:    kotakSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(sent)\b`,
			MerchantPattern:  `\bto\s+(.+?)\s+on\s+\d`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "kotak-upi-received",
			Institution:      InstitutionKotak,
			SenderPattern:    kotakSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(received)\b`,
			MerchantPattern:  `\bfrom\s+(.+?)\s+on\s+\d`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "paytm-paid",
			Institution:      InstitutionPaytm,
			SenderPattern:    paytmSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(paid)\b`,
			MerchantPattern:  `\bto\s+(.+?)\s+from\b`,
			DatePattern:      dateExpr,
			AccountPattern:   `\bfrom\s+(Paytm\s+(?:Balance|Wallet|Bank))`,
		},
		{
			ID:               "paytm-received",
			Institution:      InstitutionPaytm,
			SenderPattern:    paytmSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(received)\b`,
			MerchantPattern:  `\bfrom\s+(.+?)\s+in\s+your\b`,
			DatePattern:      dateExpr,
			AccountPattern:   `\bin\s+your\s+(Paytm\s+(?:Balance|Wallet|Bank))`,
		},
		{
			ID:               "phonepe-paid",
			Institution:      InstitutionPhonePe,
			SenderPattern:    phonePeSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(paid|sent)\b`,
			MerchantPattern:  `\bto\s+(.+?)\s+(?:via|using)\b`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "phonepe-received",
			Institution:      InstitutionPhonePe,
			SenderPattern:    phonePeSender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(received)\b`,
			MerchantPattern:  `\bfrom\s+(.+?)\s+(?:via|using|in)\b`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "gpay-paid",
			Institution:      InstitutionGooglePay,
			SenderPattern:    googlePaySender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(paid)\b`,
			MerchantPattern:  `\bto\s+(.+?)\s+(?:using|via|on)\b`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
		{
			ID:               "gpay-received",
			Institution:      InstitutionGooglePay,
			SenderPattern:    googlePaySender,
			AmountPattern:    currencyAmountExpr,
			DirectionPattern: `\b(sent\s+you|received)\b`,
			MerchantPattern:  `^(.+?)\s+sent\s+you\b`,
			DatePattern:      dateExpr,
			AccountPattern:   accountExpr,
		},
	}

	for i := range patterns {
		patterns[i].IsActive = true
	}
	return patterns
}

// Sample is a representative message for a built-in pattern.
type Sample struct {
	PatternID string
	Sender    string
	Body      string
}

// Samples returns one representative message per built-in pattern.
func Samples() []Sample {
	return []Sample{
		{"hdfc-card-debit", "VK-HDFCBK", "Rs.2500.00 debited from A/c no XXXX1234 at AMAZON INDIA on 15-01-2024 14:30:25"},
		{"hdfc-upi-debit", "AD-HDFCBK", "Rs.500.00 debited from a/c **1234 on 12-01-24 to VPA swiggy@icici (UPI Ref No 401234567890)"},
		{"hdfc-credit", "VM-HDFCBK", "Rs.50,000.00 credited to A/c XX1234 on 01-02-24 by NEFT from ACME CORP PVT LTD. Avl bal Rs.75,000.00"},
		{"hdfc-transfer", "VK-HDFCBK", "Rs 5,000.00 transferred from A/c XX1234 to A/c XX5678 on 03-02-24. Ref 123456"},
		{"icici-upi-debit", "JD-ICICIB", "ICICI Bank Acct XX123 debited for Rs 1,250.00 on 12-Jan-24; ZOMATO credited. UPI:401234567890. Call 18002662 for dispute."},
		{"icici-card-spend", "VM-ICICIB", "INR 2,000.00 spent using ICICI Bank Card XX4321 on 14-Jan-24 on MYNTRA. Avl Limit: INR 50,000.00."},
		{"icici-credit", "JD-ICICIT", "ICICI Bank Account XX123 credited:Rs. 15,000.00 on 05-Feb-24. Info NEFT-ACME CORP. Available Balance is Rs. 40,000.00."},
		{"sbi-upi-debit", "BZ-SBIUPI", "Dear UPI user A/C X1234 debited by 350.0 on date 15Jan24 trf to DOMINOS PIZZA Refno 401234567890. If not u? call 1800111109. -SBI"},
		{"sbi-credit", "BP-SBIINB", "Your A/C XXXXX1234 has a credit by Transfer of Rs 10,000.00 on 20/01/24 by RAHUL SHARMA. Avl Bal Rs 25,000.00-SBI"},
		{"sbi-atm-withdrawal", "AD-ATMSBI", "Dear Customer, Rs.2000 withdrawn at SBI ATM S1AN000123 from A/cX1234 on 18Jan24. Avl Bal Rs.8000"},
		{"axis-card-spend", "AX-AXISBK", "INR 899.00 spent on Axis Bank Card no. XX9876 at NETFLIX on 20-01-24 at 10:15:00 IST. Avl Limit: INR 49,101.00"},
		{"axis-upi", "VM-AXISBK", "Debit INR 500.00 A/c no. XX1234 22-01-24 11:20:33 UPI/P2M/401234567890/BIGBASKET Not you? SMS BLOCKUPI to 919951860002 Axis Bank"},
		{"kotak-upi-sent", "VM-KOTAKB", "Sent Rs.450.00 from Kotak Bank AC X5678 to uber@paytm on 24-01-24.UPI Ref 401234567890. Not you, https://kotak.com/fraud"},
		{"kotak-upi-received", "VM-KOTAKB", "Received Rs.1,000.00 in your Kotak Bank AC X5678 from rahul@okaxis on 25-01-24.UPI Ref:401234567890."},
		{"paytm-paid", "VK-iPaytm", "Paid Rs.120 to Chai Point from Paytm Balance on 12-01-24 10:32:11. Txn ID 34567890. Updated Balance: Rs 230"},
		{"paytm-received", "VK-iPaytm", "Received Rs.200 from Amit Kumar in your Paytm Wallet on 13-01-24. Txn ID 34567891"},
		{"phonepe-paid", "VM-PHONPE", "Paid Rs 300 to Rahul Sharma via PhonePe UPI from A/c XX4567 on 15-01-24. Txn ID T2401151234"},
		{"phonepe-received", "VM-PHONPE", "Received Rs 500 from Priya Nair via PhonePe in A/c XX4567 on 16-01-24. Txn ID T2401161234"},
		{"gpay-paid", "JM-GPAY", "You paid ₹250.00 to Swiggy using Google Pay from A/c XX7890 on 17-01-24. UPI transaction ID 401234567890"},
		{"gpay-received", "JM-GPAY", "Rahul Verma sent you ₹500.00 on Google Pay. Credited to A/c XX7890 on 18-01-24. UPI transaction ID 401234567891"},
	}
}
