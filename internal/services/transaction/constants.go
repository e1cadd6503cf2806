package transaction

// Transaction id prefixes.
const (
	PrefixPayment = "TXN"
	PrefixRefund  = "REFUND"
	PrefixOffline = "OFFLINE"
	PrefixQR      = "QRPAY"
)

// Refund types recorded on refund transactions.
const (
	RefundFull    = "full"
	RefundPartial = "partial"

	// ReasonOriginalNotUpdated fails a refund whose original could not be
	// moved to refunded.
	ReasonOriginalNotUpdated = "original_not_updated"
)

// Cache keys
const (
	TransactionCachePrefix = "transaction:"
)

// DefaultCurrencies are the ISO codes the switch accepts.
var DefaultCurrencies = []string{"MYR", "USD", "SGD", "EUR", "GBP", "THB", "IDR"}
