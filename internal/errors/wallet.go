package errors

var (
	ErrInvalidAmount = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
	}
	ErrUnsupportedCurrency = &DomainError{
		Kind:    KindValidation,
		Code:    "UNSUPPORTED_CURRENCY",
		Message: "unsupported currency",
	}
	ErrWalletNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrBalanceTooLow = &DomainError{
		Kind:    KindInsufficientBalance,
		Code:    "INSUFFICIENT_BALANCE",
		Message: "insufficient wallet balance",
	}
)
