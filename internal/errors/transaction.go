package errors

var (
	ErrTransactionNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
	}
	ErrDuplicateID = &DomainError{
		Kind:    KindValidation,
		Code:    "DUPLICATE_ID",
		Message: "record with this id already exists",
	}
	ErrRefundNotAllowed = &DomainError{
		Kind:    KindInvalidState,
		Code:    "REFUND_NOT_ALLOWED",
		Message: "only completed transactions can be refunded",
	}
	ErrRefundAmount = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_REFUND_AMOUNT",
		Message: "refund amount exceeds original amount",
	}
	ErrNotUnderReview = &DomainError{
		Kind:    KindInvalidState,
		Code:    "NOT_UNDER_REVIEW",
		Message: "transaction is not pending review",
	}
)
