package errors

var (
	ErrQRNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "QR_NOT_FOUND",
		Message: "QR code not found",
	}
	ErrQRInactive = &DomainError{
		Kind:    KindInvalidState,
		Code:    "QR_INACTIVE",
		Message: "QR code is not active",
	}
	ErrQRExpired = &DomainError{
		Kind:    KindInvalidState,
		Code:    "QR_EXPIRED",
		Message: "QR code has expired",
	}
	ErrQRNotScanned = &DomainError{
		Kind:    KindInvalidState,
		Code:    "QR_NOT_SCANNED",
		Message: "QR code must be scanned before payment",
	}
	ErrQRConsumed = &DomainError{
		Kind:    KindInvalidState,
		Code:    "QR_CONSUMED",
		Message: "QR code already used for a payment",
	}
	ErrInvalidQR = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_QR",
		Message: "invalid QR code request",
	}
	ErrRoutingUnsupported = &DomainError{
		Kind:    KindValidation,
		Code:    "ROUTING_UNSUPPORTED",
		Message: "no route between QR type and scanner wallet",
	}
)
