package errors

var (
	ErrTokenNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "TOKEN_NOT_FOUND",
		Message: "offline token not found",
	}
	ErrTokenInactive = &DomainError{
		Kind:    KindInvalidState,
		Code:    "TOKEN_INACTIVE",
		Message: "offline token is not active",
	}
	ErrTokenExpired = &DomainError{
		Kind:    KindInvalidState,
		Code:    "TOKEN_EXPIRED",
		Message: "offline token has expired",
	}
	ErrTokenRedeemed = &DomainError{
		Kind:    KindInvalidState,
		Code:    "TOKEN_REDEEMED",
		Message: "offline token already redeemed",
	}
	ErrTokenSignature = &DomainError{
		Kind:    KindInvalidState,
		Code:    "TOKEN_SIGNATURE_INVALID",
		Message: "offline token signature does not match",
	}
	ErrTokenLimit = &DomainError{
		Kind:    KindValidation,
		Code:    "TOKEN_LIMIT_EXCEEDED",
		Message: "too many active offline tokens",
	}
	ErrTokenOwner = &DomainError{
		Kind:    KindValidation,
		Code:    "TOKEN_OWNER_MISMATCH",
		Message: "offline token belongs to another user",
	}
)
