package models

import "errors"

var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrEventNotActive          = errors.New("event not active")
	ErrWalletLimitReached      = errors.New("wallet limit reached")
	ErrBatchExceedsWalletLimit = errors.New("batch exceeds wallet limit")
	ErrPriceExceedsResaleLimit = errors.New("price exceeds resale limit")
	ErrAlreadyVerified         = errors.New("ticket already verified")
	ErrTicketAlreadyUsed       = errors.New("ticket already used")
	ErrInvalidRecipient        = errors.New("invalid recipient")
	ErrInvalidBatchSize        = errors.New("invalid batch size")
	ErrInvalidPercentage       = errors.New("invalid percentage")
	ErrNotFound                = errors.New("ticket not found")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrFestivalNotFound        = errors.New("festival not found")
	ErrNotListed               = errors.New("ticket not listed for sale")
	ErrInvalidPrice            = errors.New("invalid price")
	ErrInvalidRole             = errors.New("invalid role")
	ErrInvalidStatus           = errors.New("invalid event status")
	ErrInvalidArgument         = errors.New("invalid argument")
)
