package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("record not found")

	ErrDuplicate = errors.New("record violates a unique constraint")

	// ErrDuplicatePhone is an ErrDuplicate raised by the member phone index.
	ErrDuplicatePhone = fmt.Errorf("%w: phone", ErrDuplicate)

	ErrLockOutsideTx = errors.New("exclusive read requires a transaction")
)
