package service

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify with errors.Is; anything else is an internal failure.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	ErrInvalidCouponValue = fmt.Errorf("%w: coupon value must be positive", ErrInvalidInput)
	ErrCouponCodeRequired = fmt.Errorf("%w: coupon code is required", ErrInvalidInput)
	ErrInvalidVideoType   = fmt.Errorf("%w: video_type must be regular or cartoon", ErrInvalidInput)
	ErrInvalidStatus      = fmt.Errorf("%w: status must be success or failed", ErrInvalidInput)

	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)
	ErrCouponNotFound = fmt.Errorf("coupon %w", ErrNotFound)

	ErrCouponAlreadyUsed = fmt.Errorf("%w: coupon already used", ErrConflict)
)
