package service

import "errors"

var (
	// Not found
	ErrDraftNotFound    = errors.New("draft not found")
	ErrStreamNotFound   = errors.New("stream not found")
	ErrLinkNotFound     = errors.New("short link not found")
	ErrDeliveryNotFound = errors.New("delivery not found")
	ErrOwnerNotFound    = errors.New("owner not found")

	// Policy denied
	ErrRedirectNotAllowed = errors.New("redirect target is not allowed")
	ErrQuotaExceeded      = errors.New("monthly post quota exceeded")

	// Conflict
	ErrPlatformUserClaimed = errors.New("platform user id is already bound")

	// Validation
	ErrInvalidAction       = errors.New("invalid draft action")
	ErrEditedBodyRequired  = errors.New("edited body is required for post_with_edits")
	ErrInvalidTargetURL    = errors.New("invalid target url")
	ErrInvalidGraceSeconds = errors.New("grace seconds must be between 30 and 300")

	// Capacity
	ErrShortCodeExhausted = errors.New("short code space exhausted after retries")
)
