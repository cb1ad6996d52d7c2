package shared

import "errors"

// Kind classifies a domain error so transports can map it to a status code or error event
type Kind int

const (
	KindDependency Kind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindForbidden
	KindConflict
	KindInsufficientFunds
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInsufficientFunds:
		return "insufficient_funds"
	default:
		return "dependency_failure"
	}
}

// Error is a domain error with a kind
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of a domain error, anything else is a dependency failure
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindDependency
}

// Domain-specific errors
var (
	// Auction errors
	ErrAuctionNotFound      = newError(KindNotFound, "auction not found")
	ErrAuctionNotActive     = newError(KindInvalidState, "auction is not active")
	ErrAuctionExpired       = newError(KindInvalidState, "auction has ended")
	ErrAuctionNotExpired    = newError(KindInvalidState, "auction end time has not passed yet")
	ErrNotSeller            = newError(KindForbidden, "only the seller can end the auction")
	ErrMemeAlreadyInAuction = newError(KindConflict, "this meme is already in an active auction")
	ErrInvalidStartingBid   = newError(KindValidation, "starting bid must be a positive amount with at most 2 decimal places")
	ErrInvalidDuration      = newError(KindValidation, "duration must be a positive number of minutes")
	ErrOwnershipChanged     = newError(KindConflict, "meme is no longer owned by the seller")

	// Bid errors
	ErrBidTooLow         = newError(KindConflict, "bid must be higher than current highest bid")
	ErrBidAmountInvalid  = newError(KindValidation, "bid amount must be positive with at most 2 decimal places")
	ErrSelfBid           = newError(KindForbidden, "you cannot bid on your own auction")
	ErrInsufficientFunds = newError(KindInsufficientFunds, "insufficient wallet balance")

	// User errors
	ErrUserNotFound = newError(KindNotFound, "user not found")

	// Meme errors
	ErrMemeNotFound = newError(KindNotFound, "meme not found")
	ErrNotMemeOwner = newError(KindForbidden, "you do not own this meme")
	ErrInvalidSort  = newError(KindValidation, "sort must be one of created_at, upvotes, downvotes, title")
	ErrInvalidOrder = newError(KindValidation, "order must be asc or desc")

	// Vote errors
	ErrInvalidVoteType = newError(KindValidation, "invalid vote type")
	ErrVoteNotFound    = newError(KindNotFound, "vote not found")
	// ErrVoteConflict means the stored vote changed between read and write
	ErrVoteConflict = newError(KindConflict, "vote changed concurrently")

	// Competition errors
	ErrCompetitionNotFound   = newError(KindNotFound, "competition not found")
	ErrCompetitionNotActive  = newError(KindInvalidState, "competition is not accepting votes")
	ErrCompetitionFinished   = newError(KindInvalidState, "competition already finished")
	ErrNotParticipant        = newError(KindForbidden, "you are not a participant of this competition")
	ErrAlreadyInCompetition  = newError(KindInvalidState, "you are already in a competition")
	ErrCompetitionIDRequired = newError(KindValidation, "room_id is required")

	// Validation errors
	ErrInvalidRequest = newError(KindValidation, "invalid request")
	ErrUnauthorized   = newError(KindForbidden, "authentication required")

	// WebSocket message validation errors
	ErrMessageTypeRequired = newError(KindValidation, "message type is required")
	ErrAuctionIDRequired   = newError(KindValidation, "auction_id is required")
	ErrMemeIDRequired      = newError(KindValidation, "meme_id is required")
	ErrUnknownMessageType  = newError(KindValidation, "unknown message type")

	// WebSocket handler specific errors
	ErrClientEventChannelNotFound = errors.New("client event channel not found")
)
