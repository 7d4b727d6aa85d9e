package code

// HTTP status codes.
const (
	// StatusOK - 200: success.
	StatusOK = 200
	// StatusBadRequest - 400: malformed request.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: authentication required.
	StatusUnauthorized = 401
	// StatusForbidden - 403: missing capability.
	StatusForbidden = 403
	// StatusNotFound - 404: resource not found.
	StatusNotFound = 404
	// StatusUnprocessable - 422: validation failure.
	StatusUnprocessable = 422
	// StatusInternalServerError - 500: internal error.
	StatusInternalServerError = 500
)

// Common error codes (100xxx).
const (
	// ErrSuccess - 200: success.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: unknown error.
	ErrUnknown
	// ErrBind - 400: request binding error.
	ErrBind
	// ErrValidation - 422: request validation error.
	ErrValidation
	// ErrTokenInvalid - 401: invalid token.
	ErrTokenInvalid
	// ErrForbidden - 403: operation not permitted.
	ErrForbidden
)

// Guardian error codes (101xxx).
const (
	// ErrGuardianNotFound - 404: guardian does not exist.
	ErrGuardianNotFound int = iota + 101000
	// ErrGuardianAlreadyExist - 400: guardian already registered.
	ErrGuardianAlreadyExist
	// ErrGuardianPasswordIncorrect - 401: wrong credentials.
	ErrGuardianPasswordIncorrect
)

// Bracelet error codes (102xxx).
const (
	// ErrBraceletNotFound - 404: bracelet does not exist.
	ErrBraceletNotFound int = iota + 102000
	// ErrBraceletAlreadyExist - 400: unique code already registered.
	ErrBraceletAlreadyExist
	// ErrBraceletAlreadyPaired - 422: bracelet paired to another guardian.
	ErrBraceletAlreadyPaired
	// ErrBraceletNotInAlert - 422: bracelet is not in lost or emergency status.
	ErrBraceletNotInAlert
)

// Command error codes (103xxx).
const (
	// ErrCommandNotFound - 404: command does not exist.
	ErrCommandNotFound int = iota + 103000
	// ErrCommandInvalidType - 422: unsupported command type.
	ErrCommandInvalidType
)

// Safety zone error codes (104xxx).
const (
	// ErrZoneNotFound - 404: zone does not exist.
	ErrZoneNotFound int = iota + 104000
	// ErrZoneInvalidPolygon - 422: polygon has fewer than 3 vertices or out-of-range coordinates.
	ErrZoneInvalidPolygon
)

// Database error codes (105xxx).
const (
	// ErrDatabase - 500: database error.
	ErrDatabase int = iota + 105000
	// ErrRecordNotFound - 404: record not found.
	ErrRecordNotFound
)

// Sharing error codes (106xxx).
const (
	// ErrShareUnauthorized - 403: caller lacks the capability for this bracelet.
	ErrShareUnauthorized int = iota + 106000
	// ErrAlreadyShared - 422: bracelet already shared with this guardian.
	ErrAlreadyShared
	// ErrSelfShare - 422: cannot share a bracelet with yourself.
	ErrSelfShare
	// ErrInvitationNotFound - 404: no pending invitation.
	ErrInvitationNotFound
)
