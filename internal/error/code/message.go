package code

var codeMessageMap = map[int]string{
	// Common
	ErrSuccess:      "success",
	ErrUnknown:      "unknown error",
	ErrBind:         "invalid request parameters",
	ErrValidation:   "request validation failed",
	ErrTokenInvalid: "invalid authentication token",
	ErrForbidden:    "operation not permitted",

	// Guardian
	ErrGuardianNotFound:          "guardian not found",
	ErrGuardianAlreadyExist:      "guardian already registered",
	ErrGuardianPasswordIncorrect: "incorrect email or password",

	// Bracelet
	ErrBraceletNotFound:      "bracelet not found",
	ErrBraceletAlreadyExist:  "bracelet unique code already registered",
	ErrBraceletAlreadyPaired: "bracelet is already paired to another guardian",
	ErrBraceletNotInAlert:    "bracelet can only be reset from lost or emergency status",

	// Command
	ErrCommandNotFound:    "command not found",
	ErrCommandInvalidType: "unsupported command type",

	// Safety zone
	ErrZoneNotFound:       "safety zone not found",
	ErrZoneInvalidPolygon: "zone polygon must have at least 3 valid vertices",

	// Database
	ErrDatabase:       "database error",
	ErrRecordNotFound: "record not found",

	// Sharing
	ErrShareUnauthorized:  "you do not have permission to manage sharing for this bracelet",
	ErrAlreadyShared:      "bracelet already shared with this guardian",
	ErrSelfShare:          "cannot share a bracelet with yourself",
	ErrInvitationNotFound: "no pending invitation for this bracelet",
}

var codeStatusMap = map[int]int{
	// Common
	ErrSuccess:      StatusOK,
	ErrUnknown:      StatusInternalServerError,
	ErrBind:         StatusBadRequest,
	ErrValidation:   StatusUnprocessable,
	ErrTokenInvalid: StatusUnauthorized,
	ErrForbidden:    StatusForbidden,

	// Guardian
	ErrGuardianNotFound:          StatusNotFound,
	ErrGuardianAlreadyExist:      StatusBadRequest,
	ErrGuardianPasswordIncorrect: StatusUnauthorized,

	// Bracelet
	ErrBraceletNotFound:      StatusNotFound,
	ErrBraceletAlreadyExist:  StatusBadRequest,
	ErrBraceletAlreadyPaired: StatusUnprocessable,
	ErrBraceletNotInAlert:    StatusUnprocessable,

	// Command
	ErrCommandNotFound:    StatusNotFound,
	ErrCommandInvalidType: StatusUnprocessable,

	// Safety zone
	ErrZoneNotFound:       StatusNotFound,
	ErrZoneInvalidPolygon: StatusUnprocessable,

	// Database
	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,

	// Sharing
	ErrShareUnauthorized:  StatusForbidden,
	ErrAlreadyShared:      StatusUnprocessable,
	ErrSelfShare:          StatusUnprocessable,
	ErrInvitationNotFound: StatusNotFound,
}

// GetMessage returns the message associated with an error code
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return "unknown error"
}

// GetStatus returns the HTTP status associated with an error code
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}
