package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Packages ──────────────────────────────────────────────────────
	ErrDecryptionFailed     ErrCode = "DECRYPTION_FAILED"
	ErrInvalidPackageFormat ErrCode = "INVALID_PACKAGE_FORMAT"
	ErrPackageTooLarge      ErrCode = "PACKAGE_TOO_LARGE"
	ErrFileRequired         ErrCode = "FILE_REQUIRED"

	// ─── Attempts ──────────────────────────────────────────────────────
	ErrAttemptNotFound  ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptSubmitted ErrCode = "ATTEMPT_ALREADY_SUBMITTED"
	ErrAttemptActive    ErrCode = "ATTEMPT_ALREADY_ACTIVE"
	ErrPackageNotOpen   ErrCode = "PACKAGE_NOT_OPEN"
	ErrQuestionNotFound ErrCode = "QUESTION_NOT_FOUND"
	ErrIndexOutOfRange  ErrCode = "QUESTION_INDEX_OUT_OF_RANGE"

	// ─── Persistence ───────────────────────────────────────────────────
	ErrPersistenceFailure ErrCode = "PERSISTENCE_FAILURE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Packages ──────────────────────────────────────────────────────
	case ErrDecryptionFailed:
		// AEAD cannot distinguish a wrong password from corrupted data;
		// "incorrect password" is the best guess shown to users.
		return "Incorrect password, or the package is corrupted."
	case ErrInvalidPackageFormat:
		return "This file is not a valid test package."
	case ErrPackageTooLarge:
		return "The package exceeds the size limit."
	case ErrFileRequired:
		return "A package file upload is required."

	// ─── Attempts ──────────────────────────────────────────────────────
	case ErrAttemptNotFound:
		return "Attempt not found."
	case ErrAttemptSubmitted:
		return "This attempt has already been submitted."
	case ErrAttemptActive:
		return "Another attempt is already in progress."
	case ErrPackageNotOpen:
		return "The package is not open. Unseal it again to start an attempt."
	case ErrQuestionNotFound:
		return "Question not found in this test."
	case ErrIndexOutOfRange:
		return "Question index is out of range."

	// ─── Persistence ───────────────────────────────────────────────────
	case ErrPersistenceFailure:
		return "Saving your result failed. Your attempt was not recorded."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
