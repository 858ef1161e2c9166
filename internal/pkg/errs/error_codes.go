/*
Package errs provides custom error types and application-level error code constants.

Codes identify validation, conversation, session, transport and internal failures
so that the command line can show a short, user-facing notification for each of them.
*/
package errs

// 1xxx: Request and Validation Errors
const (
	// ErrInvalidParams indicates that input validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that a response body could not be decoded.
	ErrInvalidJSONFormat = 1003

	// ErrRequestEntityTooLarge indicates that an upload exceeded the allowed size.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that a submission arrived before the minimum interval elapsed.
	ErrRateLimitExceeded = 1007

	// ErrEmptyMessage indicates a submission with neither text nor attachment.
	ErrEmptyMessage = 1008
)

// 2xxx: Conversation and Content Errors
const (
	// ErrConversationClosed indicates an operation on a conversation view that was already torn down.
	ErrConversationClosed = 2101

	// ErrPeerNotFound indicates that the requested contact does not exist.
	ErrPeerNotFound = 2103

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length.
	ErrMessageContentTooLong = 2201

	// ErrFileSizeTooLarge indicates that an attachment exceeded the size limit.
	ErrFileSizeTooLarge = 2202

	// ErrFileTypeInvalid indicates that an attachment is not a supported image.
	ErrFileTypeInvalid = 2203

	// ErrMessageSendFailed indicates that the persistence API rejected or failed a submission.
	ErrMessageSendFailed = 2301

	// ErrHistoryFetchFailed indicates that conversation history could not be loaded.
	ErrHistoryFetchFailed = 2302
)

// 3xxx: Session and Transport Errors
const (
	// ErrNotSignedIn indicates that no session is stored.
	ErrNotSignedIn = 3001

	// ErrSessionExpired indicates that the stored session token has expired.
	ErrSessionExpired = 3002

	// ErrRegistrationFailed indicates that the register-or-login call was rejected.
	ErrRegistrationFailed = 3003

	// ErrDisconnected indicates that the push-event channel is not connected.
	ErrDisconnected = 3004

	// ErrUnauthorized indicates that the API refused the credentials.
	ErrUnauthorized = 3005
)

// 5xxx: Internal Errors
const (
	// ErrUnknown represents an unclassified failure.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates that an upload to the storage backend failed.
	ErrFileStorageFailed = 5001

	// ErrServiceUnavailable indicates a transport-level failure talking to the API.
	ErrServiceUnavailable = 5002
)
