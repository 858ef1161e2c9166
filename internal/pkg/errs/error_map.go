package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: Request and Validation Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Please fill all the fields.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unexpected response from server."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "You're sending messages too fast. Please wait a moment.", Status: http.StatusTooManyRequests},
	ErrEmptyMessage:          {Code: ErrEmptyMessage, Message: "Please enter a message or upload a file."},

	// 2xxx: Conversation and Content Errors
	ErrConversationClosed:    {Code: ErrConversationClosed, Message: "This chat was closed."},
	ErrPeerNotFound:          {Code: ErrPeerNotFound, Message: "User %q not found.", Status: http.StatusNotFound},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File is too large (max %d MB)."},
	ErrFileTypeInvalid:       {Code: ErrFileTypeInvalid, Message: "Please upload an image file (jpg, jpeg, png, gif, webp)."},
	ErrMessageSendFailed:     {Code: ErrMessageSendFailed, Message: "Error sending message: %s"},
	ErrHistoryFetchFailed:    {Code: ErrHistoryFetchFailed, Message: "Error fetching messages: %s"},

	// 3xxx: Session and Transport Errors
	ErrNotSignedIn:        {Code: ErrNotSignedIn, Message: "Please register or sign in first.", Status: http.StatusUnauthorized},
	ErrSessionExpired:     {Code: ErrSessionExpired, Message: "Your session has expired. Please sign in again.", Status: http.StatusUnauthorized},
	ErrRegistrationFailed: {Code: ErrRegistrationFailed, Message: "%s"},
	ErrDisconnected:       {Code: ErrDisconnected, Message: "Not connected. Waiting for the connection to come back."},
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	// 5xxx: Internal Errors
	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed:  {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again."},
	ErrServiceUnavailable: {Code: ErrServiceUnavailable, Message: "Chat service is unreachable. Please try again later.", Status: http.StatusServiceUnavailable},
}
