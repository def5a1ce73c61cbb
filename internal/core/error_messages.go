package core

// error_messages.go maps technical errors to coded, user-friendly messages.
//
// Codes are quoted by operators when a submitter reports a failure:
//
//	SUB001 - Duplicate submission (unique email already on file)
//	SUB002 - Invalid submission (missing field or malformed email)
//	DB004  - Record store unreachable
//	DB005  - Record store connection interrupted
//	DB006  - Record store timeout
//	MAIL001 - Confirmation email could not be delivered
//	MAIL002 - Mail provider rejected the request
//	RPT001 - Unknown collection
//	RPT002 - Collection is empty
//	ERR000 - Unknown error; check the logs for the request ID

import (
	"errors"
	"strings"

	"github.com/JonMunkholm/intake/internal/notify"
)

// UserMessage provides user-friendly error information with a support code.
type UserMessage struct {
	Message string
	Code    string
}

// sentinelMessages are checked with errors.Is before any text matching.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrDuplicate, UserMessage{"A submission with this email already exists", "SUB001"}},
	{ErrUnknownCollection, UserMessage{"Unknown collection", "RPT001"}},
	{ErrNoRecords, UserMessage{"No records found", "RPT002"}},
	{notify.ErrDispatch, UserMessage{"Confirmation email could not be delivered", "MAIL001"}},
}

// errorPatterns map technical error text (case-insensitive) to user messages.
// The first matching pattern wins.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"duplicate key", UserMessage{"A submission with this email already exists", "SUB001"}},
	{"unique constraint", UserMessage{"A submission with this email already exists", "SUB001"}},
	{"connection refused", UserMessage{"Unable to reach the record store", "DB004"}},
	{"connection reset", UserMessage{"Record store connection was interrupted", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "DB006"}},
	{"context deadline exceeded", UserMessage{"Operation timed out", "DB006"}},
	{"550", UserMessage{"Mail provider rejected the request", "MAIL002"}},
	{"401", UserMessage{"Mail provider rejected the request", "MAIL002"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if _, ok := IsValidation(err); ok {
		return UserMessage{Message: "Some required fields are missing or invalid", Code: "SUB002"}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}
