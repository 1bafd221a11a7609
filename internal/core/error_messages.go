package core

// # Error Codes Reference
//
// Technical errors are mapped to user-facing messages with a code that can
// be quoted to support. Codes by category:
//
//	ART001 - Local file unreachable ("cannot access local file")
//	ART002 - Artifact not found ("artifact not found")
//	ART003 - Not a CSV artifact ("not a csv artifact")
//	RUN001 - Run ID missing from URL ("could not determine run id")
//	RUN002 - Run not found ("run not found")
//	CARD001 - Card expired or unknown ("card not found")
//	NET001 - Remote fetch failed ("failed to fetch csv")
//	NET002 - Connection refused ("connection refused")
//	NET003 - Timeout ("context deadline exceeded", "timeout")
//	FILE001 - File too large ("file too large")
//	FILE002 - No file selected ("no file selected")
//	LOAD001 - Too many loads ("too many concurrent loads")
//	RATE001 - Rate limited ("rate limit")
//	ERR000 - Anything else
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Artifact errors
	{
		pattern: strings.ToLower(LocalAccessPrefix),
		msg: UserMessage{
			Message: "The artifact's local file could not be read",
			Action:  `Click "Load File" to select the CSV file manually`,
			Code:    "ART001",
		},
	},
	{
		pattern: "artifact not found",
		msg: UserMessage{
			Message: "The artifact does not exist on this run",
			Action:  "Check the artifact name and run",
			Code:    "ART002",
		},
	},
	{
		pattern: "not a csv artifact",
		msg: UserMessage{
			Message: "The artifact is not a CSV file",
			Action:  "Only .csv artifacts can be loaded into a table",
			Code:    "ART003",
		},
	},

	// Run errors
	{
		pattern: "could not determine run id",
		msg: UserMessage{
			Message: "The run could not be identified from the page address",
			Action:  "Open the card from a run page (/runs/{id})",
			Code:    "RUN001",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "The run does not exist",
			Action:  "Verify the run ID is correct",
			Code:    "RUN002",
		},
	},
	{
		pattern: "card not found",
		msg: UserMessage{
			Message: "This card has expired",
			Action:  "Reload the run page",
			Code:    "CARD001",
		},
	},

	// Fetch errors
	{
		pattern: "failed to fetch csv",
		msg: UserMessage{
			Message: "The CSV could not be downloaded",
			Action:  "Open the file in a new tab to check it is reachable",
			Code:    "NET001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "The file server refused the connection",
			Action:  "Please try again in a few moments",
			Code:    "NET002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again or check your connection",
			Code:    "NET003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again or check your connection",
			Code:    "NET003",
		},
	},

	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file selected",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE002",
		},
	},

	// Capacity errors
	{
		pattern: "too many concurrent loads",
		msg: UserMessage{
			Message: "Too many files are loading right now",
			Action:  "Please wait a moment and try again",
			Code:    "LOAD001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error into a UserMessage.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: X). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
