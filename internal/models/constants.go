package models

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// DisplayDateLayout is how dates are shown to people.
	DisplayDateLayout = "02.01.2006"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

// Cancellation scopes accepted by order cancellation.
const (
	ScopeToday  = "today"
	ScopeFuture = "future"
	ScopeAll    = "all"
)

func ValidScope(scope string) bool {
	switch scope {
	case ScopeToday, ScopeFuture, ScopeAll:
		return true
	}
	return false
}
