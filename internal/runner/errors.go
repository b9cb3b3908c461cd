package runner

import "fmt"

// Kind is the closed taxonomy of run failures. Expected outcomes travel as
// structured results carrying a Kind, not as thrown errors; only a broken
// store escapes the runner as a plain error.
type Kind string

const (
	KindSourceUnavailable       Kind = "source_unavailable" // absorbed, never surfaced
	KindCampaignNotEligible     Kind = "campaign_not_eligible"
	KindProfileIncomplete       Kind = "profile_incomplete"
	KindContentGenerationFailed Kind = "content_generation_failed" // absorbed to fallback
	KindDispatchFailed          Kind = "dispatch_failed"
	KindPersistenceFailed       Kind = "persistence_failed"
)

// Error tags a message with its kind so handlers and tests can match on it
// uniformly instead of parsing strings.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
