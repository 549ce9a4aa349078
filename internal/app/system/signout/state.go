package signout

// State is a stage of a logout attempt.
type State string

const (
	StateIdle             State = "idle"
	StateRevoking         State = "revoking"
	StateFetchingSettings State = "fetching_settings"
	StateRedirecting      State = "redirecting"
	StateCleanupWritten   State = "cleanup_written"
	StateErrorReported    State = "error_reported"
)

// Observer receives every state a logout attempt enters, in order.
type Observer interface {
	Observe(State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(State)

func (f ObserverFunc) Observe(s State) { f(s) }
