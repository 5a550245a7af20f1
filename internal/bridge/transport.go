package bridge

// Transport moves intents out and events in. Implementations must keep
// the Events channel open for the life of the connection and close it on
// shutdown; Send must not block on the UI.
type Transport interface {
	Send(intent Intent) error
	Events() <-chan Event
	Close() error
}
