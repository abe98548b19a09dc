package types

// Event represents a typed event emitted by the outbox so downstream
// consumers (attestors, relayers, indexers) can react to state changes.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
