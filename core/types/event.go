package types

// Event is the broadcastable record of a ledger state change. The staking
// module renders its typed payloads into this flat shape for the node's
// event feed; attribute values are decimal strings and bech32 addresses.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
