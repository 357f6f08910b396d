// Package feedproto holds the wire messages of the renderer feed.
package feedproto

import "encoding/json"

// Version is the feed protocol version.
const Version = "0.1"

// Message types.
const (
	TypeSubscribe = "SUBSCRIBE"
	TypeDiscovery = "DISCOVERY"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// Client -> Server. First message on the feed WS connection; may be re-sent
// to change the push interval or position cap.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	IntervalMs      int    `json:"interval_ms,omitempty"`
	MaxPositions    int    `json:"max_positions,omitempty"`
}

// HTTP response for GET /v1/feed/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string   `json:"protocol_version"`
	RunID           string   `json:"run_id"`
	VolumeSize      int      `json:"volume_size"`
	Materials       []string `json:"materials"`
	ScanMode        string   `json:"scan_mode"`
}

// Status mirrors the engine status line.
type Status struct {
	RunID     string `json:"run_id"`
	Caves     int    `json:"caves"`
	Veins     int    `json:"veins"`
	CaveState string `json:"cave_state"`
	VeinState string `json:"vein_state"`
}

// Server -> Client. Full snapshot of both discovery sets, sent every
// subscribed interval. Cave positions are volume origins.
type DiscoveryMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Seq             uint64      `json:"seq"`
	Caves           [][3]int    `json:"caves"`
	Veins           []VeinState `json:"veins"`
	Status          Status      `json:"status"`
	// Truncated is set when either set was cut to the subscriber's cap.
	Truncated bool `json:"truncated,omitempty"`
}

type VeinState struct {
	Pos     [3]int `json:"pos"`
	Visible bool   `json:"visible"`
}
