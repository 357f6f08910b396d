package discovery

import "time"

type Kind string

const (
	KindCave Kind = "cave"
	KindVein Kind = "vein"
)

// Event records a newly discovered cave volume or vein seed.
type Event struct {
	Time     time.Time `json:"time"`
	RunID    string    `json:"run_id,omitempty"`
	Kind     Kind      `json:"kind"`
	Pos      [3]int    `json:"pos"`
	Material string    `json:"material,omitempty"`
	// Size is the connected air count for caves, the cluster size for veins.
	Size int `json:"size"`
}

type Sink interface {
	Record(Event) error
}

type SinkFunc func(Event) error

func (f SinkFunc) Record(e Event) error { return f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) error { return nil })
