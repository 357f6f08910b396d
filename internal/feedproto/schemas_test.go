package feedproto_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelscan.ai/internal/feedproto"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// asJSON round-trips v through encoding/json so the schema sees exactly what
// goes on the wire.
func asJSON(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestSchemas_ValidateMessages(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(asJSON(t, v)); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	validate(compile(t, "subscribe.schema.json"), feedproto.SubscribeMsg{
		Type:            feedproto.TypeSubscribe,
		ProtocolVersion: feedproto.Version,
		IntervalMs:      250,
		MaxPositions:    1000,
	})

	validate(compile(t, "bootstrap.schema.json"), feedproto.BootstrapResponse{
		ProtocolVersion: feedproto.Version,
		RunID:           "0b8f6a0e-8a8e-4a4b-9d55-6a3c1f0f2b11",
		VolumeSize:      16,
		Materials:       []string{"diamond_ore", "iron_ore"},
		ScanMode:        "both",
	})

	st := feedproto.Status{RunID: "r1", Caves: 2, Veins: 1, CaveState: "sleeping", VeinState: "scanning"}
	validate(compile(t, "status.schema.json"), st)

	disc := compile(t, "discovery.schema.json")
	validate(disc, feedproto.DiscoveryMsg{
		Type:            feedproto.TypeDiscovery,
		ProtocolVersion: feedproto.Version,
		Seq:             7,
		Caves:           [][3]int{{0, -32, 16}, {16, -32, 16}},
		Veins:           []feedproto.VeinState{{Pos: [3]int{3, -40, 20}, Visible: true}},
		Status:          st,
		Truncated:       true,
	})
	// An idle engine has no sets at all.
	validate(disc, feedproto.DiscoveryMsg{
		Type:            feedproto.TypeDiscovery,
		ProtocolVersion: feedproto.Version,
		Status:          feedproto.Status{CaveState: "idle", VeinState: "idle"},
	})
}

func TestSchemas_RejectMalformed(t *testing.T) {
	disc := compile(t, "discovery.schema.json")
	var bad any
	_ = json.Unmarshal([]byte(`{
	  "type":"DISCOVERY",
	  "protocol_version":"0.1",
	  "seq":1,
	  "caves":[[0,0]],
	  "veins":[],
	  "status":{"run_id":"","caves":0,"veins":0,"cave_state":"idle","vein_state":"idle"}
	}`), &bad)
	if err := disc.Validate(bad); err == nil {
		t.Fatalf("two-element cave position accepted")
	}

	boot := compile(t, "bootstrap.schema.json")
	var badBoot any
	_ = json.Unmarshal([]byte(`{
	  "protocol_version":"0.1",
	  "run_id":"r",
	  "volume_size":16,
	  "materials":[],
	  "scan_mode":"everything"
	}`), &badBoot)
	if err := boot.Validate(badBoot); err == nil {
		t.Fatalf("unknown scan mode accepted")
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := feedproto.DecodeBase([]byte(`{"type":"SUBSCRIBE","protocol_version":"0.1","interval_ms":100}`))
	if err != nil {
		t.Fatalf("DecodeBase: %v", err)
	}
	if m.Type != feedproto.TypeSubscribe || m.ProtocolVersion != feedproto.Version {
		t.Fatalf("got %+v", m)
	}
	if _, err := feedproto.DecodeBase([]byte(`{`)); err == nil {
		t.Fatalf("truncated JSON accepted")
	}
}
