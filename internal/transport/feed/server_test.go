package feed

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voxelscan.ai/internal/feedproto"
	"voxelscan.ai/internal/scan/config"
	"voxelscan.ai/internal/scan/engine"
	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/worker"
)

type fakeSource struct {
	caves, veins []geom.Vec3i
	visible      map[geom.Vec3i]bool
}

func (f *fakeSource) RunID() string             { return "run-1" }
func (f *fakeSource) VolumeSize() int           { return 16 }
func (f *fakeSource) Materials() []string       { return []string{"iron_ore"} }
func (f *fakeSource) ScanMode() config.ScanMode { return config.ModeBoth }
func (f *fakeSource) Caves() []geom.Vec3i       { return append([]geom.Vec3i(nil), f.caves...) }
func (f *fakeSource) Veins() []geom.Vec3i       { return append([]geom.Vec3i(nil), f.veins...) }
func (f *fakeSource) Classify(p geom.Vec3i) engine.Visibility {
	if f.visible[p] {
		return engine.Visible
	}
	return engine.Occluded
}
func (f *fakeSource) Status() engine.Status {
	return engine.Status{RunID: "run-1", Caves: len(f.caves), Veins: len(f.veins), CaveState: worker.Sleeping, VeinState: worker.Scanning}
}

func newTestServer(t *testing.T) (*fakeSource, *httptest.Server) {
	t.Helper()
	src := &fakeSource{
		caves:   []geom.Vec3i{{X: 16, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 16}},
		veins:   []geom.Vec3i{{X: 2, Y: 3, Z: 4}, {X: 1, Y: 3, Z: 4}},
		visible: map[geom.Vec3i]bool{{X: 2, Y: 3, Z: 4}: true},
	}
	cfg := config.Defaults().Feed
	cfg.IntervalMs = 50
	ts := httptest.NewServer(NewServer(src, cfg, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return src, ts
}

func TestBootstrapAndStatus(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/feed/bootstrap")
	if err != nil {
		t.Fatalf("GET bootstrap: %v", err)
	}
	defer resp.Body.Close()
	var boot feedproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&boot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if boot.RunID != "run-1" || boot.VolumeSize != 16 || boot.ScanMode != "both" || boot.ProtocolVersion != feedproto.Version {
		t.Fatalf("bootstrap: got %+v", boot)
	}

	resp2, err := http.Get(ts.URL + "/v1/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp2.Body.Close()
	var st feedproto.Status
	if err := json.NewDecoder(resp2.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Caves != 3 || st.Veins != 2 || st.CaveState != "sleeping" || st.VeinState != "scanning" {
		t.Fatalf("status: got %+v", st)
	}

	post, err := http.Post(ts.URL+"/v1/status", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST status: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status: got %d", post.StatusCode)
	}
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readDiscovery(t *testing.T, conn *websocket.Conn) feedproto.DiscoveryMsg {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg feedproto.DiscoveryMsg
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != feedproto.TypeDiscovery {
		t.Fatalf("type: got %q", msg.Type)
	}
	return msg
}

func TestFeed_PushesSortedSnapshots(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)
	if err := conn.WriteJSON(feedproto.SubscribeMsg{Type: feedproto.TypeSubscribe, ProtocolVersion: feedproto.Version}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	first := readDiscovery(t, conn)
	if first.Seq != 1 || first.Truncated {
		t.Fatalf("first: seq %d truncated %v", first.Seq, first.Truncated)
	}
	want := [][3]int{{0, 0, 0}, {0, 0, 16}, {16, 0, 0}}
	if len(first.Caves) != len(want) {
		t.Fatalf("caves: got %v", first.Caves)
	}
	for i := range want {
		if first.Caves[i] != want[i] {
			t.Fatalf("caves[%d]: got %v want %v", i, first.Caves[i], want[i])
		}
	}
	if len(first.Veins) != 2 || first.Veins[0].Pos != [3]int{1, 3, 4} || first.Veins[0].Visible || !first.Veins[1].Visible {
		t.Fatalf("veins: got %+v", first.Veins)
	}
	if first.Status.RunID != "run-1" {
		t.Fatalf("status: got %+v", first.Status)
	}

	second := readDiscovery(t, conn)
	if second.Seq != 2 {
		t.Fatalf("second seq: got %d", second.Seq)
	}
}

func TestFeed_ResubscribeCapsPositions(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)
	_ = conn.WriteJSON(feedproto.SubscribeMsg{Type: feedproto.TypeSubscribe, ProtocolVersion: feedproto.Version, IntervalMs: 5000})
	readDiscovery(t, conn)

	_ = conn.WriteJSON(feedproto.SubscribeMsg{Type: feedproto.TypeSubscribe, ProtocolVersion: feedproto.Version, IntervalMs: 50, MaxPositions: 1})
	msg := readDiscovery(t, conn)
	if !msg.Truncated || len(msg.Caves) != 1 || len(msg.Veins) != 1 {
		t.Fatalf("capped snapshot: got %+v", msg)
	}
	if msg.Caves[0] != [3]int{0, 0, 0} {
		t.Fatalf("cap should keep the lowest position, got %v", msg.Caves[0])
	}
}

func TestFeed_RejectsBadHandshake(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)
	_ = conn.WriteJSON(map[string]string{"type": "HELLO", "protocol_version": feedproto.Version})

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	if err == nil {
		t.Fatalf("expected the server to close the connection")
	}
	if errors.As(err, &ce) && ce.Code != websocket.ClosePolicyViolation {
		t.Fatalf("close code: got %d", ce.Code)
	}
}

func TestNormalizeSubscribe(t *testing.T) {
	s := NewServer(&fakeSource{}, config.Feed{IntervalMs: 500, MaxPositions: 100}, zerolog.Nop())
	got := s.normalizeSubscribe(feedproto.SubscribeMsg{})
	if got.interval != 500*time.Millisecond || got.max != 100 {
		t.Fatalf("defaults: got %+v", got)
	}
	got = s.normalizeSubscribe(feedproto.SubscribeMsg{IntervalMs: 1, MaxPositions: 10_000_000})
	if got.interval != minInterval || got.max != maxPositionsCap {
		t.Fatalf("clamped: got %+v", got)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.3:5000":  false,
		"garbage":        false,
	} {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("%s: got %v want %v", addr, got, want)
		}
	}
}
