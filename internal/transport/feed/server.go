// Package feed serves discovery snapshots to an external renderer over HTTP
// and WebSocket. Only loopback clients are accepted.
package feed

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voxelscan.ai/internal/feedproto"
	"voxelscan.ai/internal/scan/config"
	"voxelscan.ai/internal/scan/engine"
	"voxelscan.ai/internal/scan/geom"
)

// Source is the read side of the scan engine the feed needs.
type Source interface {
	RunID() string
	VolumeSize() int
	Materials() []string
	ScanMode() config.ScanMode
	Caves() []geom.Vec3i
	Veins() []geom.Vec3i
	Classify(p geom.Vec3i) engine.Visibility
	Status() engine.Status
}

const (
	minInterval     = 50 * time.Millisecond
	maxInterval     = 10 * time.Second
	maxPositionsCap = 200_000
)

type Server struct {
	src Source
	log zerolog.Logger
	cfg config.Feed

	upgrader websocket.Upgrader
	sessions atomic.Int64
}

func NewServer(src Source, cfg config.Feed, logger zerolog.Logger) *Server {
	return &Server{
		src: src,
		log: logger.With().Str("component", "feed").Logger(),
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only anyway
		},
	}
}

// Handler routes the feed endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/feed/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/v1/status", s.StatusHandler())
	mux.HandleFunc("/v1/feed", s.WSHandler())
	return mux
}

// Run serves Handler on cfg.Listen until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	s.log.Info().Str("addr", s.cfg.Listen).Msg("feed listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.admit(rw, r) {
			return
		}
		resp := feedproto.BootstrapResponse{
			ProtocolVersion: feedproto.Version,
			RunID:           s.src.RunID(),
			VolumeSize:      s.src.VolumeSize(),
			Materials:       s.src.Materials(),
			ScanMode:        string(s.src.ScanMode()),
		}
		writeJSON(rw, resp)
	}
}

func (s *Server) StatusHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.admit(rw, r) {
			return
		}
		writeJSON(rw, statusOf(s.src.Status()))
	}
}

func (s *Server) admit(rw http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}

type subscription struct {
	interval time.Duration
	max      int
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := s.parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		log := s.log.With().Str("remote", r.RemoteAddr).Logger()
		log.Debug().Int64("sessions", s.sessions.Add(1)).Dur("interval", sub.interval).Msg("feed subscriber joined")
		defer func() {
			log.Debug().Int64("sessions", s.sessions.Add(-1)).Msg("feed subscriber left")
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		updates := make(chan subscription, 1)
		writeErr := make(chan error, 1)
		go func() {
			writeErr <- s.push(ctx, conn, sub, updates)
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			next, ok := s.parseSubscribe(msg)
			if !ok {
				continue
			}
			select {
			case updates <- next:
			default:
				// Drop updates under load; the client may resend.
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// push sends a snapshot immediately and then every interval.
func (s *Server) push(ctx context.Context, conn *websocket.Conn, sub subscription, updates <-chan subscription) error {
	var seq uint64
	ticker := time.NewTicker(sub.interval)
	defer ticker.Stop()
	for {
		seq++
		b, err := json.Marshal(s.Snapshot(seq, sub.max))
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub = <-updates:
			ticker.Reset(sub.interval)
		case <-ticker.C:
		}
	}
}

// Snapshot builds one DISCOVERY message holding at most limit positions per
// set, sorted so consecutive snapshots diff cleanly.
func (s *Server) Snapshot(seq uint64, limit int) feedproto.DiscoveryMsg {
	caves := s.src.Caves()
	veins := s.src.Veins()
	slices.SortFunc(caves, compareVec)
	slices.SortFunc(veins, compareVec)

	msg := feedproto.DiscoveryMsg{
		Type:            feedproto.TypeDiscovery,
		ProtocolVersion: feedproto.Version,
		Seq:             seq,
		Status:          statusOf(s.src.Status()),
	}
	if len(caves) > limit {
		caves, msg.Truncated = caves[:limit], true
	}
	if len(veins) > limit {
		veins, msg.Truncated = veins[:limit], true
	}
	msg.Caves = make([][3]int, 0, len(caves))
	for _, p := range caves {
		msg.Caves = append(msg.Caves, p.Array())
	}
	msg.Veins = make([]feedproto.VeinState, 0, len(veins))
	for _, p := range veins {
		msg.Veins = append(msg.Veins, feedproto.VeinState{Pos: p.Array(), Visible: s.src.Classify(p) == engine.Visible})
	}
	return msg
}

func compareVec(a, b geom.Vec3i) int {
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.Z, b.Z)
}

func statusOf(st engine.Status) feedproto.Status {
	return feedproto.Status{
		RunID:     st.RunID,
		Caves:     st.Caves,
		Veins:     st.Veins,
		CaveState: st.CaveState.String(),
		VeinState: st.VeinState.String(),
	}
}

func (s *Server) parseSubscribe(msg []byte) (subscription, bool) {
	var m feedproto.SubscribeMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return subscription{}, false
	}
	if m.Type != feedproto.TypeSubscribe || m.ProtocolVersion != feedproto.Version {
		return subscription{}, false
	}
	return s.normalizeSubscribe(m), true
}

func (s *Server) normalizeSubscribe(m feedproto.SubscribeMsg) subscription {
	sub := subscription{
		interval: time.Duration(m.IntervalMs) * time.Millisecond,
		max:      m.MaxPositions,
	}
	if sub.interval <= 0 {
		sub.interval = time.Duration(s.cfg.IntervalMs) * time.Millisecond
	}
	sub.interval = min(max(sub.interval, minInterval), maxInterval)
	if sub.max <= 0 {
		sub.max = s.cfg.MaxPositions
	}
	sub.max = min(max(sub.max, 1), maxPositionsCap)
	return sub
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
