package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-hyperlattice/internal/app"
	"github.com/coreman2200/funtimes-hyperlattice/internal/choreo"
	"github.com/coreman2200/funtimes-hyperlattice/internal/config"
	diag "github.com/coreman2200/funtimes-hyperlattice/internal/diagnostics"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render"
	"github.com/coreman2200/funtimes-hyperlattice/internal/sequence"
)

const writeWait = 200 * time.Millisecond

// State bridges remote collaborators to a running Core: control messages
// become conductor calls, composited frames are broadcast to preview
// clients and diagnostics are pushed to diag clients.
type State struct {
	mu   sync.RWMutex
	wmu  sync.Mutex // one writer per connection at a time
	Core *app.Core

	ConfigPath string

	rgb       []byte
	w, h      int
	frameID   uint64
	startTime time.Time

	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	ctlClients  map[*websocket.Conn]bool
}

func NewState(core *app.Core) *State {
	return &State{
		Core:        core,
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		ctlClients:  map[*websocket.Conn]bool{},
	}
}

// Write implements render.Driver: it converts the frame to 8-bit RGB and
// broadcasts it.
func (s *State) Write(f render.Frame) error {
	s.mu.Lock()
	n := f.W * f.H
	if cap(s.rgb) < n*3 {
		s.rgb = make([]byte, n*3)
	}
	s.rgb = s.rgb[:n*3]
	for i := 0; i < n && i < len(f.Pix); i++ {
		c := render.To8(f.Pix[i])
		s.rgb[i*3+0] = c.R
		s.rgb[i*3+1] = c.G
		s.rgb[i*3+2] = c.B
	}
	s.w, s.h = f.W, f.H
	s.frameID++
	buf := append([]byte{}, s.rgb...)
	s.mu.Unlock()

	s.broadcastFrame(buf)
	return nil
}

// Mux routes the websocket endpoints and the health check.
func (s *State) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/frames", s.HandleFramesWS)
	mux.HandleFunc("/ws/control", s.HandleControlWS)
	mux.HandleFunc("/ws/diag", s.HandleDiagWS)
	mux.HandleFunc("/healthz", s.HandleHealth)
	return mux
}

func upgrader() websocket.Upgrader {
	return websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	s.sendStatus(conn)
	go s.drain(conn, s.clients)
}

func (s *State) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	up := upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.diagClients[conn] = true
	s.mu.Unlock()
	for _, d := range s.Core.Cond.Diagnostics() {
		s.write(conn, d)
	}
	go s.drain(conn, s.diagClients)
}

// drain reads until the peer goes away, then forgets the connection.
func (s *State) drain(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		s.mu.Lock()
		delete(set, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	up := upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.ctlClients[conn] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.ctlClients, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			s.pushDiag(diag.Diagnostic{
				Severity: diag.Warn, Code: diag.CodeBadMessage, Summary: "Control message is not a JSON object",
				Detail: err.Error(),
			})
			continue
		}
		s.applyControl(msg)
		s.sendStatus(conn)
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := map[string]any{
		"frame_id": s.frameID,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"w":        s.w,
		"h":        s.h,
	}
	s.mu.RUnlock()
	resp["ticks"] = s.Core.Cond.Frames()
	resp["running"] = s.Core.Cond.Running()
	if d := s.Core.Cond.Diagnostics(); len(d) > 0 {
		resp["diagnostics"] = d
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Status is sent to frame clients on connect and to control clients after
// every message.
type Status struct {
	FrameID uint64                        `json:"frame_id"`
	Scroll  float64                       `json:"scroll"`
	Engaged bool                          `json:"engaged"`
	Show    app.ShowStatus                `json:"show"`
	Player  sequence.PlayerState          `json:"player"`
	Current map[string]map[string]float64 `json:"current"`
	Presets []string                      `json:"presets,omitempty"`
}

func (s *State) status() Status {
	c := s.Core
	st := Status{
		Scroll:  c.Cond.ScrollProgress(),
		Engaged: c.Cond.Engaged(),
		Show:    c.Show.Status(),
		Current: map[string]map[string]float64{},
	}
	c.Seq.With(func(p *sequence.Player) { st.Player = p.State })
	for _, l := range choreo.Layers() {
		st.Current[l.String()] = c.Cond.Current(l).Map()
	}
	s.mu.RLock()
	st.FrameID = s.frameID
	s.mu.RUnlock()
	return st
}

func (s *State) sendStatus(conn *websocket.Conn) {
	s.write(conn, s.status())
}

func (s *State) broadcastFrame(rgb []byte) {
	type frame struct {
		T       int64  `json:"t"`
		FrameID uint64 `json:"frame_id"`
		W       int    `json:"w"`
		H       int    `json:"h"`
		RGB     []byte `json:"rgb"`
	}
	s.mu.RLock()
	f := frame{T: time.Now().UnixNano(), FrameID: s.frameID, W: s.w, H: s.h, RGB: rgb}
	conns := keys(s.clients)
	s.mu.RUnlock()
	b, _ := json.Marshal(f)
	for _, c := range conns {
		if err := s.writeRaw(c, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (s *State) pushDiag(d diag.Diagnostic) {
	s.mu.RLock()
	conns := keys(s.diagClients)
	s.mu.RUnlock()
	b, _ := json.Marshal(d)
	for _, c := range conns {
		_ = s.writeRaw(c, b)
	}
}

func (s *State) write(conn *websocket.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Debug().Err(err).Msg("encode message")
		return
	}
	_ = s.writeRaw(conn, b)
}

func (s *State) writeRaw(conn *websocket.Conn, b []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// Close drops every client; their handlers exit on the next read.
func (s *State) Close() {
	s.mu.Lock()
	var all []*websocket.Conn
	for _, set := range []map[*websocket.Conn]bool{s.clients, s.diagClients, s.ctlClients} {
		all = append(all, keys(set)...)
	}
	s.mu.Unlock()
	for _, c := range all {
		c.Close()
	}
}

// Clients is the number of connected frame, diag and control clients.
func (s *State) Clients() (frames, diags, controls int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients), len(s.diagClients), len(s.ctlClients)
}

func (s *State) saveConfig() {
	if s.ConfigPath == "" || s.Core.Cfg == nil {
		return
	}
	s.mu.RLock()
	cfg := *s.Core.Cfg
	s.mu.RUnlock()
	cfg.Policy = s.Core.Cond.Policy()
	cfg.Primary.Lerp = s.Core.Cond.Lerp(choreo.Primary)
	cfg.Accent.Lerp = s.Core.Cond.Lerp(choreo.Accent)
	if err := config.Save(s.ConfigPath, &cfg); err != nil {
		log.Warn().Err(err).Str("path", s.ConfigPath).Msg("save config")
	}
}

func keys(m map[*websocket.Conn]bool) []*websocket.Conn {
	out := make([]*websocket.Conn, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	return out
}
