package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/coreman2200/funtimes-hyperlattice/internal/app"
	"github.com/coreman2200/funtimes-hyperlattice/internal/choreo"
	"github.com/coreman2200/funtimes-hyperlattice/internal/config"
	diag "github.com/coreman2200/funtimes-hyperlattice/internal/diagnostics"
	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	st   *State
	core *app.Core
	srv  *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Backend = config.BackendSoft
	cfg.Window.Width, cfg.Window.Height = 12, 8
	cfg.Cards = []stage.Track{{
		Name: "deck",
		Base: stage.FromPartial(params.Partial{params.GridDensity: 30}),
		Stages: []stage.Config{
			stage.FromPartial(params.Partial{params.Hue: 0.2}),
			stage.FromPartial(params.Partial{params.Hue: 0.7}),
		},
	}}
	st := NewState(nil)
	nop := zerolog.Nop()
	core, err := app.InitCore(cfg, app.HostConfig{Driver: st, FrameW: 6, FrameH: 4, Logger: &nop})
	require.NoError(t, err)
	st.Core = core
	srv := httptest.NewServer(st.Mux())
	t.Cleanup(func() {
		st.Close()
		srv.Close()
		core.Close()
	})
	return &harness{st: st, core: core, srv: srv}
}

func (h *harness) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func (h *harness) diagClient(t *testing.T) *websocket.Conn {
	conn := h.dial(t, "/ws/diag")
	require.Eventually(t, func() bool {
		_, d, _ := h.st.Clients()
		return d == 1
	}, time.Second, 5*time.Millisecond)
	return conn
}

func TestControlPresetAndStage(t *testing.T) {
	h := newHarness(t)
	dc := h.diagClient(t)
	ctl := h.dial(t, "/ws/control")

	require.NoError(t, ctl.WriteJSON(map[string]any{"preset": "full"}))
	var st Status
	readJSON(t, ctl, &st)
	assert.Equal(t, 48.0, h.core.Cond.Stage(choreo.Primary)[params.GridDensity])
	assert.Equal(t, "full", h.core.Cfg.Stage)

	var d diag.Diagnostic
	readJSON(t, dc, &d)
	assert.Equal(t, diag.CodeStage, d.Code)

	require.NoError(t, ctl.WriteJSON(map[string]any{
		"stage":  map[string]any{"gridDensity": 50, "accentHue": 0.7, "sparkle": 1},
		"volume": 11,
	}))
	readJSON(t, ctl, &st)
	assert.Equal(t, 50.0, h.core.Cond.Stage(choreo.Primary)[params.GridDensity])
	assert.Equal(t, 0.7, h.core.Cond.Stage(choreo.Accent)[params.Hue])

	readJSON(t, dc, &d)
	assert.Equal(t, diag.CodeStage, d.Code)
	readJSON(t, dc, &d)
	assert.Equal(t, diag.CodeSkipped, d.Code)
	assert.Equal(t, []any{"stage.sparkle", "volume"}, d.Evidence["keys"])
}

func TestControlInputs(t *testing.T) {
	h := newHarness(t)
	ctl := h.dial(t, "/ws/control")

	var st Status
	require.NoError(t, ctl.WriteJSON(map[string]any{
		"scroll":  0.25,
		"engage":  true,
		"tilt":    map[string]any{"x": 1, "y": 0, "magnitude": 0.5},
		"targets": map[string]any{"hue": 0.3},
		"layer":   "accent",
		"lerp":    map[string]any{"primary": 0.5},
	}))
	readJSON(t, ctl, &st)
	assert.Equal(t, 0.25, st.Scroll)
	assert.True(t, st.Engaged)
	assert.Equal(t, 0.3, h.core.Cond.Stage(choreo.Accent)[params.Hue])
	assert.NotEqual(t, 0.3, h.core.Cond.Stage(choreo.Primary)[params.Hue])
	assert.Equal(t, 0.5, h.core.Cond.Lerp(choreo.Primary))
	assert.Contains(t, st.Current, "primary")

	require.NoError(t, ctl.WriteJSON(map[string]any{"engage": false, "resize": map[string]any{"w": 20, "h": 10}}))
	readJSON(t, ctl, &st)
	assert.False(t, st.Engaged)
	w, hh := h.core.Cond.Renderer(choreo.Primary).Size()
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, hh)
}

func TestControlBadMessages(t *testing.T) {
	h := newHarness(t)
	dc := h.diagClient(t)
	ctl := h.dial(t, "/ws/control")

	require.NoError(t, ctl.WriteMessage(websocket.TextMessage, []byte("not json")))
	var d diag.Diagnostic
	readJSON(t, dc, &d)
	assert.Equal(t, diag.CodeBadMessage, d.Code)

	require.NoError(t, ctl.WriteJSON(map[string]any{"preset": "nonesuch"}))
	var st Status
	readJSON(t, ctl, &st)
	readJSON(t, dc, &d)
	assert.Equal(t, diag.CodeBadMessage, d.Code)

	require.NoError(t, ctl.WriteJSON(map[string]any{"player": "rewind"}))
	readJSON(t, ctl, &st)
	readJSON(t, dc, &d)
	assert.Equal(t, diag.CodeBadMessage, d.Code)
	assert.Equal(t, "rewind", d.Evidence["command"])
}

func TestFramesBroadcast(t *testing.T) {
	h := newHarness(t)
	fc := h.dial(t, "/ws/frames")
	var st Status
	readJSON(t, fc, &st)

	require.NoError(t, h.core.Frame(time.Unix(1, 0)))
	var f struct {
		FrameID uint64 `json:"frame_id"`
		W, H    int
		RGB     []byte `json:"rgb"`
	}
	readJSON(t, fc, &f)
	assert.Equal(t, uint64(1), f.FrameID)
	assert.Equal(t, 6, f.W)
	assert.Equal(t, 4, f.H)
	assert.Len(t, f.RGB, 6*4*3)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.core.Frame(time.Unix(1, 0)))

	resp, err := http.Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1.0, body["frame_id"])
	assert.Equal(t, 1.0, body["ticks"])
	assert.Equal(t, true, body["running"])
}

func TestSaveConfig(t *testing.T) {
	h := newHarness(t)
	h.st.ConfigPath = filepath.Join(t.TempDir(), "lattice.yaml")
	ctl := h.dial(t, "/ws/control")

	require.NoError(t, ctl.WriteJSON(map[string]any{"preset": "circle", "lerp": map[string]any{"accent": 0.3}, "save": true}))
	var st Status
	readJSON(t, ctl, &st)

	saved, err := config.Load(h.st.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "circle", saved.Stage)
	assert.Equal(t, 0.3, saved.Accent.Lerp)
}

func TestControlCardAndFocus(t *testing.T) {
	h := newHarness(t)
	dc := h.diagClient(t)
	ctl := h.dial(t, "/ws/control")

	var st Status
	require.NoError(t, ctl.WriteJSON(map[string]any{"card": map[string]any{"name": "deck", "progress": 0.75}}))
	readJSON(t, ctl, &st)
	assert.InDelta(t, 0.5, st.Scroll, 1e-9)
	assert.InDelta(t, 0.7, h.core.Cond.Stage(choreo.Primary)[params.Hue], 1e-9)

	require.NoError(t, ctl.WriteJSON(map[string]any{"focus": map[string]any{"name": "deck", "distance": 0, "max": 800}}))
	readJSON(t, ctl, &st)
	assert.InDelta(t, 55, h.core.Cond.Stage(choreo.Primary)[params.GridDensity], 1e-9)

	require.NoError(t, ctl.WriteJSON(map[string]any{"card": map[string]any{"name": "nope", "progress": 0.5}}))
	readJSON(t, ctl, &st)
	var d diag.Diagnostic
	readJSON(t, dc, &d)
	assert.Equal(t, diag.CodeBadMessage, d.Code)
	assert.Equal(t, KeyCard, d.Detail)

	require.NoError(t, ctl.WriteJSON(map[string]any{"focus": map[string]any{"name": "deck"}}))
	readJSON(t, ctl, &st)
	readJSON(t, dc, &d)
	assert.Equal(t, diag.CodeBadMessage, d.Code)
	assert.Equal(t, KeyFocus, d.Detail)
}
