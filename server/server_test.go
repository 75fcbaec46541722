package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/versegraph/engine"
	"github.com/TFMV/versegraph/interaction"
	"github.com/TFMV/versegraph/metrics"
	"github.com/TFMV/versegraph/models"
	"github.com/TFMV/versegraph/physics"
	"github.com/TFMV/versegraph/scheduler"
	"github.com/TFMV/versegraph/snapshot"
)

const sampleGraph = `{
	"viewport": {"width": 400, "height": 400},
	"nodes": [
		{"id": "jn316", "type": "VERSE", "label": "John 3:16"},
		{"id": "rom58", "type": "VERSE", "label": "Romans 5:8"},
		{"id": "love", "type": "TAG"}
	],
	"edges": [
		{"id": "e1", "source": "jn316", "target": "rom58", "type": "CROSS_REFERENCE"},
		{"id": "e2", "source": "jn316", "target": "love", "type": "TAGGED"}
	]
}`

type fixture struct {
	sched  *scheduler.Manual
	engine *engine.Engine
	server *Server
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	require.NoError(t, err)

	sched := scheduler.NewManual()
	eng := engine.New(sched, engine.Options{
		Viewport:     models.Viewport{Width: 800, Height: 600},
		Force:        physics.DefaultForceConfig(),
		PublishEvery: snapshot.DefaultEvery,
		Seed:         1,
		Metrics:      collector,
	})
	ctrl := interaction.NewController(eng, interaction.DefaultOptions(), nil)
	srv := New(Config{Addr: ":0"}, eng, ctrl, reg, nil)
	t.Cleanup(func() {
		srv.Close()
		eng.Dispose()
	})
	return &fixture{sched: sched, engine: eng, server: srv, router: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) loadSample(t *testing.T) {
	t.Helper()
	rr := f.do(t, http.MethodPut, "/api/graph", "application/json", sampleGraph)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	f.sched.Drain(0)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["halted"])
}

func TestPutGraph_RunsLayoutToCompletion(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPut, "/api/graph", "application/json", sampleGraph)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var g graphResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &g))
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)
	assert.Equal(t, models.Viewport{Width: 400, Height: 400}, g.Viewport)
	assert.NotEmpty(t, g.Run)

	f.sched.Drain(0)

	rr = f.do(t, http.MethodGet, "/api/layout", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var snap snapshot.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.True(t, snap.Final)
	assert.Equal(t, g.Run, snap.RunID)
	require.Len(t, snap.Positions, 3)
	for id, p := range snap.Positions {
		assert.True(t, p.X >= 0 && p.X <= 400, id)
		assert.True(t, p.Y >= 0 && p.Y <= 400, id)
	}
}

func TestPutGraph_FormatFromContentType(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/graph", "text/csv; charset=utf-8", "source,target\nJohn 3:16,#love\n")
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Len(t, f.engine.Nodes(), 2)

	rr = f.do(t, http.MethodPut, "/api/graph?format=txt", "", "Isaiah 53:5 => 1 Peter 2:24\n")
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Len(t, f.engine.Edges(), 1)
}

func TestPutGraph_Errors(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPut, "/api/graph?format=xml", "", "<graph/>")
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)

	rr = f.do(t, http.MethodPut, "/api/graph", "application/json", `{"nodes": [`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "error")
}

func TestUpload(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "study.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("John 3:16 -> Romans 5:8\n#grace ~ Ephesians 2:8\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rr := f.do(t, http.MethodPost, "/api/upload", mw.FormDataContentType(), body.String())
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Len(t, f.engine.Nodes(), 4)
}

func TestRender(t *testing.T) {
	f := newFixture(t)
	f.loadSample(t)

	rr := f.do(t, http.MethodGet, "/api/render", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Equal(t, 3, strings.Count(rr.Body.String(), "<circle"))

	rr = f.do(t, http.MethodGet, "/api/render?format=ascii&cols=30&rows=10&labels=false", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "+"+strings.Repeat("-", 30)+"+")

	rr = f.do(t, http.MethodGet, "/api/render?format=webgl", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/render?palette=neon", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestViewport(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPut, "/api/viewport", "application/json", `{"width": 0, "height": 100}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPut, "/api/viewport", "application/json", `{"width": 390, "height": 844}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.Viewport{Width: 390, Height: 844}, f.engine.Viewport())
}

func TestPointer_GrabDragRelease(t *testing.T) {
	f := newFixture(t)
	f.loadSample(t)

	at := f.engine.Positions()["rom58"]
	down := `{"action": "down", "x": ` + jsonNum(at.X) + `, "y": ` + jsonNum(at.Y) + `}`
	rr := f.do(t, http.MethodPost, "/api/pointer", "application/json", down)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp pointerResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Grabbed)
	assert.Equal(t, "rom58", resp.Held)
	assert.Equal(t, "grabbed", resp.Phase)

	rr = f.do(t, http.MethodPost, "/api/pointer", "application/json", `{"action": "move", "x": 100, "y": 120}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.Position{X: 100, Y: 120}, f.engine.Positions()["rom58"])

	rr = f.do(t, http.MethodPost, "/api/pointer", "application/json", `{"action": "up", "x": 100, "y": 120}`)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "released", resp.Phase)
	assert.Empty(t, resp.Held)
}

func TestPan_TransformReachesCanvasPage(t *testing.T) {
	f := newFixture(t)
	f.loadSample(t)

	rr := f.do(t, http.MethodPost, "/api/pointer", "application/json", `{"action": "down", "x": -500, "y": -500}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp pointerResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.False(t, resp.Grabbed)

	rr = f.do(t, http.MethodPost, "/api/pointer", "application/json", `{"action": "move", "x": -460, "y": -470}`)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	panned := interaction.Transform{Scale: 1, OffsetX: 40, OffsetY: 30}
	assert.Equal(t, panned, resp.Transform)

	rr = f.do(t, http.MethodGet, "/api/graph", "", "")
	var g graphResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &g))
	assert.Equal(t, panned, g.Transform)

	rr = f.do(t, http.MethodGet, "/", "", "")
	page := rr.Body.String()
	assert.Contains(t, page, "ctx.setTransform(view.scale, 0, 0, view.scale, view.offsetX, view.offsetY)")
	assert.Contains(t, page, "view = (await res.json()).transform")
}

func TestPointer_Validation(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/pointer", "application/json", `{"action": "hover"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/zoom", "application/json", `{"factor": 0}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/zoom", "application/json", `{"factor": 2, "x": 0, "y": 0}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var tr interaction.Transform
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tr))
	assert.Equal(t, 2.0, tr.Scale)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.loadSample(t)

	rr := f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "versegraph_ticks_total")
	assert.Contains(t, rr.Body.String(), "versegraph_snapshots_published_total")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/graph", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStream_SendsSnapshots(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.router)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var m message
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}

	first := read()
	assert.Equal(t, messageSnapshot, first.Type)
	require.NotNil(t, first.Snapshot)
	assert.True(t, first.Snapshot.Empty())

	rr := f.do(t, http.MethodPut, "/api/graph", "application/json", sampleGraph)
	require.Equal(t, http.StatusAccepted, rr.Code)

	// step a publish interval at a time so the client buffer never fills
	var last message
	for i := 0; i < 1000; i++ {
		f.sched.Drain(snapshot.DefaultEvery)
		last = read()
		if last.Type == messageSnapshot && last.Snapshot.Final {
			break
		}
	}
	require.NotNil(t, last.Snapshot)
	assert.True(t, last.Snapshot.Final)
	assert.Len(t, last.Snapshot.Positions, 3)
}

func jsonNum(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
