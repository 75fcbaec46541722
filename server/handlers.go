package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/TFMV/versegraph/ingest"
	"github.com/TFMV/versegraph/interaction"
	"github.com/TFMV/versegraph/models"
	"github.com/TFMV/versegraph/render"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleIndex serves a canvas page that follows /api/stream
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"run":     s.engine.RunID(),
		"halted":  s.engine.Halted(),
		"clients": s.hub.count(),
	})
}

type graphResponse struct {
	Run       string                `json:"run"`
	Viewport  models.Viewport       `json:"viewport"`
	Transform interaction.Transform `json:"transform"`
	Nodes     []models.Node         `json:"nodes"`
	Edges     []models.Edge         `json:"edges"`
}

func (s *Server) graphResponse() graphResponse {
	return graphResponse{
		Run:       s.engine.RunID(),
		Viewport:  s.engine.Viewport(),
		Transform: s.controller.Transform(),
		Nodes:     s.engine.Nodes(),
		Edges:     s.engine.Edges(),
	}
}

// handleGetGraph returns the normalized graph being laid out
func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.graphResponse())
}

// handlePutGraph replaces the graph with the request body. The format comes
// from ?format= or the Content-Type and defaults to JSON.
func (s *Server) handlePutGraph(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatFromContentType(r.Header.Get("Content-Type"))
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Error reading request body")
		return
	}
	s.applyGraph(w, format, data)
}

// handleUpload accepts a multipart form with the graph in the "file" field
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Error parsing form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error retrieving file: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error reading file")
		return
	}
	s.applyGraph(w, ingest.FormatFromPath(header.Filename), data)
}

func (s *Server) applyGraph(w http.ResponseWriter, format string, data []byte) {
	processor, err := ingest.GetProcessor(format)
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	g, err := processor.Process(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.editMu.Lock()
	if g.Viewport.Width > 0 && g.Viewport.Height > 0 {
		s.engine.SetViewport(g.Viewport)
	}
	s.engine.SetGraph(g.Nodes, g.Edges)
	s.editMu.Unlock()
	s.controller.Sync()

	s.logger.Info("graph loaded",
		zap.String("processor", processor.Name()),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
	)
	writeJSON(w, http.StatusAccepted, s.graphResponse())
}

func formatFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "json"
	}
	switch mediaType {
	case "text/csv":
		return "csv"
	case "text/plain":
		return "txt"
	default:
		return "json"
	}
}

// handleLayout returns the latest published snapshot
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Latest())
}

// handleRender draws the latest snapshot. Query: format (svg, ascii, json,
// dot), palette, labels, edge_labels, cols, rows.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "svg"
	}

	opts := render.NewDefaultOptions(format)
	palette, err := render.PaletteByName(q.Get("palette"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.Palette = palette
	if v := q.Get("labels"); v != "" {
		opts.ShowLabels = v == "true"
	}
	opts.ShowEdgeLabels = q.Get("edge_labels") == "true"
	if n, err := strconv.Atoi(q.Get("cols")); err == nil && n > 1 {
		opts.Columns = n
	}
	if n, err := strconv.Atoi(q.Get("rows")); err == nil && n > 1 {
		opts.Rows = n
	}

	scene := render.NewScene(s.engine.Viewport(), s.engine.Nodes(), s.engine.Edges(), s.engine.Latest())
	scene.Held, _ = s.controller.Held()

	out, err := render.Render(scene, opts)
	if errors.Is(err, render.ErrUnsupportedFormat) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("render failed", zap.String("format", format), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	switch strings.ToLower(format) {
	case "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
	case "json":
		w.Header().Set("Content-Type", "application/json")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Write(out)
}

// handleViewport resizes the layout bounds
func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var vp models.Viewport
	if err := json.NewDecoder(r.Body).Decode(&vp); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := s.validate.Struct(vp); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.engine.SetViewport(vp)
	writeJSON(w, http.StatusOK, vp)
}

func (s *Server) handleReheat(w http.ResponseWriter, r *http.Request) {
	s.engine.Reheat()
	writeJSON(w, http.StatusAccepted, map[string]any{"run": s.engine.RunID(), "alpha": s.engine.Alpha()})
}

type pointerRequest struct {
	Action string  `json:"action" validate:"required,oneof=down move up cancel"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type pointerResponse struct {
	Phase     string                `json:"phase"`
	Held      string                `json:"held,omitempty"`
	Grabbed   bool                  `json:"grabbed"`
	Transform interaction.Transform `json:"transform"`
}

// handlePointer feeds one pointer event, in screen coordinates, to the
// gesture controller
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	grabbed := false
	switch req.Action {
	case "down":
		grabbed = s.controller.PointerDown(req.X, req.Y)
	case "move":
		s.controller.PointerMove(req.X, req.Y)
	case "up":
		s.controller.PointerUp(req.X, req.Y)
	case "cancel":
		s.controller.Cancel()
	}

	held, _ := s.controller.Held()
	writeJSON(w, http.StatusOK, pointerResponse{
		Phase:     s.controller.Phase().String(),
		Held:      held,
		Grabbed:   grabbed,
		Transform: s.controller.Transform(),
	})
}

type zoomRequest struct {
	Factor float64 `json:"factor" validate:"gt=0"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.controller.Zoom(req.Factor, req.X, req.Y)
	writeJSON(w, http.StatusOK, s.controller.Transform())
}

// handleStream upgrades to a websocket and streams snapshots, selections and
// drags. The latest snapshot is sent first.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(s.hub, conn, s.logger)
	latest := s.engine.Latest()
	if data, err := json.Marshal(message{Type: messageSnapshot, Snapshot: &latest}); err == nil {
		c.send <- data
	}
	s.hub.add(c)
	c.logger.Debug("stream client connected")

	go c.writePump()
	go c.readPump()
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
  <title>versegraph</title>
  <style>
    body { margin: 0; font-family: sans-serif; background: #f8f8f8; }
    canvas { display: block; }
  </style>
</head>
<body>
<canvas id="c"></canvas>
<script>
const canvas = document.getElementById("c");
const ctx = canvas.getContext("2d");
const colors = { VERSE: "#4285F4", GROUP: "#673AB7", NOTE: "#FBBC05", TAG: "#34A853" };
let graph = { nodes: [], edges: [] };
let run = null;
let positions = {};
let view = { scale: 1, offsetX: 0, offsetY: 0 };

async function loadGraph() {
  graph = await (await fetch("/api/graph")).json();
  canvas.width = graph.viewport.width;
  canvas.height = graph.viewport.height;
  if (graph.transform) view = graph.transform;
}

function draw() {
  ctx.setTransform(1, 0, 0, 1, 0, 0);
  ctx.clearRect(0, 0, canvas.width, canvas.height);
  ctx.setTransform(view.scale, 0, 0, view.scale, view.offsetX, view.offsetY);
  ctx.strokeStyle = "#888";
  for (const e of graph.edges || []) {
    const a = positions[e.source], b = positions[e.target];
    if (!a || !b) continue;
    ctx.beginPath(); ctx.moveTo(a.x, a.y); ctx.lineTo(b.x, b.y); ctx.stroke();
  }
  for (const n of graph.nodes || []) {
    const p = positions[n.id];
    if (!p) continue;
    ctx.fillStyle = colors[n.type] || "#999";
    ctx.beginPath(); ctx.arc(p.x, p.y, n.radius || 16, 0, 2 * Math.PI); ctx.fill();
  }
}

async function pointer(action, ev) {
  const res = await fetch("/api/pointer", { method: "POST", body: JSON.stringify({ action, x: ev.offsetX, y: ev.offsetY }) });
  if (!res.ok) return;
  view = (await res.json()).transform;
  requestAnimationFrame(draw);
}
canvas.onpointerdown = ev => pointer("down", ev);
canvas.onpointermove = ev => { if (ev.buttons) pointer("move", ev); };
canvas.onpointerup = ev => pointer("up", ev);
canvas.onwheel = async ev => {
  ev.preventDefault();
  const factor = ev.deltaY < 0 ? 1.25 : 0.8;
  const res = await fetch("/api/zoom", { method: "POST", body: JSON.stringify({ factor, x: ev.offsetX, y: ev.offsetY }) });
  if (!res.ok) return;
  view = await res.json();
  requestAnimationFrame(draw);
};

const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/api/stream");
ws.onmessage = async ev => {
  const msg = JSON.parse(ev.data);
  if (msg.type !== "snapshot") return;
  if (msg.snapshot.runId !== run) { run = msg.snapshot.runId; await loadGraph(); }
  positions = msg.snapshot.positions || {};
  requestAnimationFrame(draw);
};
</script>
</body>
</html>
`
