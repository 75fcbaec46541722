package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/TFMV/versegraph/models"
)

// currentGraph copies the engine's normalized graph
func (s *Server) currentGraph() *models.Graph {
	return &models.Graph{
		Nodes:    s.engine.Nodes(),
		Edges:    s.engine.Edges(),
		Viewport: s.engine.Viewport(),
	}
}

type nodeResponse struct {
	Node     models.Node      `json:"node"`
	Position *models.Position `json:"position,omitempty"`
	Links    []models.Link    `json:"links"`
}

// handleGetNode returns a node, its live position and its connections
func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "nodeID")
	g := s.currentGraph()
	node, err := g.FindNodeByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	resp := nodeResponse{Node: node, Links: g.Links(id)}
	if resp.Links == nil {
		resp.Links = []models.Link{}
	}
	if p, ok := s.engine.Positions()[id]; ok {
		resp.Position = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

type createNodeRequest struct {
	Type   models.NodeType `json:"type" validate:"required,oneof=VERSE GROUP NOTE TAG"`
	Label  string          `json:"label" validate:"required"`
	Radius float64         `json:"radius" validate:"gte=0"`
}

// handleCreateNode adds a node with a generated id. Existing nodes keep
// their positions while the new one settles in.
func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	node := models.NewNode(req.Type, req.Label)
	node.Radius = req.Radius

	s.editMu.Lock()
	g := s.currentGraph()
	g.AddNode(node)
	s.engine.SetGraph(g.Nodes, g.Edges)
	s.editMu.Unlock()

	s.logger.Info("node added", zap.String("node", node.ID), zap.String("type", string(node.Type)))
	writeJSON(w, http.StatusCreated, node)
}

type createEdgeRequest struct {
	Source string                `json:"source" validate:"required"`
	Target string                `json:"target" validate:"required,nefield=Source"`
	Type   models.ConnectionKind `json:"type" validate:"required"`
	Weight float64               `json:"weight" validate:"gte=0"`
}

// handleCreateEdge links two existing nodes and rewires the running layout
func (s *Server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	var req createEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.editMu.Lock()
	defer s.editMu.Unlock()

	g := s.currentGraph()
	for _, id := range []string{req.Source, req.Target} {
		if _, err := g.FindNodeByID(id); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error()+": "+id)
			return
		}
	}

	edge := models.NewEdge(req.Source, req.Target, req.Type, req.Weight)
	g.AddEdge(edge)
	s.engine.SetGraph(g.Nodes, g.Edges)
	writeJSON(w, http.StatusCreated, edge)
}

// handleDeleteNode removes a node and its edges. A gesture holding the node
// is dropped.
func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "nodeID")

	s.editMu.Lock()
	g := s.currentGraph()
	if !g.RemoveNode(id) {
		s.editMu.Unlock()
		writeError(w, http.StatusNotFound, models.ErrNodeNotFound.Error())
		return
	}
	s.engine.SetGraph(g.Nodes, g.Edges)
	s.editMu.Unlock()

	s.controller.Sync()
	w.WriteHeader(http.StatusNoContent)
}
