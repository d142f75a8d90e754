// Package service exposes the runtime over HTTP: graph catalog management,
// run/stop commands, the merged node spec document, a websocket stream of
// run lifecycle events, and Prometheus metrics.
package service

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/valaphee/flow/internal/catalog"
	"github.com/valaphee/flow/internal/exec"
	"github.com/valaphee/flow/internal/graph"
	"github.com/valaphee/flow/internal/runtime"
)

// Catalog is the graph catalog surface the service manages.
type Catalog interface {
	Lookup(name string) (*graph.Graph, bool)
	List() []*graph.Graph
	Save(g *graph.Graph) error
	Delete(name string) error
}

// ScopeInfo describes one running scope across the service boundary.
type ScopeInfo struct {
	ID    string `json:"id"`
	Graph string `json:"graph"`
}

// Runner starts and stops graph runs.
type Runner interface {
	RunGraph(name string) (string, error)
	StopScope(id string) error
	Scopes() []ScopeInfo
}

// Server is the HTTP API server.
type Server struct {
	logger   *slog.Logger
	catalog  Catalog
	runner   Runner
	specs    func() []exec.NodeSpec
	bus      *runtime.Bus
	metrics  http.Handler
	upgrader websocket.Upgrader
}

// New assembles a server over its collaborators. metricsHandler may be nil
// to disable the /metrics endpoint.
func New(logger *slog.Logger, cat Catalog, runner Runner, specs func() []exec.NodeSpec, bus *runtime.Bus, metricsHandler http.Handler) *Server {
	return &Server{
		logger:  logger,
		catalog: cat,
		runner:  runner,
		specs:   specs,
		bus:     bus,
		metrics: metricsHandler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/v1")
	v1.GET("/graphs", s.listGraphs)
	v1.PUT("/graphs/:name", s.putGraph)
	v1.DELETE("/graphs/:name", s.deleteGraph)
	v1.POST("/graphs/:name/run", s.runGraph)
	v1.GET("/scopes", s.listScopes)
	v1.POST("/scopes/:id/stop", s.stopScope)
	v1.GET("/spec", s.getSpec)
	v1.GET("/events", s.events)

	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics))
	}
	return router
}

func (s *Server) listGraphs(c *gin.Context) {
	graphs := s.catalog.List()
	docs := make([]json.RawMessage, 0, len(graphs))
	for _, g := range graphs {
		doc, err := graph.Marshal(g)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		docs = append(docs, doc)
	}
	c.JSON(http.StatusOK, gin.H{"graphs": docs})
}

func (s *Server) putGraph(c *gin.Context) {
	name := c.Param("name")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, err := graph.Unmarshal(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if g.Name == "" {
		g.Name = name
	} else if !strings.EqualFold(g.Name, name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document name does not match URL"})
		return
	}
	if err := s.catalog.Save(g); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("Graph document stored.", "name", g.Name, "nodes", len(g.Nodes))
	c.JSON(http.StatusOK, gin.H{"name": g.Name})
}

func (s *Server) deleteGraph(c *gin.Context) {
	name := c.Param("name")
	if err := s.catalog.Delete(name); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "graph not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("Graph document deleted.", "name", name)
	c.Status(http.StatusNoContent)
}

func (s *Server) runGraph(c *gin.Context) {
	name := c.Param("name")
	id, err := s.runner.RunGraph(name)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "graph not found"})
			return
		}
		// Binding errors leave no scope behind; the document is at fault.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scope_id": id})
}

func (s *Server) listScopes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scopes": s.runner.Scopes()})
}

func (s *Server) stopScope(c *gin.Context) {
	id := c.Param("id")
	if err := s.runner.StopScope(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scope not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scope_id": id})
}

func (s *Server) getSpec(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": s.specs()})
}

// events upgrades to a websocket and streams run lifecycle events until the
// client goes away.
func (s *Server) events(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed.", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := s.bus.Subscribe()
	defer cancel()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}
