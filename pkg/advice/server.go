package advice

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/cyclecal/pkg/phase"
)

const maxTaskSize = 4 << 10 // 4KB

// Server exposes a Generator over HTTP.
type Server struct {
	gen      Generator
	fallback FallbackGenerator
	kb       *Knowledge
	router   *gin.Engine
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithKnowledge replaces the built-in knowledge base.
func WithKnowledge(kb *Knowledge) ServerOption {
	return func(s *Server) {
		if kb != nil {
			s.kb = kb
		}
	}
}

// NewServer wires the routes. A nil gen serves only the fallback table.
func NewServer(gen Generator, opts ...ServerOption) *Server {
	router := gin.Default()
	return newServer(gen, router, opts...)
}

func newServer(gen Generator, router *gin.Engine, opts ...ServerOption) *Server {
	s := &Server{gen: gen, kb: DefaultKnowledge(), router: router}
	for _, opt := range opts {
		opt(s)
	}
	s.fallback = FallbackGenerator{Knowledge: s.kb}
	if s.gen == nil {
		s.gen = s.fallback
	}

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/phases", s.handlePhases)
	router.GET("/phases/:phase", s.handlePhase)
	router.POST("/search", s.handleSearch)
	router.POST("/advice", s.handleAdvice)
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "cyclecal advice API"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePhases(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"phases": phase.All, "knowledge": s.kb.Phases(localeOf(c.Query("locale")))})
}

func (s *Server) handlePhase(c *gin.Context) {
	name := c.Param("phase")
	pk, ok := s.kb.Phase(name, localeOf(c.Query("locale")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "phase not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase": name, "info": phase.Lookup(phase.Phase(name)), "data": pk})
}

// SearchRequest is the body of POST /search. An empty Phase searches every
// phase.
type SearchRequest struct {
	Query  string `json:"query"`
	Phase  string `json:"phase"`
	Locale string `json:"locale"`
	Limit  int    `json:"limit"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	docs := s.kb.Search(req.Query, strings.ToLower(req.Phase), localeOf(req.Locale), req.Limit)
	if docs == nil {
		docs = []Document{}
	}
	c.JSON(http.StatusOK, docs)
}

func localeOf(locale string) string {
	if locale == "" {
		return "en"
	}
	return locale
}

func (s *Server) handleAdvice(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.Task = strings.TrimSpace(req.Task)
	if req.Task == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task is required"})
		return
	}
	if len(req.Task) > maxTaskSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task exceeds maximum size of 4KB"})
		return
	}
	req.Locale = localeOf(req.Locale)
	if p, err := phase.Parse(req.Phase); err == nil {
		req.Phase = string(p)
	} else {
		req.Phase = string(phase.Unknown)
	}
	if req.Phase != string(phase.Unknown) {
		req.Context = s.kb.Search(req.Task, req.Phase, req.Locale, DefaultSearchLimit)
	}

	resp, err := s.gen.Generate(c.Request.Context(), req)
	if err != nil {
		log.Printf("Warning: advice generation failed, using fallback: %v", err)
		resp, _ = s.fallback.Generate(c.Request.Context(), req)
	}
	resp.Verdict = normalizeVerdict(resp.Verdict)
	c.JSON(http.StatusOK, resp)
}
