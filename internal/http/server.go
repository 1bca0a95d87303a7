package http

import (
	"github.com/gin-gonic/gin"
)

// Server wraps the configured gin engine behind the montage control
// surface. The engine stays exported so tests and the app wiring can
// drive it directly with httptest.
type Server struct {
	Engine *gin.Engine
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{Engine: NewRouter(cfg)}
}

// Run blocks serving HTTP until the listener fails. An empty address
// falls back to :8080, the same default the config layer uses.
func (s *Server) Run(address string) error {
	if address == "" {
		address = ":8080"
	}
	return s.Engine.Run(address)
}
