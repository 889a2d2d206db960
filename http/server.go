package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gograph/gograph/log"
)

// Server wraps a gin engine behind the RegisterHandler interface the domain
// packages expect. Route parameters are copied into the request context
// under the "params" key, where the request decoders pick them up.
type Server struct {
	engine *gin.Engine
	logger log.Logger
}

func NewServer(env string, logger log.Logger) *Server {
	if env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	// CORS
	engine.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept-Language, Authorization, Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
		}
		c.Next()
	})

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, map[string]string{"data": "ok"})
	})

	return &Server{engine: engine, logger: logger}
}

func (s *Server) RegisterHandler(path, method string, f http.Handler) {
	s.engine.Handle(method, path, func(c *gin.Context) {
		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}

		ctx := context.WithValue(c.Request.Context(), "params", params)
		f.ServeHTTP(c.Writer, c.Request.WithContext(ctx))
	})
}

func (s *Server) Start(addr string) error {
	s.logger.Printf("listening on %s", addr)
	return s.engine.Run(addr)
}
