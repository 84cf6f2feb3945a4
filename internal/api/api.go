package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vlan-traffic-simulator/internal/engine"
	"vlan-traffic-simulator/internal/metrics"
	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/recorder"
	"vlan-traffic-simulator/internal/snapshot"
)

const ServiceName = "vlan-traffic-simulator"

type Response struct {
	Code int         `json:"code,omitempty"`
	Msg  string      `json:"msg,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// Catalog is the write side of the topology store.
type Catalog interface {
	CreateSegment(ctx context.Context, seg model.Segment) (model.Segment, error)
	CreateDevice(ctx context.Context, segmentNumber int, dev model.Device) (model.Device, error)
	DeleteDevice(ctx context.Context, id string) error
	CreateRule(ctx context.Context, rule model.Rule) (model.Rule, error)
	DeleteRule(ctx context.Context, id string) error
}

// Server holds the collaborators behind the HTTP surface. Catalog may be nil,
// in which case mutation endpoints answer with ErrReadOnly.
type Server struct {
	Engine   engine.Evaluator
	Topology *snapshot.Cache
	Catalog  Catalog
	Recorder recorder.Recorder
	Metrics  *metrics.Metrics
	Log      *slog.Logger
	Version  string
}

type Options struct {
	AccessLog    bool
	RateLimit    float64
	Burst        int
	AllowOrigins []string
}

func (s *Server) Router(opts *Options) *gin.Engine {
	if opts == nil {
		opts = &Options{}
	}
	if s.Log == nil {
		s.Log = slog.Default()
	}

	corsCfg := cors.Config{
		AllowMethods:        []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:        []string{"Origin", "Content-Type", "Accept"},
		AllowPrivateNetwork: true,
	}
	if len(opts.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.AllowOrigins
	}

	r := gin.New()
	r.Use(cors.New(corsCfg), gin.Recovery())
	if opts.AccessLog {
		r.Use(mwLogger(s.Log))
	}
	r.Use(mwRateLimit(opts.RateLimit, opts.Burst))

	r.GET("/", s.info)
	r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", s.health)

		api.POST("/simulation", s.simulate)
		api.POST("/traffic/simulate", s.simulate)
		api.POST("/traffic/evaluate", s.evaluateStored)

		api.GET("/network/topology", s.getTopology)
		api.GET("/network/audit", s.auditTopology)
		api.POST("/network/segments", s.createSegment)
		api.POST("/network/devices", s.createDevice)
		api.DELETE("/network/devices/:id", s.deleteDevice)

		api.GET("/firewall/rules", s.listRules)
		api.POST("/firewall/rules", s.createRule)
		api.DELETE("/firewall/rules/:id", s.deleteRule)

		api.GET("/logs", s.listLogs)
	}

	r.NoRoute(func(c *gin.Context) {
		writeError(c, ErrNotFound)
	})
	return r
}

func (s *Server) info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":  ServiceName,
		"version":  s.Version,
		"readOnly": s.Catalog == nil,
	})
}

func (s *Server) health(c *gin.Context) {
	if s.Topology != nil {
		if _, err := s.Topology.Load(c.Request.Context()); err != nil {
			s.Log.Warn("health check failed", "error", err)
			writeError(c, ErrUnavailable)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
