package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vlan-traffic-simulator/internal/model"
)

type evaluateRequest struct {
	SourceDeviceID string                 `json:"sourceDeviceId"`
	DestDeviceID   string                 `json:"destDeviceId"`
	Protocol       model.Protocol         `json:"protocol"`
	Inspection     model.InspectionConfig `json:"inspection"`
}

// simulate evaluates a self-contained request carrying its own topology and
// rules.
func (s *Server) simulate(c *gin.Context) {
	var req model.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.Metrics.ObserveRejected("decode")
		writeError(c, fmt.Errorf("%w: %v", model.ErrMalformedRequest, err))
		return
	}
	s.decide(c, &req, "request")
}

// evaluateStored evaluates a flow against the stored topology and rules.
func (s *Server) evaluateStored(c *gin.Context) {
	var body evaluateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.Metrics.ObserveRejected("decode")
		writeError(c, fmt.Errorf("%w: %v", model.ErrMalformedRequest, err))
		return
	}
	if s.Topology == nil {
		writeError(c, ErrUnavailable)
		return
	}
	snap, err := s.Topology.Load(c.Request.Context())
	if err != nil {
		s.Log.Error("failed to load topology", "error", err)
		s.Metrics.ObserveRejected("unavailable")
		writeError(c, ErrUnavailable)
		return
	}

	s.decide(c, &model.Request{
		SourceDeviceID: body.SourceDeviceID,
		DestDeviceID:   body.DestDeviceID,
		Protocol:       body.Protocol,
		Segments:       snap.Segments,
		Rules:          snap.Rules,
		Inspection:     body.Inspection,
	}, "stored")
}

func (s *Server) decide(c *gin.Context, req *model.Request, source string) {
	start := time.Now()
	rec, err := s.Engine.Evaluate(c.Request.Context(), req)
	if err != nil {
		reason := "error"
		if errors.Is(err, model.ErrMalformedRequest) {
			reason = "malformed"
		}
		s.Metrics.ObserveRejected(reason)
		writeError(c, err)
		return
	}
	s.Metrics.ObserveDecision(rec, source, time.Since(start))

	if s.Recorder != nil {
		if err := s.Recorder.Record(c.Request.Context(), rec); err != nil {
			s.Metrics.ObserveRecorderError()
			s.Log.Warn("failed to record decision", "id", rec.ID, "error", err)
		}
	}
	c.JSON(http.StatusOK, rec)
}
