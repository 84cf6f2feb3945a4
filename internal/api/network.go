package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vlan-traffic-simulator/internal/engine"
	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/snapshot"
	"vlan-traffic-simulator/internal/topology"
)

type createDeviceRequest struct {
	Segment  int    `json:"segment"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Category string `json:"category"`
}

func (s *Server) loadSnapshot(c *gin.Context) (*snapshot.Snapshot, bool) {
	if s.Topology == nil {
		writeError(c, ErrUnavailable)
		return nil, false
	}
	snap, err := s.Topology.Load(c.Request.Context())
	if err != nil {
		s.Log.Error("failed to load topology", "error", err)
		writeError(c, ErrUnavailable)
		return nil, false
	}
	return snap, true
}

// writable reports whether mutations are possible and answers the request
// when they are not.
func (s *Server) writable(c *gin.Context) bool {
	if s.Catalog == nil {
		writeError(c, ErrReadOnly)
		return false
	}
	return true
}

func (s *Server) invalidate() {
	if s.Topology != nil {
		s.Topology.Invalidate()
	}
}

func (s *Server) getTopology(c *gin.Context) {
	snap, ok := s.loadSnapshot(c)
	if !ok {
		return
	}
	segments := snap.Segments
	if segments == nil {
		segments = []model.Segment{}
	}
	c.JSON(http.StatusOK, segments)
}

func (s *Server) auditTopology(c *gin.Context) {
	snap, ok := s.loadSnapshot(c)
	if !ok {
		return
	}
	findings := topology.Audit(snap.Segments)
	if findings == nil {
		findings = []topology.Finding{}
	}
	c.JSON(http.StatusOK, gin.H{
		"clean":    len(findings) == 0,
		"findings": findings,
	})
}

func (s *Server) createSegment(c *gin.Context) {
	if !s.writable(c) {
		return
	}
	var seg model.Segment
	if err := c.ShouldBindJSON(&seg); err != nil {
		writeError(c, NewError(http.StatusBadRequest, ErrCodeInvalid, err.Error()))
		return
	}
	created, err := s.Catalog.CreateSegment(c.Request.Context(), seg)
	if err != nil {
		writeError(c, err)
		return
	}
	s.invalidate()
	s.Log.Info("segment created", "vlan", created.Number, "id", created.ID)
	c.JSON(http.StatusCreated, created)
}

func (s *Server) createDevice(c *gin.Context) {
	if !s.writable(c) {
		return
	}
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewError(http.StatusBadRequest, ErrCodeInvalid, err.Error()))
		return
	}
	if req.Segment == 0 {
		writeError(c, NewError(http.StatusBadRequest, ErrCodeInvalid, "segment is required"))
		return
	}
	dev, err := s.Catalog.CreateDevice(c.Request.Context(), req.Segment, model.Device{
		ID:       req.ID,
		Name:     req.Name,
		Address:  req.Address,
		Category: req.Category,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	s.invalidate()
	s.Log.Info("device created", "vlan", req.Segment, "id", dev.ID)
	c.JSON(http.StatusCreated, dev)
}

func (s *Server) deleteDevice(c *gin.Context) {
	if !s.writable(c) {
		return
	}
	id := c.Param("id")
	if err := s.Catalog.DeleteDevice(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	s.invalidate()
	c.JSON(http.StatusOK, Response{Msg: "OK"})
}

func (s *Server) listRules(c *gin.Context) {
	snap, ok := s.loadSnapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, engine.NewRuleSet(snap.Rules).Rules)
}

func (s *Server) createRule(c *gin.Context) {
	if !s.writable(c) {
		return
	}
	var rule model.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		writeError(c, NewError(http.StatusBadRequest, ErrCodeInvalid, err.Error()))
		return
	}
	created, err := s.Catalog.CreateRule(c.Request.Context(), rule)
	if err != nil {
		writeError(c, err)
		return
	}
	s.invalidate()
	s.Log.Info("rule created", "id", created.ID, "priority", created.Priority)
	c.JSON(http.StatusCreated, created)
}

func (s *Server) deleteRule(c *gin.Context) {
	if !s.writable(c) {
		return
	}
	if err := s.Catalog.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	s.invalidate()
	c.JSON(http.StatusOK, Response{Msg: "OK"})
}

const maxPageSize = 200

func (s *Server) listLogs(c *gin.Context) {
	page, size, err := pageParams(c)
	if err != nil {
		writeError(c, NewError(http.StatusBadRequest, ErrCodeInvalid, err.Error()))
		return
	}
	if s.Recorder == nil {
		c.JSON(http.StatusOK, gin.H{"items": []model.DecisionRecord{}, "total": 0, "page": page, "pageSize": size})
		return
	}
	items, total, err := s.Recorder.Page(c.Request.Context(), page, size)
	if err != nil {
		s.Log.Error("failed to read decision log", "error", err)
		writeError(c, err)
		return
	}
	if items == nil {
		items = []model.DecisionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total, "page": page, "pageSize": size})
}

func pageParams(c *gin.Context) (int, int, error) {
	page, size := 1, 20
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = n
	}
	if v := c.Query("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, fmt.Errorf("pageSize must be a positive integer")
		}
		size = min(n, maxPageSize)
	}
	return page, size, nil
}
