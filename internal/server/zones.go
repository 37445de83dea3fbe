package server

import (
	"net/http"
	"strings"
	"time"

	zonedomain "github.com/agrocoop/agrocoop/internal/zone/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type zoneResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type createZoneRequest struct {
	Name string `json:"name"`
}

func (s *Server) CreateZone(c *gin.Context) {
	var req createZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		AbortWithError(c, zonedomain.ErrInvalidName)
		return
	}

	now := time.Now().UTC()
	zone := &zonedomain.Zone{
		ID:        s.genID.Generate(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.zoneRepo.Create(c.Request.Context(), s.db, zone); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": toZoneResponse(zone)})
}

func (s *Server) GetZone(c *gin.Context) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, zonedomain.ErrInvalidID)
		return
	}

	zone, err := s.zoneRepo.FindByID(c.Request.Context(), s.db, parsed)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if zone == nil {
		AbortWithError(c, zonedomain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toZoneResponse(zone)})
}

func (s *Server) ListZones(c *gin.Context) {
	zones, err := s.zoneRepo.List(c.Request.Context(), s.db)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]zoneResponse, 0, len(zones))
	for i := range zones {
		resp = append(resp, toZoneResponse(&zones[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func toZoneResponse(z *zonedomain.Zone) zoneResponse {
	return zoneResponse{
		ID:        z.ID.String(),
		Name:      z.Name,
		CreatedAt: z.CreatedAt,
		UpdatedAt: z.UpdatedAt,
	}
}
