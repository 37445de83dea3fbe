package server

import (
	"net/http"
	"strings"

	unitdomain "github.com/agrocoop/agrocoop/internal/unit/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateUnit(c *gin.Context) {
	var req unitdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.unitSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetUnit(c *gin.Context) {
	resp, err := s.unitSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUnits(c *gin.Context) {
	var zoneID *string
	if v := strings.TrimSpace(c.Query("zone_id")); v != "" {
		zoneID = &v
	}

	resp, err := s.unitSvc.List(c.Request.Context(), zoneID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateUnit(c *gin.Context) {
	var req unitdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = c.Param("id")

	resp, err := s.unitSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
