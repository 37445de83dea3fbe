package server

import (
	"net/http"
	"strings"

	memberdomain "github.com/agrocoop/agrocoop/internal/member/domain"
	"github.com/gin-gonic/gin"
)

type createMemberRequest struct {
	Name   string  `json:"name"`
	Phone  string  `json:"phone"`
	Role   string  `json:"role"`
	Status *string `json:"status"`
	UnitID *string `json:"unit_id"`
}

func (s *Server) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	createReq := memberdomain.CreateRequest{
		Name:   req.Name,
		Phone:  req.Phone,
		Role:   memberdomain.Role(strings.TrimSpace(req.Role)),
		UnitID: req.UnitID,
	}
	if req.Status != nil {
		status := memberdomain.Status(strings.TrimSpace(*req.Status))
		createReq.Status = &status
	}

	resp, err := s.memberSvc.Create(c.Request.Context(), createReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetMember(c *gin.Context) {
	resp, err := s.memberSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMembers(c *gin.Context) {
	var query struct {
		Role   string `form:"role"`
		Status string `form:"status"`
		UnitID string `form:"unit_id"`
		Name   string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := memberdomain.ListRequest{Name: strings.TrimSpace(query.Name)}
	if v := strings.TrimSpace(query.Role); v != "" {
		role := memberdomain.Role(v)
		req.Role = &role
	}
	if v := strings.TrimSpace(query.Status); v != "" {
		status := memberdomain.Status(v)
		req.Status = &status
	}
	if v := strings.TrimSpace(query.UnitID); v != "" {
		req.UnitID = &v
	}

	resp, err := s.memberSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateMemberRequest struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Status *string `json:"status"`
	UnitID *string `json:"unit_id"`
}

func (s *Server) UpdateMember(c *gin.Context) {
	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updateReq := memberdomain.UpdateRequest{
		ID:     c.Param("id"),
		Name:   req.Name,
		UnitID: req.UnitID,
	}
	if req.Role != nil {
		role := memberdomain.Role(strings.TrimSpace(*req.Role))
		updateReq.Role = &role
	}
	if req.Status != nil {
		status := memberdomain.Status(strings.TrimSpace(*req.Status))
		updateReq.Status = &status
	}

	resp, err := s.memberSvc.Update(c.Request.Context(), updateReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
