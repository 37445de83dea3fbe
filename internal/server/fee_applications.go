package server

import (
	"net/http"
	"strings"

	applicationdomain "github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	"github.com/agrocoop/agrocoop/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListFeeApplications(c *gin.Context) {
	var query struct {
		pagination.Pagination
		FeeRuleID string `form:"fee_rule_id"`
		MemberID  string `form:"member_id"`
		UnitID    string `form:"unit_id"`
		Status    string `form:"status"`
		DueBefore string `form:"due_before"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := applicationdomain.ListRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	}
	if v := strings.TrimSpace(query.FeeRuleID); v != "" {
		req.FeeRuleID = &v
	}
	if v := strings.TrimSpace(query.MemberID); v != "" {
		req.MemberID = &v
	}
	if v := strings.TrimSpace(query.UnitID); v != "" {
		req.UnitID = &v
	}
	if v := strings.TrimSpace(query.Status); v != "" {
		status := applicationdomain.Status(v)
		req.Status = &status
	}
	if v := strings.TrimSpace(query.DueBefore); v != "" {
		dueBefore, err := parseDate(v)
		if err != nil {
			AbortWithError(c, newValidationError("due_before", "invalid_due_before", "invalid due_before"))
			return
		}
		req.DueBefore = &dueBefore
	}

	resp, err := s.applicationSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFeeApplication(c *gin.Context) {
	resp, err := s.applicationSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type cancelFeeApplicationRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) CancelFeeApplication(c *gin.Context) {
	var req cancelFeeApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.applicationSvc.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
