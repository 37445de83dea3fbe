package server

import (
	"net/http"
	"strings"
	"time"

	assignmentdomain "github.com/agrocoop/agrocoop/internal/feeassignment/domain"
	feeruledomain "github.com/agrocoop/agrocoop/internal/feerule/domain"
	"github.com/gin-gonic/gin"
)

type createFeeRuleRequest struct {
	Name          string   `json:"name"`
	FeeType       string   `json:"fee_type"`
	Amount        float64  `json:"amount"`
	Frequency     string   `json:"frequency"`
	UnitLabel     string   `json:"unit_label"`
	Status        *string  `json:"status"`
	AppliesTo     string   `json:"applies_to"`
	Description   *string  `json:"description"`
	EffectiveDate string   `json:"effective_date"`
	CreatedBy     string   `json:"created_by"`
}

func (s *Server) CreateFeeRule(c *gin.Context) {
	var req createFeeRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	effectiveDate, err := parseDate(req.EffectiveDate)
	if err != nil {
		AbortWithError(c, newValidationError("effective_date", "invalid_effective_date", "invalid effective_date"))
		return
	}

	createReq := feeruledomain.CreateRequest{
		Name:          req.Name,
		FeeType:       feeruledomain.FeeType(strings.TrimSpace(req.FeeType)),
		Amount:        req.Amount,
		Frequency:     feeruledomain.Frequency(strings.TrimSpace(req.Frequency)),
		UnitLabel:     req.UnitLabel,
		AppliesTo:     feeruledomain.AppliesTo(strings.TrimSpace(req.AppliesTo)),
		Description:   req.Description,
		EffectiveDate: effectiveDate,
		CreatedBy:     req.CreatedBy,
	}
	if req.Status != nil {
		status := feeruledomain.Status(strings.TrimSpace(*req.Status))
		createReq.Status = &status
	}

	resp, err := s.ruleSvc.Create(c.Request.Context(), createReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetFeeRule(c *gin.Context) {
	resp, err := s.ruleSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListFeeRules(c *gin.Context) {
	var query struct {
		FeeType   string `form:"fee_type"`
		Status    string `form:"status"`
		AppliesTo string `form:"applies_to"`
		Name      string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := feeruledomain.ListRequest{Name: strings.TrimSpace(query.Name)}
	if v := strings.TrimSpace(query.FeeType); v != "" {
		feeType := feeruledomain.FeeType(v)
		req.FeeType = &feeType
	}
	if v := strings.TrimSpace(query.Status); v != "" {
		status := feeruledomain.Status(v)
		req.Status = &status
	}
	if v := strings.TrimSpace(query.AppliesTo); v != "" {
		appliesTo := feeruledomain.AppliesTo(v)
		req.AppliesTo = &appliesTo
	}

	resp, err := s.ruleSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateFeeRuleRequest struct {
	Name          *string  `json:"name"`
	FeeType       *string  `json:"fee_type"`
	Amount        *float64 `json:"amount"`
	Frequency     *string  `json:"frequency"`
	UnitLabel     *string  `json:"unit_label"`
	Status        *string  `json:"status"`
	AppliesTo     *string  `json:"applies_to"`
	Description   *string  `json:"description"`
	EffectiveDate *string  `json:"effective_date"`
}

func (s *Server) UpdateFeeRule(c *gin.Context) {
	var req updateFeeRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updateReq := feeruledomain.UpdateRequest{
		ID:          c.Param("id"),
		Name:        req.Name,
		Amount:      req.Amount,
		UnitLabel:   req.UnitLabel,
		Description: req.Description,
	}
	if req.FeeType != nil {
		feeType := feeruledomain.FeeType(strings.TrimSpace(*req.FeeType))
		updateReq.FeeType = &feeType
	}
	if req.Frequency != nil {
		frequency := feeruledomain.Frequency(strings.TrimSpace(*req.Frequency))
		updateReq.Frequency = &frequency
	}
	if req.Status != nil {
		status := feeruledomain.Status(strings.TrimSpace(*req.Status))
		updateReq.Status = &status
	}
	if req.AppliesTo != nil {
		appliesTo := feeruledomain.AppliesTo(strings.TrimSpace(*req.AppliesTo))
		updateReq.AppliesTo = &appliesTo
	}
	if req.EffectiveDate != nil {
		effectiveDate, err := parseDate(*req.EffectiveDate)
		if err != nil {
			AbortWithError(c, newValidationError("effective_date", "invalid_effective_date", "invalid effective_date"))
			return
		}
		updateReq.EffectiveDate = &effectiveDate
	}

	resp, err := s.ruleSvc.Update(c.Request.Context(), updateReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFeeRule(c *gin.Context) {
	if err := s.ruleSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type scheduleFeeRuleRequest struct {
	EffectiveDate string `json:"effective_date"`
}

func (s *Server) ScheduleFeeRule(c *gin.Context) {
	var req scheduleFeeRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	effectiveDate, err := parseDate(req.EffectiveDate)
	if err != nil {
		AbortWithError(c, newValidationError("effective_date", "invalid_effective_date", "invalid effective_date"))
		return
	}

	resp, err := s.ruleSvc.Schedule(c.Request.Context(), c.Param("id"), effectiveDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApplyFeeRule(c *gin.Context) {
	result, err := s.applicationSvc.Apply(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

type assignUnitsRequest struct {
	Assignments []assignmentdomain.UnitAssignment `json:"assignments"`
}

func (s *Server) AssignFeeRuleToUnits(c *gin.Context) {
	var req assignUnitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.assignmentSvc.Assign(c.Request.Context(), assignmentdomain.AssignRequest{
		FeeRuleID:   c.Param("id"),
		Assignments: req.Assignments,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListFeeRuleAssignments(c *gin.Context) {
	resp, err := s.assignmentSvc.ListByRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
