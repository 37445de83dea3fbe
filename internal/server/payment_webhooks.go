package server

import (
	"net/http"

	paymentdomain "github.com/agrocoop/agrocoop/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) HandlePaymentCallback(c *gin.Context) {
	var req paymentdomain.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.ProcessCallback(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
