package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saral-edu/institute-api/internal/service"
	"github.com/saral-edu/institute-api/pkg/response"
)

// VerificationHandler exposes the public result verification endpoint.
type VerificationHandler struct {
	verification *service.VerificationService
}

// NewVerificationHandler constructs a verification handler.
func NewVerificationHandler(verification *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// VerifyByRoll godoc
// @Summary Look up published results by roll number
// @Tags Verification
// @Produce json
// @Param rollNumber path string true "Roll number"
// @Success 200 {object} response.Envelope
// @Router /verify/results/{rollNumber} [get]
func (h *VerificationHandler) VerifyByRoll(c *gin.Context) {
	results, err := h.verification.VerifyByRoll(c.Request.Context(), c.Param("rollNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}
