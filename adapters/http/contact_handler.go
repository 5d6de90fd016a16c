package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	contactUC "github.com/khoahotran/profile-portal/internal/application/usecase/contact"
	"github.com/khoahotran/profile-portal/pkg/apperror"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

type ContactHandler struct {
	contactUseCase *contactUC.ContactUseCase
	logger         logger.Logger
}

func NewContactHandler(uc *contactUC.ContactUseCase, log logger.Logger) *ContactHandler {
	return &ContactHandler{
		contactUseCase: uc,
		logger:         log,
	}
}

func (h *ContactHandler) Submit(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.Error(apperror.NewInvalidInput("JSON object payload is required", err))
		return
	}

	input := contactUC.SubmitInput{Message: req.ToDomainMessage()}
	if err := h.contactUseCase.ExecuteSubmit(c.Request.Context(), input); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
