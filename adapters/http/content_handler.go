package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-portal/adapters/visibility"
	contentUC "github.com/khoahotran/profile-portal/internal/application/usecase/content"
	"github.com/khoahotran/profile-portal/pkg/apperror"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

type ContentLoader interface {
	State() contentUC.State
	Refresh(ctx context.Context)
	SnapshotMode() bool
}

type ContactAvailability interface {
	Enabled() bool
}

type ContentHandler struct {
	loader  ContentLoader
	contact ContactAvailability
	tracker *visibility.Tracker
	logger  logger.Logger
}

func NewContentHandler(loader ContentLoader, contact ContactAvailability, tracker *visibility.Tracker, log logger.Logger) *ContentHandler {
	return &ContentHandler{
		loader:  loader,
		contact: contact,
		tracker: tracker,
		logger:  log,
	}
}

func (h *ContentHandler) GetContent(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, ToSiteContentDTO(h.loader.State()))
}

func (h *ContentHandler) GetStatus(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, h.statusDTO())
}

// Refresh runs a visible reload and reports the resulting status. A failed
// reload is still a 200: the failure is part of the reported state.
func (h *ContentHandler) Refresh(c *gin.Context) {
	h.loader.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, h.statusDTO())
}

func (h *ContentHandler) ReportVisibility(c *gin.Context) {
	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("state must be 'visible' or 'hidden'", err))
		return
	}
	state, err := visibility.ParseState(req.State)
	if err != nil {
		c.Error(apperror.NewInvalidInput(err.Error(), err))
		return
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = c.ClientIP()
	}
	regained := h.tracker.Report(clientID, state)
	if regained {
		h.logger.Debug("Visibility regained", zap.String("client_id", clientID))
	}
	c.JSON(http.StatusAccepted, gin.H{"reload": regained})
}

// ForgetVisibility drops a client, e.g. on page unload.
func (h *ContentHandler) ForgetVisibility(c *gin.Context) {
	h.tracker.Forget(c.Param("client_id"))
	c.Status(http.StatusNoContent)
}

func (h *ContentHandler) statusDTO() SiteStatusDTO {
	return ToSiteStatusDTO(h.loader.State(), h.loader.SnapshotMode(), h.contact.Enabled())
}
