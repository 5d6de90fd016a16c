package contact

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khoahotran/profile-portal/internal/config"
	"github.com/khoahotran/profile-portal/internal/domain/contact"
	"github.com/khoahotran/profile-portal/internal/domain/content"
	"github.com/khoahotran/profile-portal/pkg/apperror"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

type SourceProvider interface {
	CurrentSource() content.Source
}

type ContactUseCase struct {
	sender    contact.Sender
	endpoints config.Endpoints
	sources   SourceProvider
	logger    logger.Logger
}

func NewContactUseCase(sender contact.Sender, endpoints config.Endpoints, sources SourceProvider, log logger.Logger) *ContactUseCase {
	return &ContactUseCase{
		sender:    sender,
		endpoints: endpoints,
		sources:   sources,
		logger:    log,
	}
}

type SubmitInput struct {
	Message contact.Message
}

// Enabled reports whether live submission is possible. It is not while the
// site runs from a static snapshot.
func (uc *ContactUseCase) Enabled() bool {
	if uc.endpoints.IsSnapshotMode || uc.sender == nil {
		return false
	}
	return uc.sources.CurrentSource() != content.SourceSnapshot
}

func (uc *ContactUseCase) ExecuteSubmit(ctx context.Context, input SubmitInput) error {
	if !uc.Enabled() {
		return apperror.NewUnavailable("Contact form is unavailable while the site is served from a static snapshot", "")
	}

	msg := input.Message.Trimmed()
	if err := uc.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("submit contact message failed: %w", err)
	}

	uc.logger.Info("Contact message forwarded", zap.Bool("empty", msg.IsEmpty()), zap.String("subject", msg.Subject))
	return nil
}
