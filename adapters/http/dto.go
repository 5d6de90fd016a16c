package http

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	contentUC "github.com/khoahotran/profile-portal/internal/application/usecase/content"
	"github.com/khoahotran/profile-portal/internal/domain/contact"
	"github.com/khoahotran/profile-portal/internal/domain/content"
)

// Site DTOs

type SiteContentDTO struct {
	Status   content.LoadStatus `json:"status"`
	Source   content.Source     `json:"source"`
	Error    string             `json:"error,omitempty"`
	LoadedAt *time.Time         `json:"loaded_at,omitempty"`
	Content  content.Document   `json:"content"`
}

type SiteStatusDTO struct {
	Status         content.LoadStatus `json:"status"`
	Source         content.Source     `json:"source"`
	Error          string             `json:"error,omitempty"`
	LoadedAt       *time.Time         `json:"loaded_at,omitempty"`
	SnapshotMode   bool               `json:"snapshot_mode"`
	ContactEnabled bool               `json:"contact_enabled"`
}

func loadedAt(s contentUC.State) *time.Time {
	if s.LoadedAt.IsZero() {
		return nil
	}
	t := s.LoadedAt
	return &t
}

func ToSiteContentDTO(s contentUC.State) SiteContentDTO {
	return SiteContentDTO{
		Status:   s.Status,
		Source:   s.Source,
		Error:    s.Error,
		LoadedAt: loadedAt(s),
		Content:  s.Document,
	}
}

func ToSiteStatusDTO(s contentUC.State, snapshotMode, contactEnabled bool) SiteStatusDTO {
	return SiteStatusDTO{
		Status:         s.Status,
		Source:         s.Source,
		Error:          s.Error,
		LoadedAt:       loadedAt(s),
		SnapshotMode:   snapshotMode,
		ContactEnabled: contactEnabled,
	}
}

type VisibilityRequest struct {
	ClientID string `json:"client_id"`
	State    string `json:"state" binding:"required"`
}

// Contact DTOs

// ContactRequest accepts partial submissions. Missing or null fields become
// empty and non-string values are stringified.
type ContactRequest struct {
	Name    any `json:"name"`
	Email   any `json:"email"`
	Subject any `json:"subject"`
	Message any `json:"message"`
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func (r ContactRequest) ToDomainMessage() contact.Message {
	return contact.Message{
		Name:    stringify(r.Name),
		Email:   stringify(r.Email),
		Subject: stringify(r.Subject),
		Message: stringify(r.Message),
	}
}
