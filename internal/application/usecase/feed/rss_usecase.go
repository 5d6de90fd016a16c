package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-portal/internal/domain/content"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

type DocumentProvider interface {
	Document() content.Document
}

type RSSUseCase struct {
	documents DocumentProvider
	publicURL string
	logger    logger.Logger
	now       func() time.Time
}

func NewRSSUseCase(documents DocumentProvider, publicURL string, log logger.Logger) *RSSUseCase {
	return &RSSUseCase{
		documents: documents,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    log,
		now:       time.Now,
	}
}

func (uc *RSSUseCase) Execute(ctx context.Context) (*feeds.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := uc.documents.Document()

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - Blog", doc.Profile.Name),
		Link:        &feeds.Link{Href: uc.publicURL + "/"},
		Description: doc.Summary,
		Author:      &feeds.Author{Name: doc.Profile.Name, Email: doc.Profile.Email},
		Created:     uc.now(),
	}

	for _, post := range doc.Blogs.All {
		link := post.URL
		if link == "" {
			link = uc.publicURL + "/insights"
		}
		item := &feeds.Item{
			Id:          strconv.FormatInt(post.ID, 10),
			Title:       post.Title,
			Link:        &feeds.Link{Href: link},
			Description: post.Summary,
			Content:     post.Content,
		}
		if published, err := time.Parse(time.DateOnly, post.PublishedOn); err == nil {
			item.Created = published
		}
		feed.Items = append(feed.Items, item)
	}

	uc.logger.Debug("RSS feed generated", zap.Int("item_count", len(feed.Items)))
	return feed, nil
}
