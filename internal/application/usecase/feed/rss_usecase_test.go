package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-portal/internal/domain/content"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

type staticDocument content.Document

func (s staticDocument) Document() content.Document { return content.Document(s) }

func TestRSSUseCase_Execute(t *testing.T) {
	doc := content.EmptyData()
	doc.Profile.Name = "Tilahun Alene Terfie"
	doc.Blogs.All = []content.BlogPost{
		{ID: 1, Category: "news", Title: "Startup week", Summary: "Recap", URL: "https://news.example.com/1", PublishedOn: "2025-02-10"},
		{ID: 2, Category: "insights", Title: "Innovation systems", Summary: "Notes"},
	}

	uc := NewRSSUseCase(staticDocument(doc), "https://portfolio.example.com/", logger.NewNopLogger())
	feed, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Tilahun Alene Terfie - Blog", feed.Title)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "https://news.example.com/1", feed.Items[0].Link.Href)
	assert.Equal(t, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), feed.Items[0].Created)
	assert.Equal(t, "https://portfolio.example.com/insights", feed.Items[1].Link.Href)
	assert.True(t, feed.Items[1].Created.IsZero())

	rss, err := feed.ToRss()
	require.NoError(t, err)
	assert.Contains(t, rss, "<title>Startup week</title>")
}

func TestRSSUseCase_EmptyDocument(t *testing.T) {
	uc := NewRSSUseCase(staticDocument(content.EmptyData()), "", logger.NewNopLogger())
	feed, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Profile - Blog", feed.Title)
	assert.Empty(t, feed.Items)
}
