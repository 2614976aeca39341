package feeds

import (
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hoanghai1803/folio/internal/models"
	"github.com/mmcdole/gofeed"
)

// invalidDate is what an unparsable publish date renders as.
const invalidDate = "Invalid Date"

// dateLayout renders "Jan 2025".
const dateLayout = "Jan 2006"

// entry holds the raw fields of one feed item, from either parsing path.
type entry struct {
	Title           string
	Link            string
	Published       string
	PublishedParsed *time.Time
	Categories      []string
	Content         string
}

// parseEntries returns at most limit entries in document order. The markup
// is parsed with gofeed; if gofeed rejects it, item blocks are extracted with
// patterns instead.
func parseEntries(markup string, limit int) []entry {
	feed, err := gofeed.NewParser().ParseString(markup)
	if err != nil {
		slog.Warn("structured feed parse failed, using pattern extraction", "error", err)
		return extractEntries(markup, limit)
	}
	return feedEntries(feed, limit)
}

// feedEntries converts the first limit gofeed items into entries.
func feedEntries(feed *gofeed.Feed, limit int) []entry {
	items := feed.Items
	if len(items) > limit {
		items = items[:limit]
	}

	entries := make([]entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, entry{
			Title:           strings.TrimSpace(item.Title),
			Link:            strings.TrimSpace(item.Link),
			Published:       strings.TrimSpace(item.Published),
			PublishedParsed: item.PublishedParsed,
			Categories:      item.Categories,
			Content:         item.Content,
		})
	}
	return entries
}

// toArticle shapes an entry into its published form.
func toArticle(e entry, defaultTag string) models.Article {
	label := defaultTag
	if len(e.Categories) > 0 {
		label = e.Categories[0]
	}

	return models.Article{
		Title:     strings.TrimSpace(e.Title),
		Date:      formatDate(e),
		Tag:       HumanizeTag(label),
		URL:       CanonicalURL(e.Link),
		Thumbnail: firstImage(e.Content),
	}
}

// formatDate renders the entry's publish date as "Jan 2006" in UTC.
func formatDate(e entry) string {
	if e.PublishedParsed != nil {
		return e.PublishedParsed.UTC().Format(dateLayout)
	}
	if e.Published == "" {
		return invalidDate
	}
	t, err := dateparse.ParseIn(e.Published, time.UTC)
	if err != nil {
		return invalidDate
	}
	return t.UTC().Format(dateLayout)
}

// CanonicalURL drops everything from the first "?" onward, which removes
// tracking parameters such as Medium's "source=rss".
func CanonicalURL(link string) string {
	before, _, _ := strings.Cut(link, "?")
	return before
}
