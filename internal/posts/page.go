package posts

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PerPage is the number of posts shown per page.
const PerPage = 5

// PreviewRunes bounds the description shown in listings.
const PreviewRunes = 300

// Page is one screen of the posts listing.
type Page struct {
	Posts []Post
	// Number is zero-based.
	Number int
	Pages  int
	Total  int
}

// HasPrev reports whether an earlier page exists.
func (p Page) HasPrev() bool { return p.Number > 0 }

// HasNext reports whether a later page exists.
func (p Page) HasNext() bool { return p.Number+1 < p.Pages }

// LoadPage reads page n (zero-based) from store. Out-of-range pages are clamped.
func LoadPage(ctx context.Context, store Store, n int) (Page, error) {
	total, err := store.Count(ctx)
	if err != nil {
		return Page{}, err
	}
	pages := (total + PerPage - 1) / PerPage
	if n >= pages {
		n = pages - 1
	}
	if n < 0 {
		n = 0
	}
	out := Page{Number: n, Pages: pages, Total: total}
	if total == 0 {
		return out, nil
	}
	out.Posts, err = store.List(ctx, n*PerPage, PerPage)
	if err != nil {
		return Page{}, err
	}
	return out, nil
}

const timeLayout = "02.01.2006 15:04"

const separator = "──────────────────────────────"

// Render formats the page for a chat message, with times shown in loc.
func (p Page) Render(loc *time.Location) string {
	if p.Total == 0 {
		return "📭 No channel posts saved yet.\nPosts appear here automatically after they are published in the channel."
	}
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📰 Channel posts\n\nPage %d of %d\nTotal posts: %d\n\n%s\n\n", p.Number+1, p.Pages, p.Total, separator)
	for _, post := range p.Posts {
		b.WriteString(FormatPost(post, loc))
		fmt.Fprintf(&b, "\n\n%s\n\n", separator)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatPost renders a single post.
func FormatPost(p Post, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 Post #%d\n", p.MessageID)
	if p.Label != nil && *p.Label != "" {
		fmt.Fprintf(&b, "\n🏷 Type: %s\n", *p.Label)
	}
	if p.Description != nil && *p.Description != "" {
		d := *p.Description
		if t := Truncate(d, PreviewRunes); t != d {
			d = t + "..."
		}
		fmt.Fprintf(&b, "\n📝 Description:\n%s\n", d)
	}
	if p.PublishedAt != nil {
		fmt.Fprintf(&b, "\n📅 Published: %s\n", p.PublishedAt.In(loc).Format(timeLayout))
	}
	fmt.Fprintf(&b, "\n🕐 Processed: %s", p.CreatedAt.In(loc).Format(timeLayout))
	return b.String()
}
