package scrapekit

import (
	"context"
	"html"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

var (
	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Detail is the readable content of one detail page.
type Detail struct {
	URL     string
	Title   string
	Content string // main content as Markdown
	Err     error  // fetch failure; the other fields are empty
}

// DocFunc loads one page as a document.
type DocFunc func(ctx context.Context, pageURL string) (*goquery.Document, error)

// FollowDetails visits urls in order over HTTP, one at a time, paced by the
// configured sleep. fn receives every visit, failed ones included. The
// context is checked before each visit; cancellation stops the walk and is
// returned.
func (r *Run) FollowDetails(ctx context.Context, urls []string, fn func(i int, d Detail)) error {
	return r.follow(ctx, urls, r.Document, fn)
}

func (r *Run) follow(ctx context.Context, urls []string, get DocFunc, fn func(int, Detail)) error {
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		d := Detail{URL: u}
		doc, err := get(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn("scrapekit: detail page failed", "url", u, "error", err)
			d.Err = err
		} else {
			d.Title, d.Content = DetailContent(doc)
		}
		r.log.Debug("scrapekit: detail visited", "n", i+1, "of", len(urls), "url", u)
		fn(i, d)
	}
	return nil
}

// DetailContent extracts the page title and its main content as Markdown.
// The readability extraction is sanitized before conversion; pages it cannot
// handle fall back to the collapsed body text.
func DetailContent(doc *goquery.Document) (title, content string) {
	title = strings.TrimSpace(doc.Find("title").First().Text())
	fallback := collapse(doc.Find("body").Text())
	if len(doc.Nodes) == 0 {
		return title, fallback
	}

	pageURL := doc.Url
	if pageURL == nil {
		pageURL = &url.URL{}
	}
	article, err := readability.FromDocument(doc.Nodes[0], pageURL)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return title, fallback
	}
	if article.Title != "" {
		title = strings.TrimSpace(article.Title)
	}

	clean := ugcPolicy.Sanitize(article.Content)
	var opts []converter.ConvertOptionFunc
	if pageURL.Host != "" {
		opts = append(opts, converter.WithDomain(pageURL.Scheme+"://"+pageURL.Host))
	}
	md, err := mdConverter.ConvertString(clean, opts...)
	if err != nil || strings.TrimSpace(md) == "" {
		return title, collapse(article.TextContent)
	}
	return title, strings.TrimSpace(md)
}

// PlainText strips markup from an HTML fragment and folds whitespace.
func PlainText(fragment string) string {
	return collapse(html.UnescapeString(strictPolicy.Sanitize(fragment)))
}
