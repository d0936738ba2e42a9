package fetcher

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/failure"
)

// Document is a parsed static page.
type Document struct {
	*Response
	Doc   *goquery.Document
	Base  *url.URL
	Title string
	// Sufficient is false when the markup looks like a JS shell.
	Sufficient   bool
	ShellReasons []string
}

// ParseHTML decodes the body with its declared or sniffed charset and builds
// a goquery document. Non-HTML content types are a FetchFailed.
func ParseHTML(resp *Response) (*Document, error) {
	if !isHTMLType(resp.ContentType) {
		return nil, failure.Fetchf(TierStatic, resp.URL, "non-HTML content-type %q", resp.ContentType)
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType)
	if err != nil {
		return nil, failure.Parse(TierStatic, resp.URL, fmt.Errorf("charset: %w", err))
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, failure.Parse(TierStatic, resp.URL, err)
	}

	base, err := url.Parse(resp.FinalURL)
	if err != nil || resp.FinalURL == "" {
		base, _ = url.Parse(resp.URL)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok && base != nil {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}
	doc.Url = base

	reasons := ShellReasons(resp.Body)
	return &Document{
		Response:     resp,
		Doc:          doc,
		Base:         base,
		Title:        strings.TrimSpace(doc.Find("title").First().Text()),
		Sufficient:   len(reasons) == 0,
		ShellReasons: reasons,
	}, nil
}

// DocumentFromHTML wraps already-realized markup, such as a rendered DOM.
func DocumentFromHTML(pageURL string, html []byte) (*Document, error) {
	return ParseHTML(&Response{
		URL:         pageURL,
		FinalURL:    pageURL,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        html,
	})
}
