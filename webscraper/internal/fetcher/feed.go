package fetcher

import (
	"bytes"
	"errors"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/failure"
)

// MaxFeedPreview caps the items kept from a parsed feed.
const MaxFeedPreview = 10

// FeedItem is one previewed entry.
type FeedItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Date    string `json:"date"`
	Summary string `json:"summary,omitempty"`
}

// FeedDocument is a parsed RSS or Atom feed.
type FeedDocument struct {
	*Response
	Type      string // "rss" or "atom"
	Title     string
	ItemCount int
	Items     []FeedItem // first entries, up to the parse limit
}

// LooksLikeFeed sniffs a response as XML syndication: content-type, URL
// suffix, then leading bytes.
func LooksLikeFeed(resp *Response) bool {
	ct := strings.ToLower(resp.ContentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") || strings.Contains(ct, "xml") {
		if !strings.Contains(ct, "xhtml") {
			return true
		}
	}

	path := strings.ToLower(resp.URL)
	if u, err := url.Parse(resp.URL); err == nil {
		path = strings.ToLower(strings.TrimSuffix(u.Path, "/"))
	}
	for _, suffix := range []string{".xml", ".rss", ".atom", "/rss", "/feed", "/atom"} {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}

	head := bytes.TrimLeft(resp.Body, " \t\r\n\uFEFF")
	head = head[:min(len(head), 256)]
	head = bytes.ToLower(head)
	return bytes.HasPrefix(head, []byte("<?xml")) ||
		bytes.HasPrefix(head, []byte("<rss")) ||
		bytes.HasPrefix(head, []byte("<feed")) ||
		bytes.HasPrefix(head, []byte("<rdf:rdf"))
}

// ParseFeed checks the root element and parses an RSS or Atom body, keeping
// MaxFeedPreview items. Any other root, JSON feeds included, is a ParseFailed.
func ParseFeed(resp *Response) (*FeedDocument, error) {
	return ParseFeedN(resp, MaxFeedPreview)
}

// ParseFeedN is ParseFeed keeping at most limit items. limit <= 0 keeps all.
func ParseFeedN(resp *Response, limit int) (*FeedDocument, error) {
	var kind string
	switch gofeed.DetectFeedType(bytes.NewReader(resp.Body)) {
	case gofeed.FeedTypeRSS:
		kind = "rss"
	case gofeed.FeedTypeAtom:
		kind = "atom"
	default:
		return nil, failure.Parse(TierFeed, resp.URL, errors.New("root element is not rss, rdf:RDF or feed"))
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, failure.Parse(TierFeed, resp.URL, err)
	}

	fd := &FeedDocument{
		Response:  resp,
		Type:      kind,
		Title:     strings.TrimSpace(parsed.Title),
		ItemCount: len(parsed.Items),
	}
	for _, it := range parsed.Items {
		if limit > 0 && len(fd.Items) == limit {
			break
		}
		date := it.Published
		if date == "" {
			date = it.Updated
		}
		fd.Items = append(fd.Items, FeedItem{
			Title:   strings.TrimSpace(it.Title),
			Link:    strings.TrimSpace(it.Link),
			Date:    strings.TrimSpace(date),
			Summary: strings.TrimSpace(it.Description),
		})
	}
	return fd, nil
}
