// Package scraper pulls a company name, job title and description out of a
// job posting page.
//
// Only generic document metadata is read (Open Graph tags, <title> and the
// description meta tag). Scraping never fails: any error comes back as
// placeholder values with the error text in the description.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	UnknownCompany   = "Unknown Company"
	UnknownPosition  = "Unknown Position"
	NoDescription    = "Unable to scrape job description from the provided URL."
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBodyBytes     = 4 << 20
)

// Info is what a scrape yields.
type Info struct {
	CompanyName string
	JobTitle    string
	Description string
}

// Scraper extracts posting details from a URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) Info
}

// HTTPScraper fetches the page over HTTP and reads its metadata.
type HTTPScraper struct {
	client    *http.Client
	userAgent string
}

// New creates an HTTPScraper with the given request timeout (default 10s).
func New(timeout time.Duration) *HTTPScraper {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPScraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}
}

// Scrape implements Scraper.
func (s *HTTPScraper) Scrape(ctx context.Context, url string) Info {
	info, err := s.scrape(ctx, url)
	if err != nil {
		return ErrorInfo(err)
	}
	return info
}

// ErrorInfo is the placeholder result for a failed scrape.
func ErrorInfo(err error) Info {
	return Info{
		CompanyName: UnknownCompany,
		JobTitle:    UnknownPosition,
		Description: fmt.Sprintf("Error scraping job: %v", err),
	}
}

func (s *HTTPScraper) scrape(ctx context.Context, url string) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Info{}, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	res, err := s.client.Do(req)
	if err != nil {
		return Info{}, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Info{}, fmt.Errorf("unexpected status %s", res.Status)
	}

	return Parse(io.LimitReader(res.Body, maxBodyBytes))
}

// Parse reads posting details from an HTML document. Missing values are
// filled with the Unknown placeholders.
func Parse(r io.Reader) (Info, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Info{}, fmt.Errorf("failed to parse html: %w", err)
	}

	meta := make(map[string]string)
	var title string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Meta:
				key := strings.ToLower(attr(n, "property"))
				if key == "" {
					key = strings.ToLower(attr(n, "name"))
				}
				if key != "" {
					if _, ok := meta[key]; !ok {
						meta[key] = strings.TrimSpace(attr(n, "content"))
					}
				}
			case atom.Title:
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	info := Info{
		CompanyName: firstNonEmpty(meta["og:site_name"], meta["author"], UnknownCompany),
		JobTitle:    firstNonEmpty(meta["og:title"], meta["twitter:title"], title, UnknownPosition),
		Description: firstNonEmpty(meta["description"], meta["og:description"], NoDescription),
	}
	return info, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
