package summarize

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// maxBodyBytes caps how much of a page we are willing to read.
const maxBodyBytes = 5 << 20

// Page is the readable content extracted from a fetched URL.
type Page struct {
	Title   string
	Content string
}

// Fetcher retrieves a web page and reduces it to readable markdown suitable
// for the analyzer prompt.
type Fetcher struct {
	client    *http.Client
	converter *md.Converter
	maxChars  int
}

// NewFetcher builds a fetcher. maxChars bounds the extracted content length;
// longer pages are truncated with a "..." marker so prompts stay within the
// model's context budget.
func NewFetcher(timeout time.Duration, maxChars int) *Fetcher {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		converter: converter,
		maxChars:  maxChars,
	}
}

// Fetch downloads the page at rawURL and extracts its readable content.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	pageURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch content: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	page := f.extract(body, pageURL)
	page.Content = truncate(page.Content, f.maxChars)
	return page, nil
}

// extract runs readability over the raw HTML and converts the article node
// to markdown. When readability cannot find an article it degrades to
// converting the whole document.
func (f *Fetcher) extract(body []byte, pageURL *url.URL) *Page {
	page := &Page{}

	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err == nil {
		page.Title = article.Title
		if markdown, convErr := f.converter.ConvertString(article.Content); convErr == nil {
			page.Content = cleanMarkdown(markdown)
		} else {
			page.Content = strings.TrimSpace(article.TextContent)
		}
	}

	if page.Content == "" {
		if markdown, convErr := f.converter.ConvertString(string(body)); convErr == nil {
			page.Content = cleanMarkdown(markdown)
		}
	}
	if page.Title == "" {
		page.Title = extractHTMLTitle(body)
	}

	return page
}

func truncate(content string, maxChars int) string {
	if maxChars <= 0 || len(content) <= maxChars {
		return content
	}
	// Back up to a rune boundary so the cut never leaves invalid UTF-8.
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}

func cleanMarkdown(markdown string) string {
	lines := strings.Split(markdown, "\n")
	var (
		out   []string
		blank int
	)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 2 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			if title == "" {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
