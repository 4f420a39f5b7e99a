package tool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Some sites refuse requests without a browser user agent.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var defaultHTTPClient = &http.Client{Timeout: 15 * time.Second}

func fetchDocument(ctx context.Context, client *http.Client, url string) (*goquery.Document, error) {
	if client == nil {
		client = defaultHTTPClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch URL: status code %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// FetchTitle returns the <title> of the page at url, falling back to its
// og:title meta tag. A page with neither yields "".
func FetchTitle(ctx context.Context, client *http.Client, url string) (string, error) {
	doc, err := fetchDocument(ctx, client, url)
	if err != nil {
		return "", err
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}
	og := doc.Find(`meta[property="og:title"]`).First().AttrOr("content", "")
	return strings.TrimSpace(og), nil
}

// WebFetch returns the visible text of the page at url.
func WebFetch(url string) (string, error) {
	return WebFetchContext(context.Background(), nil, url)
}

// WebFetchContext is WebFetch with a context and client.
func WebFetchContext(ctx context.Context, client *http.Client, url string) (string, error) {
	doc, err := fetchDocument(ctx, client, url)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if text == "" {
		return "", errors.New("no text content found")
	}
	return text, nil
}

// PageTitle is a tool returning the title of a web page.
type PageTitle struct {
	Client *http.Client
}

var _ Tool = (*PageTitle)(nil)

func (p *PageTitle) Name() string { return "page_title" }

func (p *PageTitle) Description() string {
	return "Fetches a web page and returns its title."
}

func (p *PageTitle) Definition() Definition {
	return Definition{
		Name:        p.Name(),
		Description: p.Description(),
		Parameters:  stringParams([2]string{"url", "Absolute URL of the page."}),
	}
}

func (p *PageTitle) Call(ctx context.Context, input string) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := parseArgs(input, &args, &args.URL); err != nil {
		return "", err
	}
	title, err := FetchTitle(ctx, p.Client, strings.TrimSpace(args.URL))
	if err != nil {
		return "", err
	}
	if title == "" {
		return "(no title)", nil
	}
	return title, nil
}

// WebFetchTool is a tool returning the text of a web page.
type WebFetchTool struct {
	Client *http.Client
	// MaxChars truncates the text when positive.
	MaxChars int
}

var _ Tool = (*WebFetchTool)(nil)

func (w *WebFetchTool) Name() string { return "web_fetch" }

func (w *WebFetchTool) Description() string {
	return "Fetches a web page and returns its visible text."
}

func (w *WebFetchTool) Definition() Definition {
	return Definition{
		Name:        w.Name(),
		Description: w.Description(),
		Parameters:  stringParams([2]string{"url", "Absolute URL of the page."}),
	}
}

func (w *WebFetchTool) Call(ctx context.Context, input string) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := parseArgs(input, &args, &args.URL); err != nil {
		return "", err
	}
	text, err := WebFetchContext(ctx, w.Client, strings.TrimSpace(args.URL))
	if err != nil {
		return "", err
	}
	if w.MaxChars > 0 && utf8.RuneCountInString(text) > w.MaxChars {
		text = string([]rune(text)[:w.MaxChars])
	}
	return text, nil
}
