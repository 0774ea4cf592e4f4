package data

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// Headline is one disclosure headline scraped for a ticker.
type Headline struct {
	Ticker    string  `json:"ticker"`
	Text      string  `json:"headline"`
	Sentiment float64 `json:"sentiment_score"`
}

// KAPClient scrapes company summary pages of the Public Disclosure Platform.
type KAPClient struct {
	BaseURL string
	Client  *http.Client

	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewKAPClient creates a scraper. If baseURL is empty, defaults to
// "https://www.kap.org.tr". Requests are limited to one per second.
func NewKAPClient(baseURL string, logger *slog.Logger) *KAPClient {
	if baseURL == "" {
		baseURL = "https://www.kap.org.tr"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &KAPClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
}

// FetchHeadlines returns up to maxItems headlines per ticker, already scored.
// Tickers that fail are logged and skipped; ErrNoData is returned when
// nothing was scraped.
func (c *KAPClient) FetchHeadlines(ctx context.Context, tickers []string, maxItems int) ([]Headline, error) {
	if maxItems <= 0 {
		maxItems = 5
	}
	var out []Headline
	for _, t := range tickers {
		items, err := c.fetchOne(ctx, t, maxItems)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("KAP scrape failed", "ticker", t, "err", err)
			continue
		}
		for _, text := range items {
			out = append(out, Headline{Ticker: t, Text: text, Sentiment: SentimentScore(text)})
		}
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

func (c *KAPClient) fetchOne(ctx context.Context, ticker string, maxItems int) ([]string, error) {
	symbol := strings.SplitN(ticker, ".", 2)[0]
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/en/sirket-bilgileri/ozet/"+symbol, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return listItems(doc, maxItems), nil
}

// listItems returns the text of the first limit <li> elements in document order.
func listItems(n *html.Node, limit int) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(out) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "li" {
			out = append(out, strippedText(n))
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return out
}

// strippedText joins the whitespace-trimmed text nodes under n with single spaces.
func strippedText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

var (
	positiveWords = []string{"anlaşma", "rekor", "kâr", "yüksek", "artış", "büyüme", "yatırım", "onay", "kazan", "başarı"}
	negativeWords = []string{"zarar", "dava", "iptal", "düşüş", "soruşturma", "ceza", "kayıp", "gerileme", "risk", "borç"}
)

// SentimentScore is a naive Turkish keyword score: positive minus negative
// keyword occurrences in the lower-cased text.
func SentimentScore(text string) float64 {
	lower := strings.ToLower(text)
	score := 0
	for _, w := range positiveWords {
		score += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		score -= strings.Count(lower, w)
	}
	return float64(score)
}

// SentimentByTicker averages headline scores per ticker.
func SentimentByTicker(headlines []Headline) map[string]float64 {
	sum := map[string]float64{}
	n := map[string]int{}
	for _, h := range headlines {
		sum[h.Ticker] += h.Sentiment
		n[h.Ticker]++
	}
	out := make(map[string]float64, len(sum))
	for t, s := range sum {
		out[t] = s / float64(n[t])
	}
	return out
}
