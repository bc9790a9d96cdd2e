package fetch

import (
	"context"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// Fetcher 頁面抓取介面，引擎透過它取得 HTML
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// Client HTTP 頁面抓取客戶端
type Client struct {
	rest  *resty.Client
	cache *PageCache
}

// NewClient 創建抓取客戶端，cache 可為 nil
func NewClient(cfg *config.Config, cache *PageCache) *Client {
	rest := resty.New().
		SetTimeout(cfg.Scraper.FetchTimeout).
		SetHeader("User-Agent", cfg.Scraper.UserAgent).
		SetHeader("Accept-Language", cfg.Scraper.Locale)

	return &Client{
		rest:  rest,
		cache: cache,
	}
}

// FetchPage 抓取一個頁面並回傳 HTML
// 網路錯誤或非 2xx 狀態碼都轉成 FetchFailureError
func (c *Client) FetchPage(ctx context.Context, url string) (string, error) {
	if html, ok := c.cache.Get(ctx, url); ok {
		return html, nil
	}

	start := time.Now()
	resp, err := c.rest.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		common.LogFetch(url, 0, time.Since(start), err)
		return "", common.NewFetchFailureError(url, 0, err)
	}

	common.LogFetch(url, resp.StatusCode(), time.Since(start), nil)

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return "", common.NewFetchFailureError(url, resp.StatusCode(), nil)
	}

	html := string(resp.Body())
	c.cache.Set(ctx, url, html)
	return html, nil
}
