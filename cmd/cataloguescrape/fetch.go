package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	fetchAttempts = 3
	fetchDelay    = 1 * time.Second
)

// fetchDocument GETs a catalogue page and parses it, retrying transient
// failures a bounded number of times. Non-2xx responses count as
// failures too; university sites shed load with 503s.
func fetchDocument(client *http.Client, url string, logger *zap.Logger) (*goquery.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(fetchDelay)
		}

		resp, err := client.Get(url)
		if err != nil {
			lastErr = err
			logger.Warn("fetch failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			logger.Warn("fetch failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode))
			continue
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return doc, nil
	}
	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}
