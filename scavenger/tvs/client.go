package tvs

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"resty.dev/v3"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	origin    = "https://www.redstone.finance"

	defaultTimeout          = 20 * time.Second
	defaultRetryCount       = 3
	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 10 * time.Second
)

// NewLimiter returns the limiter shared by all fetchers of one process: one request every 10 seconds, burst of 2.
func NewLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(10*time.Second), 2)
}

// newHTTPClient creates a resty client with browser-like headers and retries for transient failures.
func newHTTPClient(accept string) *resty.Client {
	return resty.New().
		SetTimeout(defaultTimeout).
		SetHeaders(map[string]string{
			"User-Agent": userAgent,
			"Accept":     accept,
			"Origin":     origin,
			"Referer":    origin + "/",
		}).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(defaultRetryWaitTime).
		SetRetryMaxWaitTime(defaultRetryMaxWaitTime).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)
}

// retryCondition retries network errors, 408, 429 and 5xx.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func retryHook(r *resty.Response, err error) {
	if err != nil {
		slog.Debug("[tvs][retry] retrying request due to error",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("[tvs][retry] retrying request due to status code",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}

// get waits for the limiter, performs a GET and returns the body of a 2xx response.
// All failures are returned as *FetchError.
func get(ctx context.Context, source string, client *resty.Client, limiter *rate.Limiter, url string) (string, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return "", newNetworkError(source, err)
		}
	}

	resp, err := client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return "", newNetworkError(source, err)
	}

	if !resp.IsSuccess() {
		return "", newStatusError(source, resp.StatusCode())
	}

	return resp.String(), nil
}
