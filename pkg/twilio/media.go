package twilio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultMaxMediaBytes = 25 << 20

// MediaDownloader fetches inbound media. Twilio media URLs require basic
// auth and redirect to a storage host that rejects those credentials, so
// auth is only attached while the request stays on a Twilio host.
type MediaDownloader struct {
	accountSID string
	authToken  string
	maxBytes   int64
	httpClient *http.Client
}

type Media struct {
	Data        []byte
	ContentType string
}

func NewMediaDownloader(cfg Config) *MediaDownloader {
	timeout := cfg.MediaTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxMediaBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxMediaBytes
	}

	return &MediaDownloader{
		accountSID: strings.TrimSpace(cfg.AccountSID),
		authToken:  strings.TrimSpace(cfg.AuthToken),
		maxBytes:   maxBytes,
		httpClient: &http.Client{
			Timeout:       timeout,
			CheckRedirect: stripAuthOffTwilio,
		},
	}
}

func (d *MediaDownloader) Download(ctx context.Context, mediaURL string) (*Media, error) {
	u, err := url.Parse(strings.TrimSpace(mediaURL))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid media url %q", mediaURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	if isTwilioHost(u.Hostname()) && d.accountSID != "" && d.authToken != "" {
		req.SetBasicAuth(d.accountSID, d.authToken)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("download media: status=%d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("media exceeds %d bytes", d.maxBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("media is empty")
	}

	return &Media{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func stripAuthOffTwilio(req *http.Request, via []*http.Request) error {
	if len(via) >= 5 {
		return errors.New("stopped after 5 redirects")
	}
	if !isTwilioHost(req.URL.Hostname()) {
		req.Header.Del("Authorization")
	}
	return nil
}

func isTwilioHost(host string) bool {
	host = strings.ToLower(host)
	return host == "twilio.com" || strings.HasSuffix(host, ".twilio.com")
}
