package httpx

import (
	"net"
	"net/http"
	"time"
)

// Shared client for outbound gateway calls (Stripe checkout, Telegram
// bot API). Both are single-host, low-volume targets, so the idle pool
// stays small and slow upstreams are cut off by the header deadline
// well before the overall timeout.
var defaultClient = &http.Client{
	Timeout: 15 * time.Second,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       60 * time.Second,
		ForceAttemptHTTP2:     true,
	},
}

func Client() *http.Client { return defaultClient }
