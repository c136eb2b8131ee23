package api

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Host stands in for the phone's webview: it remembers the last URL the
// bridge asked to open so the dashboard and /api/status can show it.
type Host struct {
	mu      sync.Mutex
	lastURL string
	log     hclog.Logger
	notify  func(url string)
}

// NewHost creates a host. notify, if set, is called for every opened URL.
func NewHost(log hclog.Logger, notify func(url string)) *Host {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Host{log: log, notify: notify}
}

// OpenURL records url as the page to show.
func (h *Host) OpenURL(ctx context.Context, url string) error {
	h.mu.Lock()
	h.lastURL = url
	h.mu.Unlock()

	h.log.Info("open configuration page", "url", url)
	if h.notify != nil {
		h.notify(url)
	}
	return nil
}

// LastURL returns the most recently opened URL.
func (h *Host) LastURL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastURL
}
