// Package bridge turns watch configuration events into AppMessages.
//
// A show-configuration event opens the settings page; a webview-closed
// event decodes the page's answer, persists it and forwards a complete
// message to the watch. The legacy variant reproduces the older hosted
// page, which only offered three color choices.
package bridge

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/combee/resistor-time-config/internal/settings"
	"github.com/combee/resistor-time-config/internal/store"
	"github.com/combee/resistor-time-config/internal/watch"
	"github.com/hashicorp/go-hclog"
)

// Variant selects the settings page and message mapping.
type Variant string

const (
	VariantCurrent Variant = "current"
	VariantLegacy  Variant = "legacy"
)

// DefaultReturnTo is where the settings page sends its answer on the phone.
const DefaultReturnTo = "pebblejs://close#"

// ParseVariant accepts "current" and "legacy"; empty means current.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantCurrent:
		return VariantCurrent, nil
	case VariantLegacy:
		return VariantLegacy, nil
	}
	return "", fmt.Errorf("unknown variant %q", s)
}

// Host opens the configuration webview.
type Host interface {
	OpenURL(ctx context.Context, url string) error
}

// HostFunc adapts a function to Host.
type HostFunc func(ctx context.Context, url string) error

func (f HostFunc) OpenURL(ctx context.Context, url string) error {
	return f(ctx, url)
}

// Sender is the message channel to the watch.
type Sender interface {
	SendAppMessage(ctx context.Context, values map[string]int32) *watch.Pending
}

// Options are the parts of the bridge that may change at runtime.
type Options struct {
	Variant       Variant
	LegacyPageURL string
	FormURL       string
	ReturnTo      string
}

// Sent is a message handed to the watch.
type Sent struct {
	ID      string
	Record  settings.Record
	Message settings.Message
	Pending *watch.Pending
}

// Bridge handles configuration events. Handlers are serialized.
type Bridge struct {
	mu      sync.Mutex
	opts    Options
	schema  *settings.Schema
	host    Host
	sender  Sender
	store   store.Store
	history *History
	log     hclog.Logger
	seq     int
}

// New creates a bridge. A nil schema means settings.Default().
func New(opts Options, schema *settings.Schema, host Host, sender Sender, st store.Store, log hclog.Logger) *Bridge {
	if schema == nil {
		schema = settings.Default()
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if opts.ReturnTo == "" {
		opts.ReturnTo = DefaultReturnTo
	}
	if opts.Variant == "" {
		opts.Variant = VariantCurrent
	}
	return &Bridge{
		opts:    opts,
		schema:  schema,
		host:    host,
		sender:  sender,
		store:   st,
		history: NewHistory(50),
		log:     log,
	}
}

// Schema returns the settings schema.
func (b *Bridge) Schema() *settings.Schema {
	return b.schema
}

// History returns the sent message history.
func (b *Bridge) History() *History {
	return b.history
}

// Options returns the current options.
func (b *Bridge) Options() Options {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opts
}

// SetOptions replaces the options, e.g. after a config reload.
func (b *Bridge) SetOptions(opts Options) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if opts.ReturnTo == "" {
		opts.ReturnTo = DefaultReturnTo
	}
	if opts.Variant == "" {
		opts.Variant = VariantCurrent
	}
	b.opts = opts
}

// Ready handles the watchapp's ready event.
func (b *Bridge) Ready(ctx context.Context) {
	b.log.Info("watchapp ready", "variant", b.Options().Variant)
}

// Settings returns the persisted settings, or the schema defaults.
func (b *Bridge) Settings() settings.Record {
	raw, ok := b.get(store.KeySettings)
	if !ok {
		return b.schema.Defaults()
	}
	rec, err := b.schema.Decode(raw)
	if err != nil {
		b.log.Warn("ignoring persisted settings", "error", err)
		return b.schema.Defaults()
	}
	return rec
}

// ShowConfiguration builds the settings page URL and asks the host to
// open it.
func (b *Bridge) ShowConfiguration(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var u string
	switch b.opts.Variant {
	case VariantLegacy:
		u = b.opts.LegacyPageURL
		if color, ok := b.get(store.KeyColor); ok && color != "" {
			u += "?color=" + color
		}
	default:
		u = b.opts.FormURL + "?return_to=" + url.QueryEscape(b.opts.ReturnTo)
	}

	b.log.Info("opening configuration", "url", u)
	if b.host != nil {
		if err := b.host.OpenURL(ctx, u); err != nil {
			return u, fmt.Errorf("opening %s: %w", u, err)
		}
	}
	return u, nil
}

// WebviewClosed handles the settings page's answer. An empty response
// means the page was cancelled: nothing is decoded or sent and the
// result is nil.
func (b *Bridge) WebviewClosed(ctx context.Context, response string) (*Sent, error) {
	if strings.TrimSpace(response) == "" {
		b.log.Debug("configuration cancelled")
		return nil, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var rec settings.Record
	var msg settings.Message
	switch b.opts.Variant {
	case VariantLegacy:
		token := response
		if unescaped, err := url.QueryUnescape(token); err == nil {
			token = unescaped
		}
		token = strings.TrimSpace(token)
		var choice string
		rec = b.Settings()
		msg, choice = settings.BuildLegacyMessage(token, rec)
		rec[settings.KeyColorChoice] = settings.LegacyScheme(choice)
		b.set(store.KeyColor, choice)
	default:
		var err error
		rec, err = b.schema.Decode(response)
		if err != nil {
			b.log.Warn("ignoring configuration response", "error", err)
			return nil, err
		}
		msg = settings.BuildMessage(rec)
	}
	b.set(store.KeySettings, rec.Encode())

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	b.seq++
	sent := &Sent{
		ID:      fmt.Sprintf("msg-%d", b.seq),
		Record:  rec,
		Message: msg,
	}
	b.log.Debug("configuration decoded", "id", sent.ID, "settings", rec, "message", msg.Map())

	b.history.add(sent.ID, b.opts.Variant, msg)
	if b.sender == nil {
		sent.Pending = watch.Failed(watch.ErrNotConnected)
	} else {
		sent.Pending = b.sender.SendAppMessage(ctx, msg.Map())
	}
	go b.report(sent)
	return sent, nil
}

func (b *Bridge) report(sent *Sent) {
	d := sent.Pending.Result()
	b.history.complete(sent.ID, d.Transport, d.Err)
	if d.OK() {
		b.log.Info("sent config data to watch", "id", sent.ID, "tx", d.TransactionID, "transport", d.Transport)
		return
	}
	b.log.Warn("failed to send config data", "id", sent.ID, "error", d.Err)
}

func (b *Bridge) get(key string) (string, bool) {
	if b.store == nil {
		return "", false
	}
	v, ok, err := b.store.Get(key)
	if err != nil {
		b.log.Warn("reading preference", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (b *Bridge) set(key, value string) {
	if b.store == nil {
		return
	}
	if err := b.store.Set(key, value); err != nil {
		b.log.Warn("persisting preference", "key", key, "error", err)
	}
}
