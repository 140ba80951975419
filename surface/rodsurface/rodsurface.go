// Package rodsurface drives a real HTML canvas page over CDP. It
// implements surface.Surface on top of a Rod page: geometry and
// attributes are read and written through Eval, and an injected
// MutationObserver streams attribute/child-list changes back over a
// runtime binding.
//
// Every element under the canvas root gets a data-folio-el handle
// assigned by the injected script; Go-side nodes address elements by
// that handle, so they survive reference churn on the page side.
package rodsurface

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/folio/surface"
)

//go:embed surface.js
var surfaceJS []byte

const bindingName = "__folio_binding"

// Config configures a live surface.
type Config struct {
	// Root is the CSS selector of the canvas root element. Direct
	// children of the root are the observed nodes. Default: "body".
	Root string

	// Stealth creates pages through go-rod/stealth, for hosts that
	// fingerprint automation.
	Stealth bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Root == "" {
		c.Root = "body"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Surface is a live canvas page.
type Surface struct {
	page   *rod.Page
	root   string
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	subs    map[int]func(surface.Batch)
	nextSub int
	seq     uint64
	nodes   map[int]*Node

	vp *Viewport
}

// OpenPage creates a page on the browser and navigates it, with stealth
// when configured.
func OpenPage(ctx context.Context, browser *rod.Browser, pageURL string, cfg Config) (*rod.Page, error) {
	cfg.defaults()

	var page *rod.Page
	var err error
	if cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("rodsurface: create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("rodsurface: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		cfg.Logger.Warn("rodsurface: wait load timeout", "url", pageURL, "error", err)
	}
	return page, nil
}

// Attach injects the observation script into the page and starts
// streaming mutations. Detach stops the stream and removes the script.
func Attach(ctx context.Context, page *rod.Page, cfg Config) (*Surface, error) {
	cfg.defaults()
	sctx, cancel := context.WithCancel(ctx)

	s := &Surface{
		page:   page,
		root:   cfg.Root,
		logger: cfg.Logger,
		ctx:    sctx,
		cancel: cancel,
		subs:   make(map[int]func(surface.Batch)),
		nodes:  make(map[int]*Node),
	}
	s.vp = &Viewport{s: s}

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		s.logger.Warn("rodsurface: add binding failed (may already exist)", "error", err)
	}
	go s.listenBinding()

	if _, err := page.Eval(fmt.Sprintf("() => { window.__folio_root = %q; }", cfg.Root)); err != nil {
		cancel()
		return nil, fmt.Errorf("rodsurface: set root: %w", err)
	}
	if _, err := page.Eval(string(surfaceJS)); err != nil {
		cancel()
		return nil, fmt.Errorf("rodsurface: inject script: %w", err)
	}

	s.logger.Debug("rodsurface: attached", "root", cfg.Root)
	return s, nil
}

// Detach stops observation.
func (s *Surface) Detach() {
	s.cancel()
	if _, err := s.page.Eval(`() => { if (window.__folio) { window.__folio.stop(); } }`); err != nil {
		s.logger.Debug("rodsurface: teardown eval failed", "error", err)
	}
}

// listenBinding receives batched mutation records from the injected
// script via Runtime.bindingCalled.
func (s *Surface) listenBinding() {
	s.page.Context(s.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		recs, err := decodeRecords([]byte(e.Payload), s.nodeFor)
		if err != nil {
			s.logger.Warn("rodsurface: parse binding payload", "error", err)
			return
		}
		if len(recs) > 0 {
			s.deliver(recs)
		}
	})()
}

// wireRecord is the JSON shape emitted by surface.js.
type wireRecord struct {
	Op   string  `json:"op"`
	El   int     `json:"el"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
	Rect bool    `json:"rect"`
}

// decodeRecords maps wire records to surface records, resolving element
// handles through resolve. Unknown ops are dropped.
func decodeRecords(payload []byte, resolve func(int) surface.Node) ([]surface.Record, error) {
	var wire []wireRecord
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, err
	}
	now := time.Now()
	recs := make([]surface.Record, 0, len(wire))
	for _, w := range wire {
		var op surface.Op
		switch w.Op {
		case "geometry":
			op = surface.OpGeometry
		case "insert":
			op = surface.OpInsert
		case "remove":
			op = surface.OpRemove
		default:
			continue
		}
		recs = append(recs, surface.Record{
			Op:      op,
			Node:    resolve(w.El),
			Rect:    geomRect(w),
			HasRect: w.Rect,
			At:      now,
		})
	}
	return recs, nil
}

func (s *Surface) deliver(recs []surface.Record) {
	s.mu.Lock()
	s.seq++
	b := surface.Batch{Seq: s.seq, Records: recs}
	fns := make([]func(surface.Batch), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(b)
	}
}

// nodeFor returns the Node for an element handle, creating it on first
// sight.
func (s *Surface) nodeFor(handle int) surface.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[handle]
	if !ok {
		n = &Node{surf: s, handle: handle}
		s.nodes[handle] = n
	}
	return n
}

// Nodes implements surface.Surface: all direct children of the canvas
// root, handles assigned as needed.
func (s *Surface) Nodes() []surface.Node {
	res, err := s.page.Eval(`() => JSON.stringify(window.__folio ? window.__folio.handles() : [])`)
	if err != nil {
		s.logger.Warn("rodsurface: list nodes", "error", err)
		return nil
	}
	var handles []int
	if err := json.Unmarshal([]byte(res.Value.Str()), &handles); err != nil {
		s.logger.Warn("rodsurface: parse node handles", "error", err)
		return nil
	}
	out := make([]surface.Node, 0, len(handles))
	for _, h := range handles {
		out = append(out, s.nodeFor(h))
	}
	return out
}

// NodeByID implements surface.Surface, matching either identity channel.
func (s *Surface) NodeByID(id string) (surface.Node, bool) {
	sel := fmt.Sprintf("[%s=%q], [%s=%q]", surface.AttrNodeID, id, surface.AttrNodeBackup, id)
	script := fmt.Sprintf(`() => window.__folio ? window.__folio.claim(%q) : -1`, sel)
	res, err := s.page.Eval(script)
	if err != nil {
		s.logger.Warn("rodsurface: node lookup", "id", id, "error", err)
		return nil, false
	}
	handle := int(res.Value.Int())
	if handle <= 0 {
		return nil, false
	}
	return s.nodeFor(handle), true
}

// Subscribe implements surface.Surface.
func (s *Surface) Subscribe(fn func(surface.Batch)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.nextSub
	s.nextSub++
	s.subs[key] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, key)
	}
}

// Viewport implements surface.Surface.
func (s *Surface) Viewport() surface.Viewport {
	return s.vp
}
