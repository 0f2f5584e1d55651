// Package service runs the capture engine behind an HTTP API and provides
// the end-to-end pipeline shared with the CLI: open a session, capture,
// encode, persist artifacts, and record the run in the manifest.
package service

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/pagecap/browser"
	"github.com/hazyhaar/pagecap/capture"
	"github.com/hazyhaar/pagecap/manifest"
	"github.com/hazyhaar/pagecap/store"
)

// Service wires the browser manager, capture engine, artifact store, and
// run manifest together.
type Service struct {
	cfg      Config
	mgr      *browser.Manager
	store    *store.Store
	manifest *manifest.Store
	log      *slog.Logger
}

// New builds a Service from configuration. Call Start before serving.
func New(cfg Config) (*Service, error) {
	cfg.defaults()

	s := &Service{
		cfg: cfg,
		mgr: browser.NewManager(cfg.Browser),
		log: cfg.Logger,
	}

	if cfg.Store != nil {
		st, err := store.New(*cfg.Store)
		if err != nil {
			return nil, err
		}
		s.store = st
	}
	if cfg.ManifestPath != "" {
		m, err := manifest.Open(cfg.ManifestPath)
		if err != nil {
			return nil, err
		}
		s.manifest = m
	}

	return s, nil
}

// Start launches the browser.
func (s *Service) Start(ctx context.Context) error {
	return s.mgr.Start(ctx)
}

// Close shuts down the browser and the manifest store.
func (s *Service) Close() error {
	err := s.mgr.Close()
	if s.manifest != nil {
		if cerr := s.manifest.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Request describes one capture invocation. Zero-valued fields fall back to
// the service's capture configuration.
type Request struct {
	// URL to capture. Required.
	URL string `json:"url"`

	// ViewportOnly captures just the visible band.
	ViewportOnly bool `json:"viewport_only"`

	// Paginated captures the page as a sequence of viewport images.
	Paginated bool `json:"paginated"`

	// Element switches to scrolling-element capture of this selector.
	Element string `json:"element"`

	// ElementFullPage captures the whole page at each element scroll step.
	ElementFullPage bool `json:"element_full_page"`

	HeaderSelectors  []string `json:"header_selectors"`
	FooterSelectors  []string `json:"footer_selectors"`
	ScrollPadding    int      `json:"scroll_padding"`
	PixelMatchOffset int      `json:"pixel_match_offset"`
	Format           string   `json:"format"`

	// Dir overrides the artifact directory (object key prefix or local
	// subdirectory). Default: host/run id.
	Dir string `json:"dir"`
}

func (r *Request) validate() error {
	if r.URL == "" {
		return fmt.Errorf("service: url is required")
	}
	u, err := url.Parse(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("service: invalid url %q", r.URL)
	}
	return nil
}

// strategy names the capture mode for manifest rows and responses.
func (r *Request) strategy(paginated bool) string {
	switch {
	case r.Element != "":
		return "element"
	case r.ViewportOnly:
		return "viewport"
	case paginated:
		return "paginated"
	default:
		return "full_page"
	}
}

// Result summarises a finished capture.
type Result struct {
	RunID      string   `json:"run_id,omitempty"`
	URL        string   `json:"url"`
	Strategy   string   `json:"strategy"`
	Pages      int      `json:"pages"`
	Bytes      int64    `json:"bytes"`
	Format     string   `json:"format"`
	Keys       []string `json:"keys"`
	DurationMS int64    `json:"duration_ms"`
}

// Capture runs one capture end to end. The run is recorded in the manifest
// whether it succeeds or fails.
func (s *Service) Capture(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	cfg := s.captureConfig(req)
	started := time.Now()

	result, err := s.capture(ctx, req, cfg)
	if err != nil {
		s.record(ctx, req, cfg, &Result{URL: req.URL, Strategy: req.strategy(cfg.Paginated)}, started, err)
		return nil, err
	}
	result.DurationMS = time.Since(started).Milliseconds()
	s.record(ctx, req, cfg, result, started, nil)
	return result, nil
}

func (s *Service) capture(ctx context.Context, req Request, cfg capture.Config) (*Result, error) {
	session, err := s.mgr.Open(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	c := capture.New(session, cfg)

	var images []image.Image
	if req.Element != "" {
		imgs, err := c.ScrollingElement(ctx, req.Element, capture.ElementOptions{
			FullPage:      req.ElementFullPage,
			ScrollPadding: req.ScrollPadding,
		})
		if err != nil {
			return nil, err
		}
		images = imgs
	} else {
		imgs, err := c.Page(ctx, capture.PageOptions{
			ViewportOnly:  req.ViewportOnly,
			ScrollPadding: req.ScrollPadding,
		})
		if err != nil {
			return nil, err
		}
		images = imgs
	}

	bufs, err := capture.EncodeAll(images, cfg.Format)
	if err != nil {
		return nil, err
	}

	dir := req.Dir
	if dir == "" {
		u, _ := url.Parse(req.URL)
		dir = filepath.ToSlash(filepath.Join(u.Host, time.Now().UTC().Format("20060102T150405")))
	}

	result := &Result{
		URL:      req.URL,
		Strategy: req.strategy(cfg.Paginated),
		Pages:    len(bufs),
		Format:   string(cfg.Format),
	}
	for i, buf := range bufs {
		name := artifactName(i, len(bufs), cfg.Format)
		result.Bytes += int64(buf.Len())

		if s.store != nil {
			key, err := s.store.Put(ctx, dir, name, buf, int64(buf.Len()), "")
			if err != nil {
				return nil, err
			}
			result.Keys = append(result.Keys, key)
			continue
		}

		path := filepath.Join(s.cfg.OutputDir, filepath.FromSlash(dir), name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("service: create output dir: %w", err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("service: write %s: %w", path, err)
		}
		result.Keys = append(result.Keys, path)
	}

	return result, nil
}

func (s *Service) captureConfig(req Request) capture.Config {
	cfg := s.cfg.Capture
	cfg.Logger = s.log
	if req.Paginated {
		cfg.Paginated = true
	}
	if len(req.HeaderSelectors) > 0 {
		cfg.HeaderSelectors = req.HeaderSelectors
	}
	if len(req.FooterSelectors) > 0 {
		cfg.FooterSelectors = req.FooterSelectors
	}
	if req.PixelMatchOffset > 0 {
		cfg.PixelMatchOffset = req.PixelMatchOffset
	}
	if req.Format != "" {
		cfg.Format = capture.Format(req.Format)
	}
	return cfg
}

func (s *Service) record(ctx context.Context, req Request, cfg capture.Config, result *Result, started time.Time, captureErr error) {
	if s.manifest == nil {
		return
	}
	run := manifest.Run{
		URL:       req.URL,
		Strategy:  result.Strategy,
		Selector:  req.Element,
		Pages:     result.Pages,
		Bytes:     result.Bytes,
		Format:    string(cfg.Format),
		Keys:      strings.Join(result.Keys, ","),
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if captureErr != nil {
		run.Error = captureErr.Error()
	}
	id, err := s.manifest.Record(ctx, run)
	if err != nil {
		s.log.Error("service: manifest record failed", "error", err)
		return
	}
	result.RunID = id
}

// artifactName indexes sequence artifacts; single captures keep a plain name.
func artifactName(i, total int, format capture.Format) string {
	if total == 1 {
		return fmt.Sprintf("page.%s", format)
	}
	return fmt.Sprintf("page_%03d.%s", i+1, format)
}
