// Command pagecap captures one page and writes the resulting image(s) to
// local files or an S3-compatible bucket.
//
// Usage:
//
//	pagecap -url https://example.com                      # one full-page image
//	pagecap -url https://example.com -paginated           # viewport sequence
//	pagecap -url https://example.com -element "#feed"     # scrolling element
//	pagecap -config pagecap.yaml -url https://example.com # with store/manifest
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hazyhaar/pagecap/service"
)

func main() {
	configPath := flag.String("config", "", "path to pagecap.yaml config file")
	pageURL := flag.String("url", "", "page URL to capture")
	outDir := flag.String("out", "", "local output directory (default: captures)")
	viewport := flag.Bool("viewport", false, "capture only the visible viewport")
	paginated := flag.Bool("paginated", false, "capture the page as a viewport sequence")
	element := flag.String("element", "", "CSS selector of a scrolling element to capture")
	elementFull := flag.Bool("element-full", false, "capture the full page at each element scroll step")
	headers := flag.String("headers", "", "comma-separated selectors of sticky headers")
	footers := flag.String("footers", "", "comma-separated selectors of sticky footers")
	padding := flag.Int("padding", 0, "scroll padding in pixels (default: 100)")
	offset := flag.Int("offset", 0, "pixel match offset for stitching (default: 100)")
	format := flag.String("format", "", "output format: png, jpeg, gif, bmp, tiff")
	mobile := flag.Bool("mobile", false, "emulate a mobile browsing context")
	remote := flag.String("remote", "", "WebSocket URL of an external Chrome instance")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *pageURL == "" {
		fmt.Fprintln(os.Stderr, "usage: pagecap -url <url> [-config <file>] [options]")
		os.Exit(1)
	}

	if err := run(ctx, logger, *configPath, service.Request{
		URL:              *pageURL,
		ViewportOnly:     *viewport,
		Paginated:        *paginated,
		Element:          *element,
		ElementFullPage:  *elementFull,
		HeaderSelectors:  splitSelectors(*headers),
		FooterSelectors:  splitSelectors(*footers),
		ScrollPadding:    *padding,
		PixelMatchOffset: *offset,
		Format:           *format,
	}, *outDir, *mobile, *remote); err != nil {
		logger.Error("pagecap: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath string, req service.Request, outDir string, mobile bool, remote string) error {
	cfg := &service.Config{}
	if configPath != "" {
		loaded, err := service.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.Logger = logger
	if outDir != "" {
		cfg.OutputDir = outDir
	}
	if mobile {
		cfg.Browser.Mobile = true
	}
	if remote != "" {
		cfg.Browser.RemoteURL = remote
	}

	svc, err := service.New(*cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Start(ctx); err != nil {
		return err
	}

	result, err := svc.Capture(ctx, req)
	if err != nil {
		return err
	}

	logger.Info("pagecap: captured",
		"url", result.URL, "strategy", result.Strategy,
		"pages", result.Pages, "bytes", result.Bytes)
	for _, key := range result.Keys {
		fmt.Println(key)
	}
	return nil
}

func splitSelectors(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
