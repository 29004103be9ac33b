package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pyscout/scout/internal/config"
	"github.com/pyscout/scout/internal/crawler"
	"github.com/pyscout/scout/internal/dom"
	"github.com/pyscout/scout/internal/markup"
)

// newFetcher builds an HTTP fetcher carrying the configured headers and auth
func newFetcher(cfg *config.Config) (*crawler.HTTPFetcher, error) {
	f := crawler.NewHTTPFetcher(cfg.UserAgent, cfg.RequestTimeout)
	f.SetMaxBodySize(cfg.MaxBodySize)

	headers, err := cfg.ParseHeaders()
	if err != nil {
		return nil, err
	}
	for name, value := range headers {
		f.SetHeader(name, value)
	}

	if cfg.Auth != nil {
		switch cfg.Auth.Type {
		case config.AuthBasic:
			if username, password := cfg.GetBasicAuthCredentials(); username != "" {
				f.SetBasicAuth(username, password)
			}
		case config.AuthBearer:
			if token := cfg.GetBearerToken(); token != "" {
				f.SetBearerAuth(token)
			}
		case config.AuthAPIKey:
			if header, value := cfg.GetAPIKeyCredentials(); header != "" {
				f.SetAPIKeyAuth(header, value)
			}
		}
	}
	return f, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// readSource returns the bytes of a file, an http(s) URL, or stdin for "" and "-"
func (a *app) readSource(ctx context.Context, in io.Reader, source string) (raw []byte, contentType string, err error) {
	switch {
	case source == "" || source == "-":
		raw, err = io.ReadAll(in)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return raw, "", nil

	case isURL(source):
		f, err := newFetcher(a.cfg)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		resp, err := f.Fetch(ctx, source)
		if err != nil {
			return nil, "", &crawler.FetchError{URL: source, Err: err}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, "", &crawler.FetchError{URL: source, StatusCode: resp.StatusCode}
		}
		return resp.Body, resp.ContentType, nil

	default:
		raw, err = os.ReadFile(source)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", source, err)
		}
		return raw, "", nil
	}
}

// loadDocument reads and parses source with the configured mode and charset hint
func (a *app) loadDocument(ctx context.Context, in io.Reader, source string) (*dom.Document, error) {
	raw, contentType, err := a.readSource(ctx, in, source)
	if err != nil {
		return nil, err
	}

	decoded := markup.Decode(raw, a.cfg.Encoding, contentType)
	if decoded.Err != nil {
		slog.Warn("Source encoding could not be determined", "source", source, "charset", decoded.Charset)
	} else {
		slog.Debug("Decoded source", "source", source, "charset", decoded.Charset, "bytes", len(raw))
	}
	return dom.Parse(decoded.Text, dom.WithMode(markup.ParseMode(a.cfg.Mode))), nil
}

func sourceArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}
