package inspector

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	consts "github.com/khanhnv2901/sitesniffer/internal/shared/constants"
	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
	"go.uber.org/zap"
)

// roundTrip issues one GET against rawURL under the inspector deadline and
// hands the response to consume before the body is closed.
func (in *Inspector) roundTrip(ctx context.Context, op, rawURL, userAgent string, consume func(*http.Response) error) error {
	ctx, cancel := in.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return in.fail(op, sherrors.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := in.cfg.HTTPClient.Do(req)
	if err != nil {
		return in.fail(op, transportKind(err), err)
	}
	defer resp.Body.Close()

	if consume != nil {
		if err := consume(resp); err != nil {
			return in.fail(op, transportKind(err), err)
		}
	}
	return nil
}

// StatusCode issues a single GET and returns the final status code after
// following at most the configured number of redirects.
func (in *Inspector) StatusCode(ctx context.Context) (int, error) {
	var code int
	err := in.roundTrip(ctx, "status_code", in.target.URL(), in.cfg.UserAgent, func(resp *http.Response) error {
		code = resp.StatusCode
		// Discard response body - ignore errors as this is just cleanup
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, consts.MaxPageBytes))
		return nil
	})
	if err != nil {
		return 0, err
	}
	in.logger.Debug("status code", zap.Int("status", code))
	return code, nil
}

// LoadTime measures the wall-clock seconds of one full request/response
// cycle, body included.
func (in *Inspector) LoadTime(ctx context.Context) (float64, error) {
	start := time.Now()
	err := in.roundTrip(ctx, "load_time", in.target.URL(), in.cfg.UserAgent, func(resp *http.Response) error {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	})
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	in.logger.Debug("load time", zap.Duration("elapsed", elapsed))
	return elapsed.Seconds(), nil
}

// FullLoadTime measures the page plus every image it references, fetched one
// after another. Images that fail to load are skipped and logged; only a
// failure of the page itself is returned.
func (in *Inspector) FullLoadTime(ctx context.Context) (float64, error) {
	const op = "full_load_time"
	start := time.Now()

	var body []byte
	var finalURL *url.URL
	err := in.roundTrip(ctx, op, in.target.URL(), in.cfg.UserAgent, func(resp *http.Response) error {
		finalURL = responseURL(resp)
		var err error
		body, err = io.ReadAll(io.LimitReader(resp.Body, consts.MaxPageBytes))
		return err
	})
	if err != nil {
		return 0, err
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return 0, in.fail(op, sherrors.ErrConnection, err)
	}

	for _, src := range doc.Images() {
		assetURL, ok := resolveAsset(finalURL, src)
		if !ok {
			continue
		}
		err := in.roundTrip(ctx, op, assetURL, in.cfg.UserAgent, func(resp *http.Response) error {
			_, err := io.Copy(io.Discard, resp.Body)
			return err
		})
		if err != nil {
			in.logger.Debug("asset failed to load", zap.String("asset", assetURL), zap.Error(err))
		}
	}

	return time.Since(start).Seconds(), nil
}

// MobileReachable requests the page with a mobile browser User-Agent and
// reports whether the server answers 200 OK.
func (in *Inspector) MobileReachable(ctx context.Context) (bool, error) {
	var code int
	err := in.roundTrip(ctx, "mobile_reachable", in.target.URL(), consts.MobileUserAgent, func(resp *http.Response) error {
		code = resp.StatusCode
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, consts.MaxPageBytes))
		return nil
	})
	if err != nil {
		return false, err
	}
	return code == http.StatusOK, nil
}

// responseURL returns the URL the response was served from after redirects.
func responseURL(resp *http.Response) *url.URL {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL
	}
	return nil
}

func resolveAsset(base *url.URL, src string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	return ref.String(), true
}
