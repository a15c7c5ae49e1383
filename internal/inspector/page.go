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

// PageSnapshot is the fetched page shared by every content accessor of one
// Inspector.
type PageSnapshot struct {
	URL        string        // Final URL after redirects
	StatusCode int           // Status of the final response
	Header     http.Header   // Response headers, Set-Cookie included
	Body       []byte        // Body, truncated at MaxPageBytes
	Elapsed    time.Duration // Time to fetch headers and body
	FetchedAt  time.Time

	doc *Document
}

// Document returns the parsed body.
func (p *PageSnapshot) Document() *Document { return p.doc }

// Snapshot fetches the page on first use and returns the cached result on
// every later call, failures included. Concurrent first calls share one
// fetch.
//
// The shared fetch runs detached from ctx, bounded by the inspector timeout,
// so a caller that gives up fails alone with ErrCanceled or ErrTimeout and
// leaves the fetch to the remaining and later callers.
func (in *Inspector) Snapshot(ctx context.Context) (*PageSnapshot, error) {
	const op = "fetch_page"
	if page, done, err := in.cachedPage(); done {
		return page, err
	}
	if err := ctx.Err(); err != nil {
		return nil, in.fail(op, contextKind(err), err)
	}

	ch := in.group.DoChan("page", func() (interface{}, error) {
		if page, done, err := in.cachedPage(); done {
			return page, err
		}
		page, err := in.fetchPage(context.WithoutCancel(ctx))

		in.mu.Lock()
		in.page, in.pageErr, in.pageDone = page, err, true
		in.mu.Unlock()
		return page, err
	})

	select {
	case <-ctx.Done():
		return nil, in.fail(op, contextKind(ctx.Err()), ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*PageSnapshot), nil
	}
}

func (in *Inspector) cachedPage() (*PageSnapshot, bool, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.page, in.pageDone, in.pageErr
}

func (in *Inspector) fetchPage(ctx context.Context) (*PageSnapshot, error) {
	const op = "fetch_page"
	start := time.Now()
	page := &PageSnapshot{URL: in.target.URL()}

	err := in.roundTrip(ctx, op, in.target.URL(), in.cfg.UserAgent, func(resp *http.Response) error {
		page.StatusCode = resp.StatusCode
		page.Header = resp.Header.Clone()
		if u := responseURL(resp); u != nil {
			page.URL = u.String()
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, consts.MaxPageBytes))
		if err != nil {
			return err
		}
		page.Body = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	page.Elapsed = time.Since(start)
	page.FetchedAt = time.Now().UTC()

	doc, err := ParseDocument(page.Body)
	if err != nil {
		return nil, in.fail(op, sherrors.ErrConnection, err)
	}
	page.doc = doc

	in.logger.Debug("page fetched",
		zap.Int("status", page.StatusCode),
		zap.Int("bytes", len(page.Body)),
		zap.Duration("elapsed", page.Elapsed),
	)
	return page, nil
}

func (in *Inspector) document(ctx context.Context) (*Document, error) {
	page, err := in.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return page.Document(), nil
}

// Links returns the href of every anchor on the page, verbatim and in
// document order. Relative hrefs are not resolved; see ResolvedLinks.
func (in *Inspector) Links(ctx context.Context) ([]string, error) {
	doc, err := in.document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Links(), nil
}

// ResolvedLinks returns Links resolved against the page's <base href> or,
// without one, the final page URL. Hrefs that do not parse are kept as is.
func (in *Inspector) ResolvedLinks(ctx context.Context) ([]string, error) {
	page, err := in.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(page.URL)
	if err != nil {
		return page.Document().Links(), nil
	}
	if href, ok := page.Document().BaseHref(); ok {
		if ref, err := url.Parse(href); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	links := page.Document().Links()
	resolved := make([]string, 0, len(links))
	for _, href := range links {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			resolved = append(resolved, href)
			continue
		}
		resolved = append(resolved, base.ResolveReference(ref).String())
	}
	return resolved, nil
}

// Images returns the src of every image on the page, verbatim.
func (in *Inspector) Images(ctx context.Context) ([]string, error) {
	doc, err := in.document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Images(), nil
}

// Title returns the page title.
func (in *Inspector) Title(ctx context.Context) (string, error) {
	doc, err := in.document(ctx)
	if err != nil {
		return "", err
	}
	return doc.Title(), nil
}

// MetaDescription returns the content of <meta name="description">. The bool
// is false when the page has no such tag.
func (in *Inspector) MetaDescription(ctx context.Context) (string, bool, error) {
	doc, err := in.document(ctx)
	if err != nil {
		return "", false, err
	}
	content, ok := doc.MetaDescription()
	return content, ok, nil
}

// HasMetaDescription reports a description tag with non-blank content.
func (in *Inspector) HasMetaDescription(ctx context.Context) (bool, error) {
	doc, err := in.document(ctx)
	if err != nil {
		return false, err
	}
	return doc.HasMetaDescription(), nil
}

// Keywords returns the trimmed tokens of <meta name="keywords">, or nil
// when the tag is absent.
func (in *Inspector) Keywords(ctx context.Context) ([]string, error) {
	doc, err := in.document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Keywords(), nil
}

// HasKeywords reports a keywords tag with at least one token.
func (in *Inspector) HasKeywords(ctx context.Context) (bool, error) {
	doc, err := in.document(ctx)
	if err != nil {
		return false, err
	}
	return doc.HasKeywords(), nil
}

// IsMobileFriendly reports a viewport meta tag. This is a heuristic, not a
// rendering check.
func (in *Inspector) IsMobileFriendly(ctx context.Context) (bool, error) {
	doc, err := in.document(ctx)
	if err != nil {
		return false, err
	}
	return doc.HasViewport(), nil
}

// HasResponsiveDesign reports a viewport meta tag together with a conditional
// media query in inline styles or media attributes. Linked stylesheets are
// not fetched, so sites that keep every query in external CSS read false.
func (in *Inspector) HasResponsiveDesign(ctx context.Context) (bool, error) {
	doc, err := in.document(ctx)
	if err != nil {
		return false, err
	}
	return doc.IsResponsive(), nil
}

// HasCookies reports a Set-Cookie header on the fetched page.
func (in *Inspector) HasCookies(ctx context.Context) (bool, error) {
	page, err := in.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return HasSetCookie(page.Header), nil
}

// HasGoogleAnalytics searches the page for Google Analytics loaders and
// measurement IDs.
func (in *Inspector) HasGoogleAnalytics(ctx context.Context) (bool, error) {
	doc, err := in.document(ctx)
	if err != nil {
		return false, err
	}
	return doc.HasGoogleAnalytics(), nil
}
