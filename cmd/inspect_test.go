package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/sitesniffer/internal/application/report"
	"github.com/khanhnv2901/sitesniffer/internal/inspector"
	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Test Site</title>
<meta name="description" content="a test site"></head>
<body><a href="/about">About</a></body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func ptr[T any](v T) *T { return &v }

func TestInspectCommand_JSON(t *testing.T) {
	resetCLIState(t)
	t.Setenv("HOME", t.TempDir())
	site := newTestSite(t)

	stdout, _, err := executeCommand(t, "inspect", site.URL, "--facet", "status_code,title,meta_description", "--json")
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, http.StatusOK, rep.StatusCode)
	require.NotNil(t, rep.Title)
	assert.Equal(t, "Test Site", *rep.Title)
	require.NotNil(t, rep.MetaDescription)
	assert.Equal(t, "a test site", *rep.MetaDescription)
	assert.Equal(t, "http", rep.Protocol)
	assert.Empty(t, rep.Errors)
}

func TestInspectCommand_Text(t *testing.T) {
	resetCLIState(t)
	disableColor(t)
	t.Setenv("HOME", t.TempDir())
	site := newTestSite(t)

	stdout, _, err := executeCommand(t, "inspect", site.URL, "-f", "status_code", "-f", "links,ssl_info")
	require.NoError(t, err)

	assert.Contains(t, stdout, site.URL)
	assert.Contains(t, stdout, "Status code:")
	assert.Contains(t, stdout, "200")
	assert.Contains(t, stdout, "Links:")
	assert.Contains(t, stdout, "- /about")
	// A plain http site has no certificate; the facet reports the error
	// without failing the command.
	assert.Contains(t, stdout, "Ssl info:")
	assert.Contains(t, stdout, "target does not use https")
}

func TestInspectCommand_Batch(t *testing.T) {
	resetCLIState(t)
	t.Setenv("HOME", t.TempDir())
	site := newTestSite(t)

	stdout, stderr, err := executeCommand(t, "inspect", site.URL, "ftp://unsupported.example",
		"--facet", "status_code", "--json", "--progress", "--concurrency", "2")

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, batchErr.Failed)
	assert.Equal(t, 2, batchErr.Total)

	var results []report.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 2)
	assert.Equal(t, site.URL, results[0].URL)
	require.NotNil(t, results[0].Report)
	assert.Equal(t, http.StatusOK, results[0].Report.StatusCode)
	assert.NotEmpty(t, results[1].Error)

	assert.Contains(t, stderr, "Progress: 2/2")
}

func TestInspectCommand_Errors(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		resetCLIState(t)
		t.Setenv("HOME", t.TempDir())
		_, _, err := executeCommand(t, "inspect", "ftp://example.com", "--facet", "status_code")
		assert.True(t, errors.Is(err, sherrors.ErrInvalidURL), "got %v", err)
	})

	t.Run("unknown facet", func(t *testing.T) {
		resetCLIState(t)
		t.Setenv("HOME", t.TempDir())
		_, _, err := executeCommand(t, "inspect", "example.com", "--facet", "favicon")
		assert.True(t, errors.Is(err, sherrors.ErrInvalidInput), "got %v", err)
	})

	t.Run("no url", func(t *testing.T) {
		resetCLIState(t)
		t.Setenv("HOME", t.TempDir())
		_, _, err := executeCommand(t, "inspect")
		assert.Error(t, err)
	})

	t.Run("invalid timeout", func(t *testing.T) {
		resetCLIState(t)
		t.Setenv("HOME", t.TempDir())
		_, _, err := executeCommand(t, "inspect", "example.com", "--timeout", "0")
		assert.True(t, errors.Is(err, sherrors.ErrValidation), "got %v", err)
	})
}

func TestInspectCommand_OutputFile(t *testing.T) {
	resetCLIState(t)
	disableColor(t)
	t.Setenv("HOME", t.TempDir())
	site := newTestSite(t)
	path := filepath.Join(t.TempDir(), "out", "report.json")

	stdout, _, err := executeCommand(t, "inspect", site.URL, "--facet", "title", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Results written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	require.NotNil(t, rep.Title)
	assert.Equal(t, "Test Site", *rep.Title)
}

func TestWriteReportText(t *testing.T) {
	disableColor(t)

	created := time.Date(1995, 8, 14, 0, 0, 0, 0, time.UTC)
	rep := &report.Report{
		URL:      "https://example.com/",
		Protocol: "https",
		Hostname: "example.com",
		Path:     "/",
		Duration: 42,
		Facets: []report.Facet{
			report.FacetIPAddress,
			report.FacetDomainInfo,
			report.FacetSSLInfo,
			report.FacetLoadTime,
			report.FacetMetaDescription,
			report.FacetKeywords,
			report.FacetMobileFriendly,
		},
		IPAddress: "93.184.216.34",
		DomainInfo: &inspector.DomainInfo{
			DomainName:   "EXAMPLE.COM",
			Registrar:    "Example Registrar",
			CreationDate: &created,
		},
		SSL: &inspector.SSLInfo{
			Subject:  "CN=example.com",
			Issuer:   "CN=Example CA",
			NotAfter: time.Now().Add(5 * 24 * time.Hour),
		},
		LoadTime:           ptr(0.25),
		HasMetaDescription: ptr(false),
		MobileFriendly:     ptr(true),
	}

	var buf bytes.Buffer
	writeReportText(&buf, rep)
	out := buf.String()

	for _, want := range []string{
		"https://example.com/",
		"IP address:          93.184.216.34",
		"Domain:              EXAMPLE.COM",
		"Registrar:           Example Registrar",
		"Registered:          1995-08-14",
		"Certificate issuer:  CN=Example CA",
		"days left)",
		"Load time:           0.250s",
		"Meta description:    missing",
		"Keywords:            none",
		"Mobile friendly:     yes",
		"Checked in:          42ms",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWriteResultText_InvalidURL(t *testing.T) {
	disableColor(t)

	var buf bytes.Buffer
	writeResultText(&buf, report.Result{
		URL: "://",
		Err: fmt.Errorf("parse: %w", sherrors.ErrInvalidURL),
	})

	out := buf.String()
	assert.Contains(t, out, ":// error")
	assert.Contains(t, out, "hint:")
	assert.True(t, strings.Count(out, "\n") >= 3)
}

func TestFacetLabel(t *testing.T) {
	assert.Equal(t, "Domain info", facetLabel(report.FacetDomainInfo))
	assert.Equal(t, "Links", facetLabel(report.FacetLinks))
}
