package inspector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	in, err := New(srv.URL, Config{})
	require.NoError(t, err)
	code, err := in.StatusCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	in, err = New(srv.URL+"/missing", Config{})
	require.NoError(t, err)
	code, err = in.StatusCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, code)
}

// redirectChain redirects /hop/N to /hop/N+1 until N reaches hops, then
// answers 200.
func redirectChain(hops int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/hop/"))
		if n >= hops {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", n+1), http.StatusFound)
	})
}

func TestStatusCode_Redirects(t *testing.T) {
	testCases := []struct {
		name         string
		hops         int
		maxRedirects int
		wantErr      error
	}{
		{"within limit", 2, 3, nil},
		{"exactly at limit", 3, 3, nil},
		{"over limit", 10, 3, sherrors.ErrTooManyRedirects},
		{"no redirects allowed", 1, 0, sherrors.ErrTooManyRedirects},
		{"no redirects needed", 0, 0, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(redirectChain(tc.hops))
			defer srv.Close()

			in, err := New(srv.URL+"/hop/0", Config{MaxRedirects: RedirectLimit(tc.maxRedirects)})
			require.NoError(t, err)

			code, err := in.StatusCode(context.Background())
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, code)
		})
	}
}

func TestStatusCode_DefaultRedirectLimit(t *testing.T) {
	srv := httptest.NewServer(redirectChain(5))
	defer srv.Close()

	in, err := New(srv.URL+"/hop/0", Config{})
	require.NoError(t, err)
	code, err := in.StatusCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	srv6 := httptest.NewServer(redirectChain(6))
	defer srv6.Close()

	in, err = New(srv6.URL+"/hop/0", Config{})
	require.NoError(t, err)
	_, err = in.StatusCode(context.Background())
	assert.ErrorIs(t, err, sherrors.ErrTooManyRedirects)
}

func TestStatusCode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	in, err := New(srv.URL, Config{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	_, err = in.StatusCode(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sherrors.ErrTimeout)
}

func TestStatusCode_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	in, err := New("http://"+addr, Config{Timeout: 2 * time.Second})
	require.NoError(t, err)

	_, err = in.StatusCode(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sherrors.ErrConnection)
}

func TestStatusCode_UnresolvableHost(t *testing.T) {
	dnsErr := &net.DNSError{Err: "no such host", Name: "nonexistentdomain.invalid", IsNotFound: true}
	doer := &stubDoer{err: &url.Error{
		Op:  "Get",
		URL: "http://nonexistentdomain.invalid",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: dnsErr},
	}}
	in := newStubInspector(t, "nonexistentdomain.invalid", doer)

	_, err := in.StatusCode(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sherrors.ErrConnection)

	var got *net.DNSError
	assert.True(t, errors.As(err, &got))

	var inspErr *Error
	require.True(t, errors.As(err, &inspErr))
	assert.Equal(t, "status_code", inspErr.Op)
	assert.Equal(t, "http://nonexistentdomain.invalid", inspErr.Target)
}

func TestLoadTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	in, err := New(srv.URL, Config{})
	require.NoError(t, err)

	seconds, err := in.LoadTime(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, seconds, 0.02)
	assert.Less(t, seconds, 5.0)
}

func TestFullLoadTime_FetchesImages(t *testing.T) {
	var assets atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<img src="/a.png"><img src="b.png"><img src="data:image/png;base64,AAAA"><img src="/missing.png">`)
	})
	mux.HandleFunc("/a.png", func(w http.ResponseWriter, r *http.Request) {
		assets.Add(1)
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/b.png", func(w http.ResponseWriter, r *http.Request) {
		assets.Add(1)
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	in, err := New(srv.URL+"/", Config{})
	require.NoError(t, err)

	seconds, err := in.FullLoadTime(context.Background())
	require.NoError(t, err)
	assert.Greater(t, seconds, 0.0)
	assert.Equal(t, int32(2), assets.Load())
}

func TestMobileReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.UserAgent(), "iPhone") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	in, err := New(srv.URL, Config{})
	require.NoError(t, err)

	ok, err := in.MobileReachable(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	code, err := in.StatusCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestNewHTTPClient_RedirectLimit(t *testing.T) {
	client := NewHTTPClient(time.Second, 2)
	via := make([]*http.Request, 2)
	assert.NoError(t, client.CheckRedirect(nil, via))
	assert.ErrorIs(t, client.CheckRedirect(nil, append(via, nil)), sherrors.ErrTooManyRedirects)
}
