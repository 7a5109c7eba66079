package engine

import (
	"bytes"
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html"
	"golang.org/x/net/proxy"

	"github.com/use-agent/pagegrab/config"
	"github.com/use-agent/pagegrab/models"
)

// HTTPEngine issues plain GET requests through net/http. When TLS
// fingerprinting is enabled, HTTPS connections present a Chrome ClientHello.
type HTTPEngine struct {
	client  *http.Client
	maxBody int64
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at package load and reused for every connection.
// chromeSpecErr is non-nil when the preset could not be built; engines that
// ask for fingerprinting refuse to start in that case.
var chromeH1Spec, chromeSpecErr = buildChromeH1Spec()

func buildChromeH1Spec() (tls.ClientHelloSpec, error) {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return tls.ClientHelloSpec{}, err
	}
	// http.Transport cannot speak h2 over a utls connection, so never offer it.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return spec, nil
}

// NewHTTPEngine creates an HTTPEngine from the engine configuration.
//
// The Chrome fingerprint is applied by the TLS dialer, which net/http skips
// when tunnelling through an http(s) proxy. Such connections use the
// standard library ClientHello; a warning is logged at construction.
func NewHTTPEngine(cfg config.EngineConfig) (*HTTPEngine, error) {
	return newHTTPEngine(cfg, nil)
}

// newHTTPEngine is NewHTTPEngine with an optional root pool for the
// fingerprinted dialer. A nil pool means the system roots.
func newHTTPEngine(cfg config.EngineConfig, rootCAs *x509.CertPool) (*HTTPEngine, error) {
	if cfg.TLSFingerprint && chromeSpecErr != nil {
		return nil, fmt.Errorf("http_engine: build chrome tls spec: %w", chromeSpecErr)
	}

	dial, err := baseDialer(cfg.Proxy)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext:       dial,
		ForceAttemptHTTP2: false,
	}
	proxyURL, viaHTTPProxy := httpProxyURL(cfg.Proxy)
	if viaHTTPProxy {
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if cfg.TLSFingerprint {
		if viaHTTPProxy {
			slog.Warn("tls fingerprint is not applied through an http proxy, use socks5 instead",
				"proxy", proxyURL.Redacted())
		}
		transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, dial, rootCAs, network, addr)
		}
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}

	return &HTTPEngine{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		maxBody: maxBody,
	}, nil
}

func (e *HTTPEngine) Name() string { return "http" }

// Fetch performs one GET. Transport failures come back as
// *models.NetworkError and non-2xx responses as *models.HTTPStatusError.
// A body larger than the configured cap fails the attempt with a
// NetworkError wrapping models.ErrBodyTooLarge.
func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "build request", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &models.NetworkError{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &models.HTTPStatusError{URL: req.URL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		return nil, &models.NetworkError{URL: req.URL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > e.maxBody {
		return nil, &models.NetworkError{
			URL: req.URL,
			Err: fmt.Errorf("%w: limit %d bytes", models.ErrBodyTooLarge, e.maxBody),
		}
	}

	return &FetchResult{
		Body:       body,
		Title:      extractTitle(body),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		EngineName: e.Name(),
	}, nil
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// baseDialer returns the TCP dialer, routed through a SOCKS5 proxy when one
// is configured.
func baseDialer(proxyRaw string) (dialFunc, error) {
	direct := &net.Dialer{Timeout: 10 * time.Second}
	if proxyRaw == "" {
		return direct.DialContext, nil
	}

	u, err := url.Parse(proxyRaw)
	if err != nil {
		return nil, fmt.Errorf("http_engine: parse proxy: %w", err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return direct.DialContext, nil
	}

	d, err := proxy.FromURL(u, direct)
	if err != nil {
		return nil, fmt.Errorf("http_engine: socks5 proxy: %w", err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}

func httpProxyURL(proxyRaw string) (*url.URL, bool) {
	if proxyRaw == "" {
		return nil, false
	}
	u, err := url.Parse(proxyRaw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, false
	}
	return u, true
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, dial dialFunc, rootCAs *x509.CertPool, network, addr string) (net.Conn, error) {
	conn, err := dial(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host, RootCAs: rootCAs}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// extractTitle uses the Go HTML tokenizer to find the first <title> element.
func extractTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
