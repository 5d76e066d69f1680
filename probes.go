package fluxion

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	defaultProbeTimeout = 10 * time.Second
	defaultPreviewBytes = 256
	maxProbeBody        = 1 << 20
)

func registerProbeBuiltins(r *Registry) {
	r.Override("http_get", func(args []any, kwargs map[string]any) (any, error) {
		return httpProbe(http.MethodGet, args, kwargs)
	})
	r.Override("http_head", func(args []any, kwargs map[string]any) (any, error) {
		return httpProbe(http.MethodHead, args, kwargs)
	})
	r.Override("oast_beacon", func(args []any, kwargs map[string]any) (any, error) {
		return oastBeacon(args, kwargs)
	})
	r.Override("oast_http_ping", func(args []any, kwargs map[string]any) (any, error) {
		return oastHTTPPing(args, kwargs)
	})
}

func httpProbe(method string, args []any, kwargs map[string]any) (any, error) {
	name := "http_get"
	if method == http.MethodHead {
		name = "http_head"
	}
	opts, err := probeOptionsKeyed(name, "url", args, kwargs)
	if err != nil {
		return nil, err
	}
	target, err := optString(opts, "url", "")
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, fmt.Errorf("%s: option \"url\" is required", name)
	}
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	timeoutSec, err := optNumber(opts, "timeout", defaultProbeTimeout.Seconds())
	if err != nil {
		return nil, err
	}
	previewLen, err := optNumber(opts, "preview", defaultPreviewBytes)
	if err != nil {
		return nil, err
	}
	if previewLen < 0 {
		return nil, fmt.Errorf("%s: option \"preview\" must not be negative", name)
	}

	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid url %q: %w", name, target, err)
	}
	if hv, ok := opts.Get("headers"); ok && hv != nil {
		hm, ok := hv.(*Map)
		if !ok {
			return nil, fmt.Errorf("%s: option \"headers\" must be a map", name)
		}
		for _, p := range hm.Pairs() {
			req.Header.Set(p.Key, stringify(p.Value))
		}
	}

	client := &http.Client{Timeout: time.Duration(timeoutSec * float64(time.Second))}
	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		// Transport failures (refused connection, DNS, timeout) are
		// terminal: the run aborts instead of carrying a partial result.
		return nil, fmt.Errorf("%s %s: %w", name, target, err)
	}
	defer resp.Body.Close()

	var body []byte
	if method != http.MethodHead {
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
		if err != nil {
			return nil, fmt.Errorf("%s %s: reading body: %w", name, target, err)
		}
	}

	preview := string(body)
	if n := int(previewLen); len(preview) > n {
		preview = preview[:n]
	}

	result := NewMap()
	result.Set("ok", resp.StatusCode < 400)
	result.Set("status", resp.StatusCode)
	result.Set("elapsed_ms", int(elapsed.Milliseconds()))
	result.Set("length", len(body))
	result.Set("headers", headerMap(resp.Header))
	result.Set("text_preview", preview)
	result.Set("url", resp.Request.URL.String())
	return result, nil
}

func headerMap(h http.Header) *Map {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := NewMap()
	for _, k := range keys {
		out.Set(k, strings.Join(h[k], ", "))
	}
	return out
}

// oastBeacon touches an out-of-band domain over DNS so the authoritative
// server logs the lookup. NXDOMAIN is a successful touch; any other
// resolver failure is terminal.
func oastBeacon(args []any, kwargs map[string]any) (any, error) {
	opts, err := probeOptionsKeyed("oast_beacon", "domain", args, kwargs)
	if err != nil {
		return nil, err
	}
	domain, err := optString(opts, "domain", "")
	if err != nil {
		return nil, err
	}
	if domain == "" {
		return nil, fmt.Errorf("oast_beacon: option \"domain\" is required")
	}
	token, err := optString(opts, "token", "")
	if err != nil {
		return nil, err
	}
	fqdn := domain
	if token != "" {
		fqdn = token + "." + domain
	}

	start := time.Now()
	addrs, err := net.LookupHost(fqdn)
	elapsed := time.Since(start)
	resolved := err == nil
	if err != nil {
		var dnsErr *net.DNSError
		if !errors.As(err, &dnsErr) || !dnsErr.IsNotFound {
			return nil, fmt.Errorf("oast_beacon %s: %w", fqdn, err)
		}
	}

	result := NewMap()
	result.Set("ok", true)
	result.Set("fqdn", fqdn)
	result.Set("resolved", resolved)
	result.Set("addresses", len(addrs))
	result.Set("elapsed_ms", int(elapsed.Milliseconds()))
	return result, nil
}

// oastHTTPPing issues a GET against the collaborator endpoint with the
// token as a query parameter, for servers that log HTTP instead of DNS.
func oastHTTPPing(args []any, kwargs map[string]any) (any, error) {
	opts, err := probeOptionsKeyed("oast_http_ping", "url", args, kwargs)
	if err != nil {
		return nil, err
	}
	target, err := optString(opts, "url", "")
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, fmt.Errorf("oast_http_ping: option \"url\" is required")
	}
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	token, err := optString(opts, "token", "")
	if err != nil {
		return nil, err
	}
	timeoutSec, err := optNumber(opts, "timeout", defaultProbeTimeout.Seconds())
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("oast_http_ping: invalid url %q: %w", target, err)
	}
	if token != "" {
		q := u.Query()
		q.Set("t", token)
		u.RawQuery = q.Encode()
	}

	client := &http.Client{Timeout: time.Duration(timeoutSec * float64(time.Second))}
	start := time.Now()
	resp, err := client.Get(u.String())
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("oast_http_ping %s: %w", u.Host, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeBody))

	result := NewMap()
	result.Set("ok", resp.StatusCode < 400)
	result.Set("status", resp.StatusCode)
	result.Set("url", u.String())
	result.Set("elapsed_ms", int(elapsed.Milliseconds()))
	return result, nil
}

// probeOptionsKeyed accepts either a bare string argument bound to key or
// command-style named options, so "http_get url=target timeout=5" and
// http_get(target) both work.
func probeOptionsKeyed(name, key string, args []any, kwargs map[string]any) (*Map, error) {
	if len(args) == 1 {
		if s, ok := args[0].(string); ok {
			opts, err := commandArgs(nil, kwargs)
			if err != nil {
				return nil, err
			}
			opts.Set(key, s)
			return opts, nil
		}
	}
	opts, err := commandArgs(args, kwargs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return opts, nil
}
