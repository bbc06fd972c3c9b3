package worker

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
)

// OfflinePage is served for navigations when neither the network nor the
// cache can answer.
const OfflinePage = "/offline.html"

// CachingTransport fronts the frontend origin. Navigations go to the network
// first and fall back to the offline page; every other same-origin GET is
// answered from the cache first. Anything else passes through untouched.
type CachingTransport struct {
	Origin *url.URL
	Store  Store
	Cache  string
	Next   http.RoundTripper
}

func NewCachingTransport(origin *url.URL, store Store) *CachingTransport {
	return &CachingTransport{
		Origin: origin,
		Store:  store,
		Cache:  CacheName,
		Next:   http.DefaultTransport,
	}
}

func (t *CachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || !t.sameOrigin(req.URL) {
		return t.next().RoundTrip(req)
	}
	if isNavigation(req) {
		return t.navigate(req)
	}
	return t.cacheFirst(req)
}

func (t *CachingTransport) navigate(req *http.Request) (*http.Response, error) {
	resp, err := t.next().RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	log.Printf("[worker] Navigation to %s failed, serving offline page: %v", req.URL.Path, err)
	if offline, cerr := t.match(req, OfflinePage); cerr == nil {
		return offline, nil
	}
	return nil, err
}

func (t *CachingTransport) cacheFirst(req *http.Request) (*http.Response, error) {
	key := req.URL.RequestURI()
	if cached, err := t.match(req, key); err == nil {
		return cached, nil
	}

	// Entries are shared by every client, so store the identity encoding only
	upstream := req
	if req.Header.Get("Accept-Encoding") != "" {
		upstream = req.Clone(req.Context())
		upstream.Header.Del("Accept-Encoding")
	}

	resp, err := t.next().RoundTrip(upstream)
	if err != nil {
		if offline, cerr := t.match(req, OfflinePage); cerr == nil {
			return offline, nil
		}
		return nil, err
	}

	if !cacheable(resp) {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := CachedResponse{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}
	if err := t.Store.Put(req.Context(), t.Cache, key, entry); err != nil {
		log.Printf("[worker] Failed to cache %s: %v", key, err)
	}
	return resp, nil
}

func (t *CachingTransport) match(req *http.Request, key string) (*http.Response, error) {
	entry, err := t.Store.Match(req.Context(), t.Cache, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("[worker] Cache lookup for %s failed: %v", key, err)
		}
		return nil, err
	}
	return entry.response(req), nil
}

func (t *CachingTransport) sameOrigin(u *url.URL) bool {
	return t.Origin != nil && u.Scheme == t.Origin.Scheme && u.Host == t.Origin.Host
}

func (t *CachingTransport) next() http.RoundTripper {
	if t.Next == nil {
		return http.DefaultTransport
	}
	return t.Next
}

func cacheable(resp *http.Response) bool {
	return resp.StatusCode == http.StatusOK &&
		resp.Header.Get("Content-Encoding") == "" &&
		resp.Header.Get("Vary") != "*"
}

func isNavigation(req *http.Request) bool {
	return req.Header.Get("Sec-Fetch-Mode") == "navigate"
}

func (c CachedResponse) response(req *http.Request) *http.Response {
	header := c.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Length", strconv.Itoa(len(c.Body)))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", c.Status, http.StatusText(c.Status)),
		StatusCode:    c.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       req,
	}
}
