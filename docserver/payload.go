package docserver

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
)

// DefaultCacheControl is sent with every document response.
const DefaultCacheControl = "public, max-age=300"

// minGzipLength is the body size below which responses are sent as-is.
const minGzipLength = 1024

// payload is a pre-rendered response body. The gzip variant and the ETag
// are computed once, when the endpoint is registered.
type payload struct {
	contentType  string
	cacheControl string
	etag         string
	data         []byte
	gzipped      []byte
}

func newPayload(contentType, cacheControl string, data []byte) (*payload, error) {
	sum := sha256.Sum256(data)
	p := &payload{
		contentType:  contentType,
		cacheControl: cacheControl,
		etag:         `"` + hex.EncodeToString(sum[:16]) + `"`,
		data:         data,
	}

	if len(data) >= minGzipLength {
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		p.gzipped = buf.Bytes()
	}
	return p, nil
}

func (p *payload) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Content-Type", p.contentType)
	h.Set("ETag", p.etag)
	if p.cacheControl != "" {
		h.Set("Cache-Control", p.cacheControl)
	}
	if p.gzipped != nil {
		h.Set("Vary", "Accept-Encoding")
	}

	if etagMatch(r.Header.Get("If-None-Match"), p.etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body := p.data
	if p.gzipped != nil && acceptsGzip(r.Header.Get("Accept-Encoding")) {
		h.Set("Content-Encoding", "gzip")
		body = p.gzipped
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

func etagMatch(header, etag string) bool {
	for candidate := range strings.SplitSeq(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// acceptsGzip reports whether gzip, or the wildcard, is accepted with a
// non-zero quality.
func acceptsGzip(header string) bool {
	accepted := false
	for part := range strings.SplitSeq(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "gzip" && name != "*" {
			continue
		}

		q := 1.0
		if key, val, ok := strings.Cut(strings.TrimSpace(params), "="); ok && strings.TrimSpace(key) == "q" {
			parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				parsed = 0
			}
			q = parsed
		}

		if name == "gzip" {
			return q > 0
		}
		accepted = q > 0
	}
	return accepted
}
