package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/llm-gateway/middleware"
	"github.com/upb/llm-gateway/utils"
)

// streamBufSize is the read granularity for event-stream pass-through
const streamBufSize = 4096

// hopByHopHeaders are connection-scoped and never forwarded
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// handleForward proxies one request to the provider's upstream API. The
// credential check happens before anything is sent upstream.
func (rl *Relay) handleForward(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		utils.WriteUnauthorized(w, "missing or malformed Authorization header")
		return
	}

	provider := chi.URLParam(r, "provider")
	base, ok := rl.config.Upstreams[provider]
	if !ok {
		utils.WriteNotFound(w, "unknown provider: "+provider)
		return
	}

	target := singleJoiningSlash(base, chi.URLParam(r, "*"))
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	upReq, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		rl.logger.Error("building upstream request",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("provider", provider),
			zap.Error(err))
		utils.WriteInternalServerError(w, "failed to build upstream request")
		return
	}
	if r.ContentLength >= 0 {
		upReq.ContentLength = r.ContentLength
	}
	// Only the credential crosses the relay; no other inbound header is
	// forwarded.
	upReq.Header.Set("Authorization", auth)
	upReq.Header.Set("Content-Type", "application/json")
	upReq.Header.Set("User-Agent", UserAgent)

	upResp, err := rl.upstream.Do(upReq)
	if err != nil {
		rl.logger.Error("upstream request failed",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("provider", provider),
			zap.String("target", target),
			zap.Error(err))
		utils.WriteInternalServerError(w, "upstream request failed")
		return
	}
	defer upResp.Body.Close()

	if strings.Contains(upResp.Header.Get("Content-Type"), "text/event-stream") {
		rl.streamResponse(w, upResp)
		return
	}
	rl.bufferResponse(w, upResp)
}

// streamResponse copies the upstream body to the client incrementally and
// byte-identically. A write or flush failure means the client went away,
// a read failure means the upstream did; either way the response ends
// with whatever was already delivered.
func (rl *Relay) streamResponse(w http.ResponseWriter, upResp *http.Response) {
	copyResponseHeaders(w.Header(), upResp.Header)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(upResp.StatusCode)

	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	buf := make([]byte, streamBufSize)
	for {
		n, readErr := upResp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if readErr != nil {
			return
		}
	}
}

// bufferResponse reads the whole upstream body and re-emits it, mirroring
// the upstream status. JSON bodies go through a decode/encode cycle,
// which normalizes formatting while preserving every field; non-JSON
// bodies pass through untouched.
func (rl *Relay) bufferResponse(w http.ResponseWriter, upResp *http.Response) {
	body, err := io.ReadAll(upResp.Body)
	if err != nil {
		rl.logger.Error("reading upstream response", zap.Error(err))
		utils.WriteInternalServerError(w, "failed to read upstream response")
		return
	}

	copyResponseHeaders(w.Header(), upResp.Header)

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var payload interface{}
	if decoder.Decode(&payload) == nil && !decoder.More() {
		if reencoded, err := json.Marshal(payload); err == nil {
			body = reencoded
			w.Header().Set("Content-Type", "application/json")
		}
	}

	w.WriteHeader(upResp.StatusCode)
	_, _ = w.Write(body)
}

// copyResponseHeaders forwards upstream response headers, dropping
// hop-by-hop headers, anything CORS-related (the relay's own CORS layer
// owns those) and Content-Length (the body may be re-serialized or
// chunked)
func copyResponseHeaders(dst, src http.Header) {
	for key, values := range src {
		if hopByHopHeaders[key] || key == "Content-Length" || strings.HasPrefix(key, "Access-Control-") {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

// singleJoiningSlash joins a base URL and a path with exactly one slash
func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}
