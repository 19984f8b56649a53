package fakenest

import (
	"bytes"
	"net/http"
)

// replay is a stored response. done is closed once the first request with
// the key has finished; until then the key is reserved.
type replay struct {
	done        chan struct{}
	status      int
	contentType string
	body        []byte
}

type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.buf.Write(p)
	return c.ResponseWriter.Write(p)
}

// idempotent replays the stored response when a mutation is retried with the
// same Idempotency-Key. A retry that arrives while the first request is still
// running waits for it. Server errors are not stored.
func (s *Server) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" || r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		cacheKey := r.Method + " " + r.URL.Path + " " + key

		for {
			s.replayMu.Lock()
			prev, ok := s.replays[cacheKey]
			if !ok {
				entry := &replay{done: make(chan struct{})}
				s.replays[cacheKey] = entry
				s.replayMu.Unlock()
				s.serveOnce(w, r, next, cacheKey, entry)
				return
			}
			s.replayMu.Unlock()

			select {
			case <-prev.done:
			case <-r.Context().Done():
				return
			}
			if prev.status != 0 {
				if prev.contentType != "" {
					w.Header().Set("Content-Type", prev.contentType)
				}
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(prev.status)
				_, _ = w.Write(prev.body)
				return
			}
			// The first attempt failed and released the key; try again.
		}
	})
}

func (s *Server) serveOnce(w http.ResponseWriter, r *http.Request, next http.Handler, cacheKey string, entry *replay) {
	cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		p := recover()
		s.replayMu.Lock()
		if p != nil || cw.status >= 500 {
			delete(s.replays, cacheKey)
		} else {
			entry.status = cw.status
			entry.contentType = w.Header().Get("Content-Type")
			entry.body = cw.buf.Bytes()
		}
		s.replayMu.Unlock()
		close(entry.done)
		if p != nil {
			panic(p)
		}
	}()
	next.ServeHTTP(cw, r)
}
