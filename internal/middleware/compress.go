// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// gzipWriterPool pools gzip.Writer instances to reduce allocations.
var gzipWriterPool = sync.Pool{
	New: func() any {
		return gzip.NewWriter(io.Discard)
	},
}

// compressibleContentTypes lists non-text content types that are compressed.
var compressibleContentTypes = []string{
	"application/json",
	"application/javascript",
	"application/xml",
	"image/svg+xml",
}

// Compress gzips responses of at least minSize bytes whose content type is
// compressible, for clients that accept gzip. Responses are buffered.
func Compress(minSize int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			sw := &selectiveWriter{ResponseWriter: w, minSize: minSize}
			next.ServeHTTP(sw, r)
			sw.flush()
		})
	}
}

// selectiveWriter buffers the response and decides on compression once the
// handler is done.
type selectiveWriter struct {
	http.ResponseWriter
	minSize    int
	buffer     []byte
	statusCode int
}

func (sw *selectiveWriter) WriteHeader(statusCode int) {
	if sw.statusCode == 0 {
		sw.statusCode = statusCode
	}
}

func (sw *selectiveWriter) Write(b []byte) (int, error) {
	sw.buffer = append(sw.buffer, b...)
	return len(b), nil
}

func (sw *selectiveWriter) flush() {
	shouldCompress := len(sw.buffer) >= sw.minSize && len(sw.buffer) > 0 &&
		isCompressible(sw.Header().Get("Content-Type"))

	if shouldCompress {
		sw.Header().Set("Content-Encoding", "gzip")
		sw.Header().Add("Vary", "Accept-Encoding")
		sw.Header().Del("Content-Length")
	}

	if sw.statusCode != 0 {
		sw.ResponseWriter.WriteHeader(sw.statusCode)
	}
	if len(sw.buffer) == 0 {
		return
	}

	if !shouldCompress {
		_, _ = sw.ResponseWriter.Write(sw.buffer)
		return
	}
	gz := gzipWriterPool.Get().(*gzip.Writer)
	gz.Reset(sw.ResponseWriter)
	_, _ = gz.Write(sw.buffer)
	_ = gz.Close()
	gzipWriterPool.Put(gz)
}

// isCompressible checks if the content type should be compressed.
func isCompressible(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	for _, ct := range compressibleContentTypes {
		if mediaType == ct {
			return true
		}
	}
	return false
}
