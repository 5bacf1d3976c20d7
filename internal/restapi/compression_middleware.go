package restapi

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// CompressionMiddleware serves gzip-encoded responses to clients that accept
// them.
func CompressionMiddleware(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
