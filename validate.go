package ahttp

import (
	"fmt"

	"golang.org/x/net/http/httpguts"
)

// validateHeaders rejects header names/values that are not valid
// HTTP/1.1 tokens, using the same validation net/http's own Transport
// applies before writing a request (gogama-httpx/request/plan.go notes
// it lifted this check's logic from the same package rather than
// re-deriving it; here it is imported directly).
func validateHeaders(h Header) error {
	for k, vv := range h {
		if !httpguts.ValidHeaderFieldName(k) {
			return fmt.Errorf("ahttp: invalid header field name %q", k)
		}
		for _, v := range vv {
			if !httpguts.ValidHeaderFieldValue(v) {
				return fmt.Errorf("ahttp: invalid header field value for %q", k)
			}
		}
	}
	return nil
}
