package serve

import (
	"fmt"
	"net/http"
	"strconv"
)

// WriteHeaders sets the response headers for authorized content. nosniff is
// unconditional so browsers cannot second-guess the verified content type,
// and the disposition filename is the sanitized name, which by construction
// contains no characters needing header escaping.
func WriteHeaders(h http.Header, c *Content) {
	h.Set("Content-Type", c.ContentType)
	h.Set("Content-Length", strconv.FormatInt(c.Size, 10))
	h.Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", c.Disposition, c.Name))
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "private, no-store")
}
