// Package requestid attaches a correlation identifier to every HTTP request
// so upload, grant, and serve log records from one interaction can be tied
// together.
//
// Middleware reuses a valid client-supplied "X-Request-ID" header or
// generates a UUIDv4, stores it in the request context, and echoes it in the
// response. FromContext reads it back; LoggerExtractor plugs it into the
// logger package's context extraction:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	router.Use(requestid.Middleware)
//
// Invalid or oversized client IDs are silently replaced, never rejected.
package requestid
