// Package httpserver exposes a MultiStore over HTTP.
//
// Object operations fan out through the mirroring engine:
//
//	PUT    /api/objects/{path}      - mirrored write from primary
//	GET    /api/objects/{path}      - read (query param "store" selects a store)
//	HEAD   /api/objects/{path}      - existence check, Last-Modified header
//	DELETE /api/objects/{path}      - mirrored delete
//	DELETE /api/directories/{path}  - mirrored directory delete
//	POST   /api/mirrors/{group}     - define a mirror group
//
// Plus the usual liveness, readiness, and drain endpoints.
//
// Driver errors map onto status codes: ErrResourceNotFound is 404,
// ErrInvalidPath is 400, authentication and partial mirror failures are 502
// with a per-store error body.
package httpserver
