package http11

import "errors"

// Parser errors - Pre-allocated for zero runtime allocation
var (
	// ErrInvalidRequestLine indicates the request line is malformed
	// Request line format: METHOD PATH PROTOCOL\r\n
	ErrInvalidRequestLine = errors.New("http11: invalid request line")

	// ErrInvalidMethod indicates an unsupported or malformed HTTP method
	ErrInvalidMethod = errors.New("http11: invalid HTTP method")

	// ErrInvalidPath indicates the request path is malformed
	ErrInvalidPath = errors.New("http11: invalid request path")

	// ErrInvalidProtocol indicates an unsupported protocol version
	// Only HTTP/1.1 is supported by this engine
	ErrInvalidProtocol = errors.New("http11: invalid or unsupported protocol version")

	// ErrInvalidHeader indicates a malformed header
	// Headers must be in format: Name: Value\r\n
	ErrInvalidHeader = errors.New("http11: invalid HTTP header")

	// ErrHeaderTooLarge indicates a header name or value exceeds size limits
	// Limits: name ≤64 bytes, value ≤8192 bytes
	ErrHeaderTooLarge = errors.New("http11: header name or value too large")

	// ErrTooManyHeaders indicates a request carried more than MaxHeaders
	// header lines. The underlying map has no fixed capacity; this is a
	// parse-time cap to bound per-request work, not a storage limit.
	ErrTooManyHeaders = errors.New("http11: too many headers")

	// ErrRequestLineTooLarge indicates the request line exceeds 8KB
	ErrRequestLineTooLarge = errors.New("http11: request line too large")

	// ErrHeadersTooLarge indicates more than MaxRequestLineSize+MaxHeadersSize
	// (16KB) of request line and headers arrived without the header terminator
	ErrHeadersTooLarge = errors.New("http11: headers too large")

	// ErrChunkedEncoding indicates an error parsing chunked transfer encoding.
	// Kept as a general sentinel for callers matching on the broad class;
	// specific failures are reported via the sentinels below instead.
	ErrChunkedEncoding = errors.New("http11: chunked encoding error")

	// ErrInvalidChunked indicates the chunk framing itself is malformed:
	// a non-hex chunk-size digit, a missing or corrupt CRLF terminator,
	// or a malformed trailer field-line. The peer sent well-formed bytes
	// that do not parse as chunked transfer encoding at all.
	ErrInvalidChunked = errors.New("http11: invalid chunked encoding")

	// ErrChunkTooLarge indicates a single chunk's declared size exceeds
	// MaxChunkedSize. The connection should be closed rather than answered,
	// since the oversize chunk has not been fully drained.
	ErrChunkTooLarge = errors.New("http11: chunk size exceeds limit")

	// ErrChunkedExhausted indicates the chunked body exceeded the reader's
	// configured maxBodySize before the terminating last-chunk was reached.
	ErrChunkedExhausted = errors.New("http11: chunked body exceeds size limit")

	// ErrInvalidContentLength indicates Content-Length header is malformed
	ErrInvalidContentLength = errors.New("http11: invalid Content-Length")

	// P0 FIX #1: HTTP Request Smuggling - CL.TE Attack Protection
	// ErrContentLengthWithTransferEncoding indicates a request has both headers
	// RFC 7230 §3.3.3: This MUST be rejected to prevent smuggling attacks
	ErrContentLengthWithTransferEncoding = errors.New("http11: request has both Content-Length and Transfer-Encoding (RFC 7230 violation)")

	// P0 FIX #2: HTTP Request Smuggling - Duplicate Content-Length Protection
	// ErrDuplicateContentLength indicates multiple Content-Length headers with different values
	// RFC 7230 §3.3.3: This MUST be rejected to prevent smuggling attacks
	ErrDuplicateContentLength = errors.New("http11: duplicate Content-Length headers with different values (RFC 7230 violation)")

	// P0 FIX #5: Excessive URI Length DoS Protection
	// ErrURITooLong indicates the URI exceeds the maximum allowed length
	// This prevents memory exhaustion attacks
	ErrURITooLong = errors.New("http11: URI too long")

	// ErrUnexpectedEOF indicates unexpected end of input
	ErrUnexpectedEOF = errors.New("http11: unexpected EOF")

	// ErrBufferTooSmall indicates the provided buffer is too small
	ErrBufferTooSmall = errors.New("http11: buffer too small")

	// ErrNeedMoreBytes is returned by Parser.TryParse when the bytes fed
	// so far don't yet contain a full request line + header section. It
	// is not a parse failure: the caller should read more bytes from the
	// connection, Feed them in, and call TryParse again. The parser
	// never blocks on I/O itself (§4.3, §5); this sentinel is how it
	// signals "come back with more" instead.
	ErrNeedMoreBytes = errors.New("http11: need more bytes")
)

// Connection errors
var (
	// ErrConnectionClosed indicates the connection has been closed
	ErrConnectionClosed = errors.New("http11: connection closed")

	// ErrTimeout indicates a read or write timeout occurred
	ErrTimeout = errors.New("http11: timeout")

	// ErrMaxRequestsExceeded indicates max requests per connection exceeded
	ErrMaxRequestsExceeded = errors.New("http11: max requests per connection exceeded")
)

// Response errors
var (
	// ErrHeadersAlreadyWritten indicates WriteHeader was called multiple times
	ErrHeadersAlreadyWritten = errors.New("http11: headers already written")

	// ErrInvalidStatusCode indicates an invalid HTTP status code
	ErrInvalidStatusCode = errors.New("http11: invalid status code")
)
