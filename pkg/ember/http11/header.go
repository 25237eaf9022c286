package http11

import "github.com/wattproto/ember/pkg/ember/headers"

// Header is the HTTP/1.1-facing view over the shared header multimap
// (§4.7, pkg/ember/headers). It generalizes the teacher's original
// single-value, fixed-inline-array Header (32 names x 64 bytes, 32
// values x 128 bytes, map overflow) into a proper case-insensitive,
// insertion-ordered, multi-value map — required because a request may
// legitimately repeat a header name (e.g. multiple Cookie or
// X-Forwarded-For lines) and the spec's HeaderMap invariant (§3, §8)
// requires get_all to return every one of them in order.
type Header struct {
	m *headers.Map
}

// NewHeader allocates a Header sized for an expected header count;
// connections construct one per pooled Parser/Request and Reset it
// between requests rather than reallocating (§5 buffer discipline).
func NewHeader() Header {
	return Header{m: headers.New(MaxHeaders)}
}

// ensure lazily allocates the backing map so a zero-value Header
// (e.g. embedded in a pooled Request/Response struct literal) is
// usable without every call site switching to NewHeader.
func (h *Header) ensure() *headers.Map {
	if h.m == nil {
		h.m = headers.New(MaxHeaders)
	}
	return h.m
}

// Add appends a header value, preserving any prior values of the same
// name (spec's HeaderMap.append). Returns ErrHeaderTooLarge /
// ErrInvalidHeader for the same bounds the teacher enforced, since
// those protections (CRLF injection, oversized fields) are orthogonal
// to single- vs multi-value storage.
func (h *Header) Add(name, value []byte) error {
	if err := validateHeaderBytes(name, value); err != nil {
		return err
	}
	h.ensure().Append(name, value)
	return nil
}

// Get retrieves the first header value by name (case-insensitive).
func (h *Header) Get(name []byte) []byte {
	v, _ := h.ensure().Get(name)
	return v
}

// GetAll retrieves every value stored for name, in insertion order.
func (h *Header) GetAll(name []byte) [][]byte {
	return h.ensure().GetAll(name)
}

// GetString retrieves a header value by name as a string, allocating.
func (h *Header) GetString(name []byte) string {
	val := h.Get(name)
	if val == nil {
		return ""
	}
	return string(val)
}

// Has checks if a header exists (case-insensitive).
func (h *Header) Has(name []byte) bool {
	return h.ensure().Has(name)
}

// Set replaces any existing values of name with value (spec's
// HeaderMap.insert).
func (h *Header) Set(name, value []byte) error {
	if err := validateHeaderBytes(name, value); err != nil {
		return err
	}
	h.ensure().Insert(name, value)
	return nil
}

// Del deletes all values of name (case-insensitive).
func (h *Header) Del(name []byte) {
	h.ensure().Remove(name)
}

// Len returns the number of distinct header names.
func (h *Header) Len() int {
	return h.ensure().Len()
}

// Reset clears all headers for reuse across pooled requests.
func (h *Header) Reset() {
	h.ensure().Reset()
}

// VisitAll calls the visitor function for each (name, value) pair in
// insertion order, including repeated names. Iteration stops if
// visitor returns false.
func (h *Header) VisitAll(visitor func(name, value []byte) bool) {
	for _, f := range h.ensure().Iter() {
		if !visitor(f.Name, f.Value) {
			return
		}
	}
}

func validateHeaderBytes(name, value []byte) error {
	if len(name) > MaxHeaderName {
		return ErrHeaderTooLarge
	}
	if len(value) > 8192 {
		return ErrHeaderTooLarge
	}
	for _, b := range value {
		if b == '\r' || b == '\n' {
			return ErrInvalidHeader
		}
	}
	for _, b := range name {
		if b == '\r' || b == '\n' {
			return ErrInvalidHeader
		}
	}
	return nil
}
