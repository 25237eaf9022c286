// Package swar implements branch-light byte scanning using SWAR
// (SIMD-Within-A-Register) tricks: a machine word is treated as a
// vector of 8 lanes and compared against a broadcast target byte with
// plain integer ALU ops, instead of branching byte by byte.
//
// Every scanner here has a scalar twin that must agree on the matched
// length for any input (see the differential tests); the word path is
// a pure performance fast-path over the scalar semantics.
package swar

import (
	"encoding/binary"
	"math/bits"
)

// wordSize is the number of bytes scanned per SWAR step. Using a fixed
// 8-byte word (rather than the platform usize) keeps the table-driven
// masks below constant and keeps the tail loop bound small regardless
// of GOARCH.
const wordSize = 8

const (
	msb = 0x8080808080808080 // one 0x80 per lane
	lsb = 0x0101010101010101 // one 0x01 per lane
)

func broadcast(b byte) uint64 {
	return lsb * uint64(b)
}

// blockEq returns, per lane, 0x80 if that lane of block equals target,
// else 0. Classic "find zero byte" trick applied to block^target.
func blockEq(block, target uint64) uint64 {
	x := block ^ target
	return (x - lsb) &^ x & msb
}

// blockLT returns, per lane, 0x80 if that lane of block is strictly
// less than the (unsigned, <0x80) target, PROVIDED block's own MSBs
// are all clear going in (i.e. every lane is already ASCII). Lanes
// with the high bit set are treated as "not less than" by the caller
// masking against the input word, matching the origin codebase's
// block_lt_no_msb primitive: subtraction underflows into the MSB
// exactly when the lane value is below target.
func blockLT(block, target uint64) uint64 {
	return (block - lsb*uint64(target)) & msb
}

// firstLane returns the index (0..7) of the lowest-order lane whose
// 0x80 bit is set in mask, which must be nonzero.
func firstLane(mask uint64) int {
	return bits.TrailingZeros64(mask) / 8
}

func loadWord(b []byte) uint64 {
	return binary.NativeEndian.Uint64(b[:wordSize])
}

// Result is the outcome of a scan: the number of bytes accepted
// before the stop condition, and whether a stop byte was actually
// found (false means the input was exhausted with no interesting
// byte seen, i.e. "need more bytes").
type Result struct {
	N     int
	Found bool
}

// scanWord runs fn over consecutive 8-byte words of b, falling back to
// scalarFn for both the unaligned tail and as the reference semantics;
// fn must return a lane mask with 0x80 set in every "stop" lane, 0
// meaning "no stop in this word".
func scan(b []byte, word func(block uint64) uint64, scalar func(c byte) bool) Result {
	i := 0
	for ; i+wordSize <= len(b); i += wordSize {
		mask := word(loadWord(b[i:]))
		if mask != 0 {
			return Result{N: i + firstLane(mask), Found: true}
		}
	}
	for ; i < len(b); i++ {
		if scalar(b[i]) {
			return Result{N: i, Found: true}
		}
	}
	return Result{N: i, Found: false}
}

// MatchCRLF advances past bytes that are neither CR nor LF.
func MatchCRLF(b []byte) Result {
	cr := broadcast('\r')
	lf := broadcast('\n')
	return scan(b,
		func(block uint64) uint64 { return (blockEq(block, cr) | blockEq(block, lf)) },
		func(c byte) bool { return c == '\r' || c == '\n' },
	)
}

// SplitCRLF splits b at its first line terminator (CRLF, a bare CR, or
// a bare LF), returning the content before the terminator and the
// remainder of b after it. ok is false if no terminator has appeared
// yet, meaning the caller needs to buffer more input before it can
// split a complete line.
func SplitCRLF(b []byte) (before, after []byte, ok bool) {
	r := MatchCRLF(b)
	if !r.Found {
		return nil, nil, false
	}
	i := r.N
	if b[i] == '\r' && i+1 < len(b) && b[i+1] == '\n' {
		return b[:i], b[i+2:], true
	}
	return b[:i], b[i+1:], true
}

// MatchHeaderName advances past header-name token bytes, stopping at
// ':', any byte <= ' ' (0x20, includes CR/LF), or DEL (0x7F) and
// above. This mirrors RFC 7230 §3.2.6 token characters closely enough
// for the fast path; the caller re-validates the accepted run against
// the precise token byte-map (see http11) since the word-level test
// here is deliberately loose (it only needs to find the colon/line
// end quickly, not reject every invalid token byte).
func MatchHeaderName(b []byte) Result {
	colon := broadcast(':')
	del := broadcast(0x7F)
	return scan(b,
		func(block uint64) uint64 {
			isColon := blockEq(block, colon)
			isDel := blockEq(block, del)
			// lanes <= 0x20 (SP and below, includes CR/LF/NUL):
			// block - 0x21 underflows into the MSB for those lanes,
			// valid because token bytes never set the input's own MSB
			// (non-ASCII is itself a stop condition, see below).
			leSpace := blockLT(block&^msb, 0x21)
			highBit := block & msb
			return isColon | isDel | leSpace | highBit
		},
		func(c byte) bool { return c == ':' || c <= 0x20 || c >= 0x7F },
	)
}

// MatchHeaderValue advances past header-value bytes, stopping at CR,
// LF, NUL, or any byte with the high bit set (non-ASCII in a context
// where only printable-ASCII-or-HTAB is accepted by the caller).
func MatchHeaderValue(b []byte) Result {
	cr := broadcast('\r')
	lf := broadcast('\n')
	nul := broadcast(0x00)
	return scan(b,
		func(block uint64) uint64 {
			return blockEq(block, cr) | blockEq(block, lf) | blockEq(block, nul) | (block & msb)
		},
		func(c byte) bool { return c == '\r' || c == '\n' || c == 0x00 || c >= 0x80 },
	)
}

// MatchURILeader advances past scheme/host leader bytes, stopping at
// ':', '/', or any byte outside the visible-ASCII range '!'..'~'.
func MatchURILeader(b []byte) Result {
	colon := broadcast(':')
	slash := broadcast('/')
	del := broadcast('~' + 1)
	return scan(b,
		func(block uint64) uint64 {
			isColon := blockEq(block, colon)
			isSlash := blockEq(block, slash)
			lt33 := blockLT(block&^msb, '!') &^ (block & msb)
			isDel := blockEq(block, del)
			highBit := block & msb
			return isColon | isSlash | lt33 | isDel | highBit
		},
		func(c byte) bool { return c == ':' || c == '/' || c < '!' || c > '~' },
	)
}

// MatchPath advances past request-target path bytes, stopping at '?',
// '#', or any byte outside '!'..'~'.
func MatchPath(b []byte) Result {
	qs := broadcast('?')
	hash := broadcast('#')
	del := broadcast('~' + 1)
	return scan(b,
		func(block uint64) uint64 {
			isQS := blockEq(block, qs)
			isHash := blockEq(block, hash)
			lt33 := blockLT(block&^msb, '!') &^ (block & msb)
			isDel := blockEq(block, del)
			highBit := block & msb
			return isQS | isHash | lt33 | isDel | highBit
		},
		func(c byte) bool { return c == '?' || c == '#' || c < '!' || c > '~' },
	)
}

// MatchFragment advances past fragment bytes, stopping at '#' or any
// byte outside '!'..'~'.
func MatchFragment(b []byte) Result {
	hash := broadcast('#')
	del := broadcast('~' + 1)
	return scan(b,
		func(block uint64) uint64 {
			isHash := blockEq(block, hash)
			lt33 := blockLT(block&^msb, '!') &^ (block & msb)
			isDel := blockEq(block, del)
			highBit := block & msb
			return isHash | lt33 | isDel | highBit
		},
		func(c byte) bool { return c == '#' || c < '!' || c > '~' },
	)
}

// FindAt returns the index of the first '@' in b, or -1.
func FindAt(b []byte) int {
	at := broadcast('@')
	r := scan(b,
		func(block uint64) uint64 { return blockEq(block, at) },
		func(c byte) bool { return c == '@' },
	)
	if !r.Found {
		return -1
	}
	return r.N
}

// SplitPort returns the index of the last ':' in b that is followed
// only by digits to the end of b (a port suffix), or -1 if none.
func SplitPort(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == ':' {
			return i
		}
		if b[i] < '0' || b[i] > '9' {
			return -1
		}
	}
	return -1
}
