package swar

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// scalarHeaderName is the reference scalar implementation that
// MatchHeaderName must agree with for every input (§8 differential
// test: "for all byte strings the scalar header-token matcher
// accepts, the SWAR matcher accepts the same prefix length").
func scalarHeaderName(b []byte) Result {
	for i, c := range b {
		if c == ':' || c <= 0x20 || c >= 0x7F {
			return Result{N: i, Found: true}
		}
	}
	return Result{N: len(b), Found: false}
}

func scalarCRLF(b []byte) Result {
	for i, c := range b {
		if c == '\r' || c == '\n' {
			return Result{N: i, Found: true}
		}
	}
	return Result{N: len(b), Found: false}
}

func scalarPath(b []byte) Result {
	for i, c := range b {
		if c == '?' || c == '#' || c < '!' || c > '~' {
			return Result{N: i, Found: true}
		}
	}
	return Result{N: len(b), Found: false}
}

func randomHeaderLine(n int, r *rand.Rand) []byte {
	alphabet := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_")
	out := make([]byte, n)
	for i := range out {
		switch {
		case r.Intn(20) == 0:
			out[i] = ':'
		case r.Intn(20) == 0:
			out[i] = '\r'
		case r.Intn(20) == 0:
			out[i] = '\n'
		case r.Intn(40) == 0:
			out[i] = byte(0x80 + r.Intn(0x7F))
		default:
			out[i] = alphabet[r.Intn(len(alphabet))]
		}
	}
	return out
}

func TestMatchHeaderName_DifferentialAgainstScalar(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for trial := 0; trial < 2000; trial++ {
		n := r.Intn(40)
		line := randomHeaderLine(n, r)
		got := MatchHeaderName(line)
		want := scalarHeaderName(line)
		assert.Equal(t, want, got, "input=%q", line)
	}
}

func TestMatchCRLF_DifferentialAgainstScalar(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for trial := 0; trial < 2000; trial++ {
		n := r.Intn(40)
		line := randomHeaderLine(n, r)
		assert.Equal(t, scalarCRLF(line), MatchCRLF(line), "input=%q", line)
	}
}

func TestMatchPath_DifferentialAgainstScalar(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for trial := 0; trial < 2000; trial++ {
		n := r.Intn(40)
		line := randomHeaderLine(n, r)
		assert.Equal(t, scalarPath(line), MatchPath(line), "input=%q", line)
	}
}

func TestMatchHeaderName_ExactBoundary(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		stop bool
	}{
		{"", 0, false},
		{"Host", 4, false},
		{"Host:", 4, true},
		{"Host: x", 4, true},
		{"X-Custom-Header:v", 16, true},
		{"has space:v", 3, true},
	}
	for _, c := range cases {
		got := MatchHeaderName([]byte(c.in))
		assert.Equal(t, c.n, got.N, "input=%q", c.in)
		assert.Equal(t, c.stop, got.Found, "input=%q", c.in)
	}
}

func TestFindAt(t *testing.T) {
	assert.Equal(t, 4, FindAt([]byte("user@host")))
	assert.Equal(t, -1, FindAt([]byte("nouserinfo")))
}

func TestSplitPort(t *testing.T) {
	assert.Equal(t, 9, SplitPort([]byte("localhost:8080")))
	assert.Equal(t, -1, SplitPort([]byte("localhost")))
	assert.Equal(t, -1, SplitPort([]byte("localhost:80a0")))
}
