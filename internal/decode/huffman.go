package decode

import "fmt"

// Code is one canonical Huffman code of Len bits.
type Code struct {
	Len  int
	Bits uint16
}

func (c Code) String() string {
	return fmt.Sprintf("%0*b", c.Len, c.Bits)
}

// CanonicalCodes assigns codes to symbols in order from per-length counts
// (counts[0] is the number of 1-bit codes). Codes of one length are
// consecutive; moving to the next length shifts left by one. ok is false
// when the counts oversubscribe the code space; codes assigned before the
// overflow are still returned.
func CanonicalCodes(counts [16]int) (codes []Code, ok bool) {
	code := 0
	for i, n := range counts {
		l := i + 1
		for range n {
			if code >= 1<<l {
				return codes, false
			}
			codes = append(codes, Code{Len: l, Bits: uint16(code)})
			code++
		}
		code <<= 1
	}
	return codes, true
}
