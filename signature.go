package minlsh

import "encoding/binary"

// Signature is a fixed-length MinHash signature approximating a set for
// Jaccard similarity estimation. Signatures are produced externally; the
// index only requires a known fixed length and element-wise comparability.
type Signature []uint64

// bandKey serializes sig[start:end] into the canonical byte encoding used as
// the hashtable key for one band. The encoding is big-endian so that equal
// sub-signatures produce identical keys regardless of host byte order.
func bandKey(sig Signature, start, end int) string {
	buf := make([]byte, (end-start)*8)
	for i, v := range sig[start:end] {
		binary.BigEndian.PutUint64(buf[i*8:], v)
	}
	return string(buf)
}
