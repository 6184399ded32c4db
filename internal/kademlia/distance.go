// Package kademlia implements the XOR distance comparison used to order
// relay candidates relative to a target peer.
package kademlia

// Distance returns the bytewise XOR of a and b, padding the shorter
// operand with zeros.
func Distance(a, b []byte) []byte {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var av, bv byte
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		out[i] = av ^ bv
	}
	return out
}

// Less reports whether distance x is strictly closer than distance y,
// comparing as an unsigned big-endian integer (ties broken lexicographically,
// which big-endian byte comparison already gives).
func Less(x, y []byte) bool {
	n := len(x)
	if len(y) > n {
		n = len(y)
	}
	for i := 0; i < n; i++ {
		var xv, yv byte
		if i < len(x) {
			xv = x[i]
		}
		if i < len(y) {
			yv = y[i]
		}
		if xv != yv {
			return xv < yv
		}
	}
	return false
}

// CompareByDistance orders peer ids by XOR distance to target, ascending
// (closest first). Used to select relay candidates.
func CompareByDistance(target []byte, a, b []byte) int {
	da := Distance(target, a)
	db := Distance(target, b)
	switch {
	case Less(da, db):
		return -1
	case Less(db, da):
		return 1
	default:
		return 0
	}
}
