// Package field implements GF(256) arithmetic over the AES reduction
// polynomial 0x11B, the substrate that pkg/shamir builds its threshold
// split/combine on top of.
package field

import "github.com/luxfi/deadswitch/pkg/dserr"

// reducingPolynomial is the AES modulus x^8+x^4+x^3+x+1.
const reducingPolynomial = 0x11B

// generator is the primitive element used to build the log/antilog tables.
// 3 generates all 255 non-zero elements of GF(256) under 0x11B; 2 does not
// (it has order 51, far short of 255) and must never be used here.
const generator = 3

var (
	logTable [256]uint8
	expTable [512]uint8 // doubled so exp lookups never need to wrap the index
)

func init() {
	buildTables()
	assertFullOrder()
}

func buildTables() {
	x := uint8(1)
	for i := 0; i < 255; i++ {
		expTable[i] = x
		logTable[x] = uint8(i)
		x = xtimes(x, generator)
	}
	for i := 255; i < 512; i++ {
		expTable[i] = expTable[i-255]
	}
}

// xtimes multiplies a and b the slow, definition-following way (used only
// once at init to build the fast tables, so it does not need the tables).
func xtimes(a, b uint8) uint8 {
	var result uint16
	var aa, bb uint16 = uint16(a), uint16(b)
	for i := 0; i < 8; i++ {
		if bb&1 != 0 {
			result ^= aa
		}
		hiBitSet := aa & 0x80
		aa <<= 1
		if hiBitSet != 0 {
			aa ^= reducingPolynomial
		}
		bb >>= 1
	}
	return uint8(result)
}

// assertFullOrder panics at init time if the generator failed to produce
// all 255 non-zero field elements — the hard invariant called out in
// spec §4.1/§9: a bad generator (e.g. 2) silently corrupts every share.
func assertFullOrder() {
	var seen [256]bool
	for i := 0; i < 255; i++ {
		v := expTable[i]
		if v == 0 || seen[v] {
			panic("field: generator does not produce the full GF(256) group")
		}
		seen[v] = true
	}
	for v := 1; v < 256; v++ {
		if !seen[uint8(v)] {
			panic("field: generator does not produce the full GF(256) group")
		}
	}
}

// Add returns a XOR b; GF(256) addition and subtraction coincide.
func Add(a, b uint8) uint8 { return a ^ b }

// Sub is identical to Add in characteristic 2.
func Sub(a, b uint8) uint8 { return a ^ b }

// Mul returns a*b in GF(256).
func Mul(a, b uint8) uint8 {
	if a == 0 || b == 0 {
		return 0
	}
	logSum := int(logTable[a]) + int(logTable[b])
	return expTable[logSum]
}

// Div returns a/b in GF(256). Fails with dserr.KindInvalidParameters when
// b is zero (division by zero is a caller error, not a field property).
func Div(a, b uint8) (uint8, error) {
	if b == 0 {
		return 0, dserr.New("field.Div", dserr.KindInvalidParameters)
	}
	if a == 0 {
		return 0, nil
	}
	diff := int(logTable[a]) - int(logTable[b])
	if diff < 0 {
		diff += 255
	}
	return expTable[diff], nil
}

// Eval evaluates a polynomial at x using Horner's method, coefficients
// ordered from constant term (coeffs[0]) to highest degree.
func Eval(coeffs []uint8, x uint8) uint8 {
	if len(coeffs) == 0 {
		return 0
	}
	out := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		out = Add(Mul(out, x), coeffs[i])
	}
	return out
}

// Point is one (x, y) sample of a polynomial over GF(256).
type Point struct {
	X uint8
	Y uint8
}

// InterpolateAtZero computes p(0) given len(points) >= 1 distinct samples
// via Lagrange interpolation: secret = Sum_i y_i * Prod_{j!=i} x_j/(x_j^x_i).
// Fails with dserr.KindDuplicateX if any two points share an x coordinate.
func InterpolateAtZero(points []Point) (uint8, error) {
	seen := make(map[uint8]bool, len(points))
	for _, p := range points {
		if seen[p.X] {
			return 0, dserr.New("field.InterpolateAtZero", dserr.KindDuplicateX)
		}
		seen[p.X] = true
	}

	var result uint8
	for i, pi := range points {
		num := uint8(1)
		den := uint8(1)
		for j, pj := range points {
			if i == j {
				continue
			}
			num = Mul(num, pj.X)
			den = Mul(den, Add(pj.X, pi.X))
		}
		term, err := Div(num, den)
		if err != nil {
			return 0, err
		}
		result = Add(result, Mul(pi.Y, term))
	}
	return result, nil
}
