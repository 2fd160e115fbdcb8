// Package shamir implements byte-wise Shamir secret sharing over GF(256),
// authenticated per share with a separate MAC key and optionally
// accompanied by per-coefficient commitments for tamper-evident auditing.
//
// Only one verification scheme is shipped: MAC-based. The spec's source
// material carried both a production commitment-verification path and a
// simpler legacy MAC path with the former partially stubbed; this package
// resolves that by shipping MAC verification only. Commitments are
// produced (Split's CommitmentSet) but are documentary, not load-bearing —
// combine never consults them.
package shamir

import (
	"crypto/hmac"
	"crypto/rand"

	"github.com/zeebo/blake3"

	"github.com/luxfi/deadswitch/pkg/dserr"
	"github.com/luxfi/deadswitch/pkg/field"
	"github.com/luxfi/deadswitch/pkg/zeroize"
)

const commitmentDomainTag = "DEADSWITCH-COMMITMENT-v1"

// MaxShares is the largest share count this package supports; x=0 is
// reserved for the secret itself, leaving x in [1,255].
const MaxShares = 255

// Share is one (x, y) coordinate of the split polynomial, carrying an
// authentication tag over (x || y-bytes) computed with the split's shared
// MAC key.
type Share struct {
	Index uint8
	Y     []byte
	MAC   []byte
}

// CommitmentSet holds, per byte position and per coefficient, a collision
// resistant hash of (coefficient || byte-index || coefficient-index ||
// domain-tag); any party holding it can detect a share that deviates from
// the originally committed polynomial, without being able to verify a
// share from the commitments alone.
type CommitmentSet struct {
	// Commitments[byteIndex][coeffIndex] is the commitment hash.
	Commitments [][][32]byte
}

// SplitResult is the output of Split: the shares and the MAC key needed to
// verify them (and, when requested, the commitment set).
type SplitResult struct {
	Shares      []Share
	AuthKey     *zeroize.Key
	Commitments *CommitmentSet
}

// Split divides secret into n shares at threshold m: any m reconstruct the
// secret exactly, any m-1 reveal nothing. withCommitments controls whether
// a CommitmentSet is also produced.
func Split(secret []byte, n, m int, withCommitments bool) (*SplitResult, error) {
	if err := validateParams(n, m); err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, dserr.New("shamir.Split", dserr.KindInvalidParameters)
	}

	authKeyBytes := make([]byte, 32)
	if _, err := rand.Read(authKeyBytes); err != nil {
		return nil, dserr.Wrap("shamir.Split", dserr.KindEntropyFailure, err)
	}
	authKey := zeroize.New(authKeyBytes)

	shareBytes := make([][]byte, n)
	for i := range shareBytes {
		shareBytes[i] = make([]byte, len(secret))
	}

	var commitments *CommitmentSet
	if withCommitments {
		commitments = &CommitmentSet{Commitments: make([][][32]byte, len(secret))}
	}

	coeffs := make([]uint8, m)
	defer zeroize.Wipe(coeffs)
	for pos, secretByte := range secret {
		coeffs[0] = secretByte
		if _, err := rand.Read(coeffsSlice(coeffs[1:])); err != nil {
			return nil, dserr.Wrap("shamir.Split", dserr.KindEntropyFailure, err)
		}

		if withCommitments {
			row := make([][32]byte, m)
			for ci, c := range coeffs {
				row[ci] = commitCoefficient(c, pos, ci)
			}
			commitments.Commitments[pos] = row
		}

		for si := 0; si < n; si++ {
			x := uint8(si + 1)
			shareBytes[si][pos] = field.Eval(coeffs, x)
		}
	}

	shares := make([]Share, n)
	for si := 0; si < n; si++ {
		x := uint8(si + 1)
		mac := computeMAC(authKey.Bytes(), x, shareBytes[si])
		shares[si] = Share{Index: x, Y: shareBytes[si], MAC: mac}
	}

	return &SplitResult{Shares: shares, AuthKey: authKey, Commitments: commitments}, nil
}

// Combine reconstructs the secret from at least m verified shares. Any
// share whose MAC fails is skipped and recorded; if fewer than m survive,
// Combine fails with KindInsufficientShares. Duplicate x coordinates are
// deduplicated before the threshold check.
func Combine(shares []Share, authKey []byte, m int) ([]byte, []error) {
	var verifyErrs []error
	byX := make(map[uint8]Share)
	for _, s := range shares {
		if !Verify(s, authKey) {
			verifyErrs = append(verifyErrs, dserr.New("shamir.Combine", dserr.KindShareCorrupted).WithIndex(int(s.Index)))
			continue
		}
		if _, dup := byX[s.Index]; dup {
			continue // duplicate x: keep the first verified occurrence
		}
		byX[s.Index] = s
	}

	if len(byX) < m {
		verifyErrs = append(verifyErrs, dserr.New("shamir.Combine", dserr.KindInsufficientShares))
		return nil, verifyErrs
	}

	verified := make([]Share, 0, len(byX))
	for _, s := range byX {
		verified = append(verified, s)
	}
	length := len(verified[0].Y)
	secret := make([]byte, length)
	for pos := 0; pos < length; pos++ {
		pts := make([]field.Point, len(verified))
		for i, s := range verified {
			pts[i] = field.Point{X: s.Index, Y: s.Y[pos]}
		}
		b, err := field.InterpolateAtZero(pts)
		if err != nil {
			verifyErrs = append(verifyErrs, err)
			return nil, verifyErrs
		}
		secret[pos] = b
	}
	return secret, verifyErrs
}

// Verify checks a share's MAC. It never panics on malformed input.
func Verify(s Share, authKey []byte) bool {
	if len(authKey) == 0 || len(s.Y) == 0 || len(s.MAC) == 0 {
		return false
	}
	want := computeMAC(authKey, s.Index, s.Y)
	return hmac.Equal(want, s.MAC)
}

func computeMAC(authKey []byte, x uint8, y []byte) []byte {
	h := blake3.New()
	h.Write(authKey)
	h.Write([]byte{x})
	h.Write(y)
	sum := h.Sum(nil)
	return sum[:32]
}

func commitCoefficient(c uint8, byteIndex, coeffIndex int) [32]byte {
	h := blake3.New()
	h.Write([]byte{c})
	h.Write(encodeUint32(uint32(byteIndex)))
	h.Write(encodeUint32(uint32(coeffIndex)))
	h.Write([]byte(commitmentDomainTag))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func encodeUint32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func validateParams(n, m int) error {
	if m < 2 || n > MaxShares || n < m || 2*m < n {
		return dserr.New("shamir.Split", dserr.KindInvalidParameters)
	}
	return nil
}

// coeffsSlice is a tiny helper so rand.Read's []byte signature lines up
// with a []uint8 coefficient slice (they're the same underlying type, but
// spelled out for clarity at the call site).
func coeffsSlice(c []uint8) []byte { return c }
