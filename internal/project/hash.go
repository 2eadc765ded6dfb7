package project

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"cdef/internal/cdef"
)

// Digest is a SHA-256 value used as a cache key.
type Digest [32]byte

// Hex returns the lowercase hex form of d.
func (d Digest) Hex() string {
	return fmt.Sprintf("%x", d[:])
}

// Combine hashes content followed by every dep in order: H(content || dep1 || dep2 ...).
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// HashBytes returns the digest of data.
func HashBytes(data []byte) Digest {
	return sha256.Sum256(data)
}

// HashOptions digests every field that changes rendered output. Defaults are
// applied first so that equivalent option sets hash the same.
func HashOptions(opt cdef.Options) Digest {
	if opt.Precision == "" {
		opt.Precision = cdef.Single
	}
	if opt.LineLength == 0 {
		opt.LineLength = cdef.DefaultLineLength
	}
	if opt.ExportLength && opt.LengthName == "" {
		opt.LengthName = opt.Name + "Length"
	}
	h := sha256.New()
	for _, field := range []string{
		opt.Name,
		string(opt.Precision),
		strconv.FormatBool(opt.ExportLength),
		opt.LengthName,
		strconv.FormatBool(opt.Static),
		strconv.FormatBool(opt.Pack),
		strconv.Itoa(opt.LineLength),
	} {
		_, _ = h.Write([]byte(field))
		_, _ = h.Write([]byte{0})
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
