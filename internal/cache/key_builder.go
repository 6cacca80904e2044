package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"

	"qrgen/internal/models"
)

// fingerprintVersion is bumped whenever rendering output changes for the same
// request, so stale entries in a shared backend stop matching.
const fingerprintVersion = 2

// FingerprintOf digests every field of req together with variant, which names
// the renderer settings (such as the recovery level) that change the output.
//
// Strings are hashed as raw bytes behind a length prefix, so texts differing
// only in invalid UTF-8 never collide. Absent logo and absent logo height get
// their own presence byte and never collide with present values.
func FingerprintOf(req models.RenderRequest, variant string) models.Fingerprint {
	h := sha256.New()
	writeUint32(h, fingerprintVersion)
	writeString(h, variant)
	writeString(h, req.Text)
	writeUint32(h, req.TargetWidth)

	if req.Logo == nil {
		h.Write([]byte{0})
	} else {
		h.Write([]byte{1})
		writeString(h, req.Logo.SourceURL)
		writeUint32(h, req.Logo.TargetWidth)
		if req.Logo.TargetHeight == nil {
			h.Write([]byte{0})
		} else {
			h.Write([]byte{1})
			writeUint32(h, *req.Logo.TargetHeight)
		}
	}

	var fp models.Fingerprint
	h.Sum(fp[:0])
	return fp
}

func writeUint32(h hash.Hash, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	h.Write(buf[:])
}

func writeString(h hash.Hash, s string) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
	h.Write(buf[:])
	h.Write([]byte(s))
}
