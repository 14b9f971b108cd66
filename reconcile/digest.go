package reconcile

import (
	"crypto/sha256"
	"encoding/binary"

	"zhajinhua-lite/card"
	"zhajinhua-lite/zhajinhua"
)

const digestDomain = "zhajinhua/v1/settlement"

// Digest computes the content digest of a concluded game: identities,
// revealed hands, fold flags and winner, in seat order. The encoding is
// length-prefixed so no two distinct games can collide by concatenation.
func Digest(snap zhajinhua.Snapshot, winner string) [32]byte {
	h := sha256.New()
	h.Write([]byte(digestDomain))

	writeString := func(s string) {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	writeInt64 := func(v int64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v))
		h.Write(b[:])
	}

	writeString(snap.ID)
	writeInt64(snap.Stake)
	writeInt64(int64(len(snap.Players)))
	for _, p := range snap.Players {
		writeString(p.Identity)
		flags := byte(0)
		if p.Folded {
			flags |= 1
		}
		if p.Revealed {
			flags |= 2
		}
		h.Write([]byte{flags})
		if p.Revealed {
			h.Write(card.Cards2bytes(p.HandCards))
		}
	}
	writeString(winner)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
