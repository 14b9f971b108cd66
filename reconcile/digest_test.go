package reconcile

import (
	"testing"

	"zhajinhua-lite/zhajinhua"
)

func activeSnapshotGame(t *testing.T) *zhajinhua.Game {
	t.Helper()
	g, err := zhajinhua.NewGame(zhajinhua.DefaultConfig(), "digest-game", "0xa11ce", 100)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := g.Join("0xb0b"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	for i, p := range []string{"0xa11ce", "0xb0b"} {
		salt := []byte{byte(i)}
		entropy := []byte{byte(i), 0xEE}
		if err := g.SubmitCommitment(p, zhajinhua.CommitEntropy(salt, entropy)); err != nil {
			t.Fatalf("SubmitCommitment: %v", err)
		}
	}
	for i, p := range []string{"0xa11ce", "0xb0b"} {
		salt := []byte{byte(i)}
		entropy := []byte{byte(i), 0xEE}
		if err := g.RevealEntropy(p, salt, entropy); err != nil {
			t.Fatalf("RevealEntropy: %v", err)
		}
	}
	if err := g.Deal("0xa11ce"); err != nil {
		t.Fatalf("Deal: %v", err)
	}
	return g
}

func TestDigest_StableForIdenticalState(t *testing.T) {
	g := activeSnapshotGame(t)
	d1 := Digest(g.Snapshot(), "0xa11ce")
	d2 := Digest(g.Snapshot(), "0xa11ce")
	if d1 != d2 {
		t.Fatalf("digest must be deterministic: %x != %x", d1, d2)
	}
}

func TestDigest_SensitiveToSemanticChanges(t *testing.T) {
	g := activeSnapshotGame(t)
	base := Digest(g.Snapshot(), "0xa11ce")

	if other := Digest(g.Snapshot(), "0xb0b"); other == base {
		t.Fatalf("different winner must change the digest")
	}

	if err := g.Reveal("0xa11ce"); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if revealed := Digest(g.Snapshot(), "0xa11ce"); revealed == base {
		t.Fatalf("revealing a hand must change the digest")
	}

	beforeFold := Digest(g.Snapshot(), "0xa11ce")
	if err := g.Fold("0xb0b"); err != nil {
		t.Fatalf("Fold: %v", err)
	}
	if folded := Digest(g.Snapshot(), "0xa11ce"); folded == beforeFold {
		t.Fatalf("a fold must change the digest")
	}
}
