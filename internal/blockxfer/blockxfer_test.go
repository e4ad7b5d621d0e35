package blockxfer

import (
	"bytes"
	"testing"
)

func TestSplitAndAssembleRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100)
	blocks, err := Split("f.txt", data, 32)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 4 {
		t.Fatalf("got %d blocks, want 4", len(blocks))
	}
	if blocks[3].Index != 4 || len(blocks[3].Payload) != 4 {
		t.Fatalf("last block wrong: %+v", blocks[3])
	}
	for _, b := range blocks {
		if b.Total != 4 {
			t.Fatalf("expected total 4, got %d", b.Total)
		}
	}

	byIndex := make(map[int][]byte)
	for _, b := range blocks {
		byIndex[b.Index] = b.Payload
	}
	assembled, err := Assemble(byIndex, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(assembled, data) {
		t.Fatal("round trip mismatch")
	}
}

func TestSplitEmptyFileRejected(t *testing.T) {
	if _, err := Split("empty.txt", nil, 32); err != ErrEmptyFile {
		t.Fatalf("got %v, want ErrEmptyFile", err)
	}
}

func TestAssembleMissingBlock(t *testing.T) {
	_, err := Assemble(map[int][]byte{1: []byte("a")}, 2)
	if err == nil {
		t.Fatal("expected error for missing block")
	}
}

func TestDigestStable(t *testing.T) {
	a := Digest([]byte("hello"))
	b := Digest([]byte("hello"))
	if a != b {
		t.Fatal("digest not deterministic")
	}
	if a == Digest([]byte("hellp")) {
		t.Fatal("digest collided on different input")
	}
}

func TestValidateBlockSizeRejectsOversized(t *testing.T) {
	if err := ValidateBlockSize("f.txt", DefaultMTU, DefaultMTU); err == nil {
		t.Fatal("expected error: block size equal to MTU can't fit base64 overhead")
	}
	if err := ValidateBlockSize("f.txt", DefaultBlockSize, DefaultMTU); err != nil {
		t.Fatalf("default block size should fit default MTU: %v", err)
	}
}
