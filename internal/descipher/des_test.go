package descipher

import "testing"

func TestEncryptBlockKnownVector(t *testing.T) {
	// Classic DES test vector: key = all-zero, plaintext = all-zero.
	got := encryptBlock(0, 0)
	want := uint64(0x8CA64DE9C1B123A7)
	if got != want {
		t.Fatalf("encryptBlock(0,0) = %016X, want %016X", got, want)
	}
}

func TestEncryptRoundTripLength(t *testing.T) {
	var key [8]byte
	copy(key[:], []byte("password"))
	var challenge [16]byte
	for i := range challenge {
		challenge[i] = byte(i)
	}

	out := Encrypt(key, challenge)
	if len(out) != 16 {
		t.Fatalf("expected 16-byte response, got %d", len(out))
	}

	// Deterministic: same key+challenge always produces the same response.
	out2 := Encrypt(key, challenge)
	if out != out2 {
		t.Fatalf("Encrypt is not deterministic")
	}
}

func TestVncReverseBits(t *testing.T) {
	cases := []struct{ in, want byte }{
		{0x01, 0x80},
		{0x80, 0x01},
		{0x00, 0x00},
		{0xFF, 0xFF},
	}
	for _, c := range cases {
		if got := vncReverseBits(c.in); got != c.want {
			t.Errorf("vncReverseBits(%#02x) = %#02x, want %#02x", c.in, got, c.want)
		}
	}
}
