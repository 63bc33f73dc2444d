package rfb

import (
	"testing"

	"rfbterm/internal/descipher"
)

func TestDesKeyPadsShortPassword(t *testing.T) {
	k := desKey("ab")
	if k[0] != 'a' || k[1] != 'b' || k[2] != 0 {
		t.Fatalf("desKey(\"ab\") = %v, want 'a','b' then zero padding", k)
	}
}

func TestDesKeyTruncatesLongPassword(t *testing.T) {
	k := desKey("toolongpassword")
	if string(k[:]) != "toolongp" {
		t.Fatalf("desKey truncation = %q, want \"toolongp\"", k[:])
	}
}

func TestVerifyResponseAcceptsCorrectPassword(t *testing.T) {
	var challenge [16]byte
	for i := range challenge {
		challenge[i] = byte(i * 3)
	}
	response := descipher.Encrypt(desKey("secret"), challenge)
	if !verifyResponse("secret", challenge, response) {
		t.Fatalf("expected correct password to verify")
	}
}

func TestVerifyResponseRejectsWrongPassword(t *testing.T) {
	var challenge [16]byte
	response := descipher.Encrypt(desKey("secret"), challenge)
	if verifyResponse("wrong", challenge, response) {
		t.Fatalf("expected wrong password to fail verification")
	}
}

func TestNewChallengeProducesDistinctValues(t *testing.T) {
	a, err := newChallenge()
	if err != nil {
		t.Fatalf("newChallenge: %v", err)
	}
	b, err := newChallenge()
	if err != nil {
		t.Fatalf("newChallenge: %v", err)
	}
	if a == b {
		t.Fatalf("expected two random challenges to differ")
	}
}
