// Package descipher implements the DES block cipher as a self-contained
// primitive for the RFB VNC authentication challenge-response step.
package descipher

var initialPermutation = [64]byte{
	58, 50, 42, 34, 26, 18, 10, 2,
	60, 52, 44, 36, 28, 20, 12, 4,
	62, 54, 46, 38, 30, 22, 14, 6,
	64, 56, 48, 40, 32, 24, 16, 8,
	57, 49, 41, 33, 25, 17, 9, 1,
	59, 51, 43, 35, 27, 19, 11, 3,
	61, 53, 45, 37, 29, 21, 13, 5,
	63, 55, 47, 39, 31, 23, 15, 7,
}

var finalPermutation = [64]byte{
	40, 8, 48, 16, 56, 24, 64, 32,
	39, 7, 47, 15, 55, 23, 63, 31,
	38, 6, 46, 14, 54, 22, 62, 30,
	37, 5, 45, 13, 53, 21, 61, 29,
	36, 4, 44, 12, 52, 20, 60, 28,
	35, 3, 43, 11, 51, 19, 59, 27,
	34, 2, 42, 10, 50, 18, 58, 26,
	33, 1, 41, 9, 49, 17, 57, 25,
}

var expansion = [48]byte{
	32, 1, 2, 3, 4, 5,
	4, 5, 6, 7, 8, 9,
	8, 9, 10, 11, 12, 13,
	12, 13, 14, 15, 16, 17,
	16, 17, 18, 19, 20, 21,
	20, 21, 22, 23, 24, 25,
	24, 25, 26, 27, 28, 29,
	28, 29, 30, 31, 32, 1,
}

var permutation = [32]byte{
	16, 7, 20, 21, 29, 12, 28, 17,
	1, 15, 23, 26, 5, 18, 31, 10,
	2, 8, 24, 14, 32, 27, 3, 9,
	19, 13, 30, 6, 22, 11, 4, 25,
}

var pc1 = [56]byte{
	57, 49, 41, 33, 25, 17, 9,
	1, 58, 50, 42, 34, 26, 18,
	10, 2, 59, 51, 43, 35, 27,
	19, 11, 3, 60, 52, 44, 36,
	63, 55, 47, 39, 31, 23, 15,
	7, 62, 54, 46, 38, 30, 22,
	14, 6, 61, 53, 45, 37, 29,
	21, 13, 5, 28, 20, 12, 4,
}

var pc2 = [48]byte{
	14, 17, 11, 24, 1, 5,
	3, 28, 15, 6, 21, 10,
	23, 19, 12, 4, 26, 8,
	16, 7, 27, 20, 13, 2,
	41, 52, 31, 37, 47, 55,
	30, 40, 51, 45, 33, 48,
	44, 49, 39, 56, 34, 53,
	46, 42, 50, 36, 29, 32,
}

var shiftSchedule = [16]byte{1, 1, 2, 2, 2, 2, 2, 2, 1, 2, 2, 2, 2, 2, 2, 1}

var sBoxes = [8][4][16]byte{
	{
		{14, 4, 13, 1, 2, 15, 11, 8, 3, 10, 6, 12, 5, 9, 0, 7},
		{0, 15, 7, 4, 14, 2, 13, 1, 10, 6, 12, 11, 9, 5, 3, 8},
		{4, 1, 14, 8, 13, 6, 2, 11, 15, 12, 9, 7, 3, 10, 5, 0},
		{15, 12, 8, 2, 4, 9, 1, 7, 5, 11, 3, 14, 10, 0, 6, 13},
	},
	{
		{15, 1, 8, 14, 6, 11, 3, 4, 9, 7, 2, 13, 12, 0, 5, 10},
		{3, 13, 4, 7, 15, 2, 8, 14, 12, 0, 1, 10, 6, 9, 11, 5},
		{0, 14, 7, 11, 10, 4, 13, 1, 5, 8, 12, 6, 9, 3, 2, 15},
		{13, 8, 10, 1, 3, 15, 4, 2, 11, 6, 7, 12, 0, 5, 14, 9},
	},
	{
		{10, 0, 9, 14, 6, 3, 15, 5, 1, 13, 12, 7, 11, 4, 2, 8},
		{13, 7, 0, 9, 3, 4, 6, 10, 2, 8, 5, 14, 12, 11, 15, 1},
		{13, 6, 4, 9, 8, 15, 3, 0, 11, 1, 2, 12, 5, 10, 14, 7},
		{1, 10, 13, 0, 6, 9, 8, 7, 4, 15, 14, 3, 11, 5, 2, 12},
	},
	{
		{7, 13, 14, 3, 0, 6, 9, 10, 1, 2, 8, 5, 11, 12, 4, 15},
		{13, 8, 11, 5, 6, 15, 0, 3, 4, 7, 2, 12, 1, 10, 14, 9},
		{10, 6, 9, 0, 12, 11, 7, 13, 15, 1, 3, 14, 5, 2, 8, 4},
		{3, 15, 0, 6, 10, 1, 13, 8, 9, 4, 5, 11, 12, 7, 2, 14},
	},
	{
		{2, 12, 4, 1, 7, 10, 11, 6, 8, 5, 3, 15, 13, 0, 14, 9},
		{14, 11, 2, 12, 4, 7, 13, 1, 5, 0, 15, 10, 3, 9, 8, 6},
		{4, 2, 1, 11, 10, 13, 7, 8, 15, 9, 12, 5, 6, 3, 0, 14},
		{11, 8, 12, 7, 1, 14, 2, 13, 6, 15, 0, 9, 10, 4, 5, 3},
	},
	{
		{12, 1, 10, 15, 9, 2, 6, 8, 0, 13, 3, 4, 14, 7, 5, 11},
		{10, 15, 4, 2, 7, 12, 9, 5, 6, 1, 13, 14, 0, 11, 3, 8},
		{9, 14, 15, 5, 2, 8, 12, 3, 7, 0, 4, 10, 1, 13, 11, 6},
		{4, 3, 2, 12, 9, 5, 15, 10, 11, 14, 1, 7, 6, 0, 8, 13},
	},
	{
		{4, 11, 2, 14, 15, 0, 8, 13, 3, 12, 9, 7, 5, 10, 6, 1},
		{13, 0, 11, 7, 4, 9, 1, 10, 14, 3, 5, 12, 2, 15, 8, 6},
		{1, 4, 11, 13, 12, 3, 7, 14, 10, 15, 6, 8, 0, 5, 9, 2},
		{6, 11, 13, 8, 1, 4, 10, 7, 9, 5, 0, 15, 14, 2, 3, 12},
	},
	{
		{13, 2, 8, 4, 6, 15, 11, 1, 10, 9, 3, 14, 5, 0, 12, 7},
		{1, 15, 13, 8, 10, 3, 7, 4, 12, 5, 6, 11, 0, 14, 9, 2},
		{7, 11, 4, 1, 9, 12, 14, 2, 0, 6, 10, 13, 15, 3, 5, 8},
		{2, 1, 14, 7, 4, 10, 8, 13, 15, 12, 9, 0, 3, 5, 6, 11},
	},
}

// bitAt reads bit n (1-indexed, MSB-first) of a 64-bit value treated as
// a sequence of bits numbered 1..64 left to right.
func bitAt(v uint64, n int, width int) uint64 {
	return (v >> uint(width-n)) & 1
}

func permuteBits(v uint64, width int, table []byte) uint64 {
	var out uint64
	for _, bitNum := range table {
		out = (out << 1) | bitAt(v, int(bitNum), width)
	}
	return out
}

func subKeys(key uint64) [16]uint64 {
	permuted := permuteBits(key, 64, pc1[:])
	c := uint32(permuted >> 28)
	d := uint32(permuted & 0x0FFFFFFF)

	var keys [16]uint64
	for round := 0; round < 16; round++ {
		shift := shiftSchedule[round]
		c = ((c << shift) | (c >> (28 - shift))) & 0x0FFFFFFF
		d = ((d << shift) | (d >> (28 - shift))) & 0x0FFFFFFF
		combined := (uint64(c) << 28) | uint64(d)
		keys[round] = permuteBits(combined, 56, pc2[:])
	}
	return keys
}

func feistel(r uint32, subKey uint64) uint32 {
	expanded := permuteBits(uint64(r), 32, expansion[:])
	expanded ^= subKey

	var sOut uint32
	for i := 0; i < 8; i++ {
		chunk := byte(expanded>>(42-6*i)) & 0x3F
		row := ((chunk & 0x20) >> 4) | (chunk & 0x01)
		col := (chunk >> 1) & 0x0F
		sOut = (sOut << 4) | uint32(sBoxes[i][row][col])
	}
	return uint32(permuteBits(uint64(sOut), 32, permutation[:]))
}

// encryptBlock runs forward DES on a single 8-byte block with the given
// 8-byte key, both taken as big-endian 64-bit values.
func encryptBlock(key, block uint64) uint64 {
	keys := subKeys(key)
	permuted := permuteBits(block, 64, initialPermutation[:])
	l := uint32(permuted >> 32)
	r := uint32(permuted)

	for round := 0; round < 16; round++ {
		newR := l ^ feistel(r, keys[round])
		l = r
		r = newR
	}

	combined := (uint64(r) << 32) | uint64(l)
	return permuteBits(combined, 64, finalPermutation[:])
}

func bytesToUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = (v << 8) | uint64(c)
	}
	return v
}

func uint64ToBytes(v uint64) [8]byte {
	var out [8]byte
	for i := 7; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// vncReverseBits mirrors the VNC auth quirk: each key byte has its bits
// reversed before use as a DES key (a historical artifact of the original
// RFB reference implementation's key schedule).
func vncReverseBits(b byte) byte {
	var out byte
	for i := 0; i < 8; i++ {
		out = (out << 1) | (b & 1)
		b >>= 1
	}
	return out
}

// Encrypt applies the VNC challenge-response transform: the 8-byte key has
// its bits reversed per-byte, then each 8-byte half of block is encrypted
// independently (ECB, ignoring cipher chaining) with that key.
func Encrypt(key [8]byte, block [16]byte) [16]byte {
	var vncKey [8]byte
	for i, b := range key {
		vncKey[i] = vncReverseBits(b)
	}
	keyValue := bytesToUint64(vncKey[:])

	var out [16]byte
	for half := 0; half < 2; half++ {
		chunk := block[half*8 : half*8+8]
		cipher := encryptBlock(keyValue, bytesToUint64(chunk))
		cipherBytes := uint64ToBytes(cipher)
		copy(out[half*8:half*8+8], cipherBytes[:])
	}
	return out
}
