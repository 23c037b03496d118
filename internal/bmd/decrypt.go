package bmd

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Keys holds the cipher keys for encrypted BMD versions.
type Keys struct {
	XOR [16]byte
	// LEA is the LEA-256 key for version 15 files. A zero key is
	// rejected when such a file is read.
	LEA [32]byte
}

// DefaultXORKey is the key MU Online clients use for version 12 files.
var DefaultXORKey = [16]byte{
	0xD1, 0x73, 0x52, 0xF6, 0xD2, 0x9A, 0xCB, 0x27,
	0x3E, 0xAF, 0x59, 0x31, 0x37, 0xB3, 0xE7, 0xA2,
}

// DefaultKeys returns the default XOR key and no LEA key.
func DefaultKeys() Keys {
	return Keys{XOR: DefaultXORKey}
}

// HasLEA reports whether a LEA key is configured.
func (k Keys) HasLEA() bool {
	return k.LEA != [32]byte{}
}

// leaDelta are the key schedule constants of LEA.
var leaDelta = [8]uint32{
	0xc3efe9db, 0x44626b02, 0x79e27c8a, 0x78df30ec,
	0x715ea49e, 0xc785da0a, 0xe04ef22a, 0xe5c40957,
}

// DecryptXOR decrypts BMD v12 data using chained XOR with the 16-byte key.
// Initial chain value is 0x5E. For each byte:
//
//	out[i] = ((data[i] ^ key[i&15]) - chainKey) & 0xFF
//	chainKey = (data[i] + 0x3D) & 0xFF
func DecryptXOR(data []byte, key [16]byte) []byte {
	out := make([]byte, len(data))
	chainKey := byte(0x5E)

	for i, b := range data {
		out[i] = (b ^ key[i&15]) - chainKey
		chainKey = b + 0x3D
	}
	return out
}

// leaKeySchedule expands a 32-byte key into 192 uint32 round keys for LEA-256.
func leaKeySchedule(key [32]byte) [192]uint32 {
	var T [8]uint32
	for i := 0; i < 8; i++ {
		T[i] = binary.LittleEndian.Uint32(key[i*4:])
	}

	var rk [192]uint32
	shifts := [6]uint{1, 3, 6, 11, 13, 17}

	for i := uint32(0); i < 32; i++ {
		d := leaDelta[i&7]
		s := (i * 6) & 7

		for j := uint32(0); j < 6; j++ {
			idx := (s + j) & 7
			T[idx] = bits.RotateLeft32(T[idx]+bits.RotateLeft32(d, int(i+j)), int(shifts[j]))
		}
		for j := uint32(0); j < 6; j++ {
			rk[i*6+j] = T[(s+j)&7]
		}
	}
	return rk
}

// DecryptLEA decrypts data in 16-byte blocks using LEA-256 ECB mode.
func DecryptLEA(data []byte, key [32]byte) ([]byte, error) {
	if len(data)%16 != 0 {
		return nil, fmt.Errorf("bmd: LEA data length %d is not a multiple of 16", len(data))
	}
	rk := leaKeySchedule(key)
	out := make([]byte, len(data))

	for off := 0; off < len(data); off += 16 {
		block := data[off : off+16]
		s0 := binary.LittleEndian.Uint32(block[0:])
		s1 := binary.LittleEndian.Uint32(block[4:])
		s2 := binary.LittleEndian.Uint32(block[8:])
		s3 := binary.LittleEndian.Uint32(block[12:])

		for r := 31; r >= 0; r-- {
			k := rk[r*6 : r*6+6]

			t0 := s3
			t1 := bits.RotateLeft32(s0, -9) - (t0 ^ k[0]) ^ k[1]
			t2 := bits.RotateLeft32(s1, 5) - (t1 ^ k[2]) ^ k[3]
			t3 := bits.RotateLeft32(s2, 3) - (t2 ^ k[4]) ^ k[5]

			s0, s1, s2, s3 = t0, t1, t2, t3
		}

		binary.LittleEndian.PutUint32(out[off+0:], s0)
		binary.LittleEndian.PutUint32(out[off+4:], s1)
		binary.LittleEndian.PutUint32(out[off+8:], s2)
		binary.LittleEndian.PutUint32(out[off+12:], s3)
	}
	return out, nil
}
