package helpers

import "encoding/hex"

// BytesToHex hex-encodes b without a "0x" prefix, matching the encoding
// binascii.hexlify produces for wallet signatures and key fingerprints.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// HexToBytes decodes a hex string produced by BytesToHex.
func HexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
