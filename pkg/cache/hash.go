package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey returns "<kind>:<sha256 of the JSON-encoded parts>". The kind
// segment decides where [FileCache] files the entry.
func hashKey(kind string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", kind, hex.EncodeToString(hash[:]))
}

// Hash returns the SHA-256 of data as 64 hex characters. Documents and
// hierarchies are hashed in their canonical JSON form.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
