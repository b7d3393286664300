package common

import "hash/fnv"

// StringToID hashes a name into the 64-bit key used by the binding tables.
// The hash is FNV-1a, so the same name always yields the same key across runs.
//
// Parameters:
//   - name: the shader-declared name to hash
//
// Returns:
//   - uint64: the key for name
func StringToID(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}
