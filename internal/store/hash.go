package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeSignatureHash computes a deterministic hash from a symbol's semantic
// identity: name, kind, owner and parameters in order. Location changes do
// NOT affect the hash.
func ComputeSignatureHash(name, kind, owner string, params []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "name:%s\n", name)
	fmt.Fprintf(h, "kind:%s\n", kind)
	fmt.Fprintf(h, "owner:%s\n", owner)
	for i, p := range params {
		fmt.Fprintf(h, "param:%d:%s\n", i, p)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ContentHash hashes parts in order. Each part is length-prefixed so that
// moving bytes between parts changes the hash.
func ContentHash(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:", len(p))
		h.Write(p)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
