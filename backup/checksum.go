package backup

import (
	"crypto/sha256"
	"crypto/subtle"
	"hash"
	"time"
)

type checksumHasher struct {
	h hash.Hash
}

func newChecksumHasher() *checksumHasher {
	return &checksumHasher{h: sha256.New()}
}

func (c *checksumHasher) Write(p []byte) {
	c.h.Write(p)
}

func (c *checksumHasher) Equal(want []byte) bool {
	return subtle.ConstantTimeCompare(c.h.Sum(nil), want) == 1
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
