package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// NewReferenceNumber generates an opaque external identifier such as
// TXN-TRF-1712345678901-048213. Uniqueness is enforced by the storage
// layer; the random suffix keeps same-millisecond collisions unlikely.
func NewReferenceNumber(prefix string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		// crypto/rand failing means the platform RNG is broken; fall back
		// to the timestamp alone rather than abort a money movement.
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, time.Now().UnixMilli(), n.Int64())
}
