/**
 * @description
 * Reference number generation for transfers. A reference is the client-visible
 * idempotency key and the traceability handle support agents use, so it carries a
 * human-recognizable prefix and date alongside random entropy. Uniqueness is
 * ultimately enforced by the ledger's unique index; a collision there is treated as
 * corruption and retried with a fresh number, never overwritten.
 */

package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const referencePrefix = "TRF"

// NewReferenceNumber returns a reference like "TRF-20260829-4F2A91C3B07D".
func NewReferenceNumber() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is effectively unrecoverable; fall back to a
		// time-derived suffix rather than panicking in the money path.
		return fmt.Sprintf("%s-%s-%012X", referencePrefix, time.Now().UTC().Format("20060102"), time.Now().UnixNano()&0xFFFFFFFFFFFF)
	}
	return fmt.Sprintf("%s-%s-%s",
		referencePrefix,
		time.Now().UTC().Format("20060102"),
		strings.ToUpper(hex.EncodeToString(buf)),
	)
}
