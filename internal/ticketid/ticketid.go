// Package ticketid generates the client-side identifiers that key the local
// sale queue and double as idempotency keys for the central server.
package ticketid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
)

const suffixLen = 6

// New returns a ticket ID of the form "pos-<ms epoch>-<base36 suffix>".
// The millisecond timestamp keeps IDs roughly chronologically sortable as
// strings; the random suffix separates tickets generated within the same
// millisecond on the same terminal.
func New() string {
	return At(time.Now())
}

// At builds a ticket ID for the given creation time.
func At(t time.Time) string {
	return fmt.Sprintf("pos-%d-%s", t.UnixMilli(), randSuffix())
}

// Suffix returns the short random tail of a ticket ID, used on provisional
// receipts where the full ID would be noise. Returns the input unchanged if
// it does not look like a ticket ID.
func Suffix(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '-' {
			return id[i+1:]
		}
	}
	return id
}

func randSuffix() string {
	var b [8]byte
	rand.Read(b[:])
	s := strconv.FormatUint(binary.BigEndian.Uint64(b[:]), 36)
	if len(s) < suffixLen {
		return s
	}
	return s[:suffixLen]
}
