package store

import (
	"crypto/sha256"
	"fmt"

	"sentryd/internal/security"
)

// VerifyChain walks the whole journal and recomputes every record's
// HMAC. It returns ErrTampered, annotated with the first bad record,
// on any mismatch or break in the chain linkage.
func (j *Journal) VerifyChain() error {
	rows, err := j.db.Query(`SELECT id, at_ns, payload, prev_hmac, hmac FROM verdicts ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("query chain: %w", err)
	}
	defer rows.Close()

	prev := make([]byte, sha256.Size)
	for rows.Next() {
		var (
			id                 int64
			atNS               int64
			payload            []byte
			storedPrev, stored []byte
		)
		if err := rows.Scan(&id, &atNS, &payload, &storedPrev, &stored); err != nil {
			return fmt.Errorf("scan chain record: %w", err)
		}

		if !security.SecureCompare(storedPrev, prev) {
			return fmt.Errorf("%w: record %d chain linkage broken", ErrTampered, id)
		}
		if !security.SecureCompare(stored, j.recordMAC(prev, atNS, payload)) {
			return fmt.Errorf("%w: record %d HMAC mismatch", ErrTampered, id)
		}
		prev = stored
	}
	if err := rows.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	if !security.SecureCompare(j.lastHMAC, prev) {
		j.mu.Unlock()
		return fmt.Errorf("%w: chain head does not match newest record", ErrTampered)
	}
	j.mu.Unlock()
	return nil
}
