// Package store persists threat verdicts in an append-only SQLite
// journal with tamper evidence.
//
// Security model:
//  1. File permissions: 0600, owner read/write only
//  2. Integrity: every record carries an HMAC over its content and the
//     previous record's HMAC, forming a chain
//  3. Append-only: records are never updated or deleted
package store

import (
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sentryd/internal/classifier"
)

// ErrTampered is returned when the journal's HMAC chain does not
// verify.
var ErrTampered = errors.New("store: journal integrity check failed")

const schema = `
CREATE TABLE IF NOT EXISTS verdicts (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    at_ns        INTEGER NOT NULL,
    pattern      TEXT NOT NULL,
    severity     TEXT NOT NULL,
    typing_speed REAL NOT NULL,
    mouse_speed  REAL NOT NULL,
    payload      BLOB NOT NULL,
    prev_hmac    BLOB NOT NULL,
    hmac         BLOB NOT NULL UNIQUE
);

CREATE INDEX IF NOT EXISTS idx_verdicts_at ON verdicts(at_ns);
CREATE INDEX IF NOT EXISTS idx_verdicts_severity ON verdicts(severity, at_ns);
`

// Journal is an append-only verdict log backed by SQLite. Safe for
// concurrent use.
type Journal struct {
	db      *sql.DB
	hmacKey []byte

	mu       sync.Mutex
	lastHMAC []byte
}

// Record is one persisted verdict with its journal position.
type Record struct {
	ID      int64                    `json:"id"`
	At      time.Time                `json:"at"`
	Verdict classifier.ThreatVerdict `json:"verdict"`
}

// Open opens or creates a verdict journal at path. The hmacKey should
// be derived from the daemon's master key and be at least 32 bytes.
func Open(path string, hmacKey []byte) (*Journal, error) {
	if len(hmacKey) < 32 {
		return nil, errors.New("store: HMAC key must be at least 32 bytes")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal permissions: %w", err)
	}

	j := &Journal{db: db, hmacKey: hmacKey}
	if err := j.loadChainHead(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// loadChainHead restores the in-memory chain position from the newest
// record. An empty journal starts the chain from 32 zero bytes.
func (j *Journal) loadChainHead() error {
	row := j.db.QueryRow(`SELECT hmac FROM verdicts ORDER BY id DESC LIMIT 1`)
	var mac []byte
	switch err := row.Scan(&mac); {
	case errors.Is(err, sql.ErrNoRows):
		j.lastHMAC = make([]byte, sha256.Size)
		return nil
	case err != nil:
		return fmt.Errorf("load chain head: %w", err)
	default:
		j.lastHMAC = mac
		return nil
	}
}

// recordMAC computes the chain HMAC for one record.
func (j *Journal) recordMAC(prev []byte, atNS int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, j.hmacKey)
	mac.Write(prev)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(atNS))
	mac.Write(ts[:])
	mac.Write(payload)
	return mac.Sum(nil)
}

// AppendVerdict persists one verdict, extending the HMAC chain.
func (j *Journal) AppendVerdict(v classifier.ThreatVerdict) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	atNS := v.At.UnixNano()
	mac := j.recordMAC(j.lastHMAC, atNS, payload)

	_, err = j.db.Exec(`
		INSERT INTO verdicts (at_ns, pattern, severity, typing_speed, mouse_speed, payload, prev_hmac, hmac)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		atNS, v.Pattern, string(v.Severity),
		v.Sample.TypingSpeed, v.Sample.MouseSpeed,
		payload, j.lastHMAC, mac,
	)
	if err != nil {
		return fmt.Errorf("append verdict: %w", err)
	}

	j.lastHMAC = mac
	return nil
}

// Recent returns up to limit records, oldest first. limit <= 0 returns
// everything.
func (j *Journal) Recent(limit int) ([]Record, error) {
	query := `SELECT id, at_ns, payload FROM verdicts ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			atNS    int64
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &atNS, &payload); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.Verdict); err != nil {
			return nil, fmt.Errorf("decode verdict %d: %w", rec.ID, err)
		}
		rec.At = time.Unix(0, atNS)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into oldest-first order.
	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}

// Count returns the total number of journaled verdicts.
func (j *Journal) Count() (int64, error) {
	var n int64
	err := j.db.QueryRow(`SELECT COUNT(*) FROM verdicts`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
