package audit

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"time"

	"golang.org/x/crypto/blake2b"
)

// File types recorded in entries.
const (
	FileTypeVideo = "video"
	FileTypeText  = "text"

	// TextQueryFileName is recorded when the analysis had no uploaded file.
	TextQueryFileName = "text_query"
)

// Entry summarizes one analysis.
type Entry struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	FileName     string    `json:"file_name"`
	FileType     string    `json:"file_type"`
	MIMEType     string    `json:"mime_type,omitempty"`
	Score        int       `json:"score"`
	RiskLevel    string    `json:"risk_level"`
	Summary      string    `json:"summary"`
	MetadataJSON string    `json:"metadata,omitempty"`
	Digest       string    `json:"digest,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sink persists entries.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards entries.
type Nop struct{}

// Record implements Sink.
func (Nop) Record(context.Context, Entry) error { return nil }

// Multi records to every sink and joins their errors.
type Multi []Sink

// Record implements Sink.
func (m Multi) Record(ctx context.Context, entry Entry) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DigestFile returns the hex BLAKE2b-256 digest of the file at path.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for digest: %w", err)
	}
	defer f.Close()
	return DigestReader(f)
}

// DigestReader returns the hex BLAKE2b-256 digest of r's contents.
func DigestReader(r io.Reader) (string, error) {
	h := NewDigest()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("read for digest: %w", err)
	}
	return FormatDigest(h), nil
}

// NewDigest returns the hash used for entry digests.
func NewDigest() hash.Hash {
	// New256 only fails for oversized keys.
	h, _ := blake2b.New256(nil)
	return h
}

// FormatDigest renders the current sum of h.
func FormatDigest(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
