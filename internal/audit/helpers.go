package audit

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/rosilesmarcos01/bbms-sub000/internal/buildinfo"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

// CreateUserAgent builds the User-Agent sent to the identity provider, so provider side
// logs can be joined with ours.
func CreateUserAgent(correlationID, subjectRef, provider string) string {
	return fmt.Sprintf("BBMS-Auth/%s (correlation_id=%s; subject=%s; provider=%s)",
		buildinfo.Version, correlationID, subjectRef, provider)
}

// Fingerprint identifies an issued token in the audit log without storing the token.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// New builds the configured auditor. A disabled audit log yields a NoopAuditor.
func New(enabled bool, kind, path string) (core.Auditor, error) {
	if !enabled {
		return NewNoopAuditor(), nil
	}
	switch kind {
	case "memory":
		return NewInMemoryAuditor(), nil
	case "", "file":
		return NewFileAuditor(path)
	default:
		return nil, fmt.Errorf("unknown audit type '%s'", kind)
	}
}

func lastN(entries []core.AuditEntry, limit int) []core.AuditEntry {
	if limit <= 0 || len(entries) <= limit {
		return entries
	}
	return entries[len(entries)-limit:]
}
