package entity

import "time"

// AuditEntry is one security-relevant event. Details never carry plaintext
// passwords, verification codes or full tokens.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	UserID    string         `json:"user_id,omitempty"`
	IP        string         `json:"ip"`
	UserAgent string         `json:"user_agent"`
	Details   map[string]any `json:"details,omitempty"`
}
