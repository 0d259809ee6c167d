// Package id generates short identifiers for requests, runs and tasks.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

func random(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// Fallback keeps ids unique enough for log correlation.
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// NewRequestID returns an identifier for one model request.
func NewRequestID() string { return "req_" + random(6) }

// NewRunID returns an identifier for one engine run.
func NewRunID() string { return "run_" + random(8) }

// NewTaskID returns an identifier for one decomposed sub-task.
func NewTaskID() string { return "task_" + random(4) }
