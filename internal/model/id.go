package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// Unit IDs look like job_1771722000_a3f2b7c1: a kind prefix, the enqueue time
// in unix seconds, and four random bytes. IDs of one kind sort by enqueue second.
var unitIDPattern = regexp.MustCompile(`^(?:job|grp)_\d{10}_[0-9a-f]{8}$`)

func idPrefix(kind Kind) (string, error) {
	switch kind {
	case KindJob:
		return "job", nil
	case KindGroup:
		return "grp", nil
	}
	return "", fmt.Errorf("no id prefix for unit kind %q", kind)
}

// NewUnitID mints an ID for a unit of the given kind enqueued at now.
func NewUnitID(kind Kind, now time.Time) (string, error) {
	prefix, err := idPrefix(kind)
	if err != nil {
		return "", err
	}
	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", fmt.Errorf("read id entropy: %w", err)
	}
	return prefix + "_" + fmt.Sprintf("%010d", now.Unix()) + "_" + hex.EncodeToString(suffix[:]), nil
}

func ValidateID(id string) bool {
	return unitIDPattern.MatchString(id)
}
