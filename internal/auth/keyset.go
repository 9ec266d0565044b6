package auth

import (
	"crypto/subtle"
	"strings"
)

// KeySet is the immutable set of API keys accepted by the gate.
// Keys are opaque bearer secrets; they are compared verbatim.
type KeySet struct {
	keys [][]byte
}

// NewKeySet builds a KeySet from the given keys.
// Keys are trimmed and empty entries are dropped. Duplicates are collapsed.
func NewKeySet(keys ...string) *KeySet {
	seen := make(map[string]struct{}, len(keys))
	set := &KeySet{keys: make([][]byte, 0, len(keys))}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		set.keys = append(set.keys, []byte(k))
	}
	return set
}

// ParseKeySet builds a KeySet from a comma-separated list, e.g. the API_KEYS variable.
func ParseKeySet(raw string) *KeySet {
	return NewKeySet(strings.Split(raw, ",")...)
}

// Contains reports whether key is a member of the set.
// Every configured key is compared in constant time so the response time does not
// reveal how many keys exist or which one came close.
func (s *KeySet) Contains(key string) bool {
	if s == nil || key == "" {
		return false
	}
	presented := []byte(key)
	found := 0
	for _, k := range s.keys {
		found |= subtle.ConstantTimeCompare(presented, k)
	}
	return found == 1
}

// Len returns the number of distinct keys.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}
