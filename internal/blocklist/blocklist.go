// Package blocklist holds the set of device identifiers whose requests are
// administratively rejected. The list is replaced wholesale; there is no
// per-entry add or remove.
package blocklist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidList is returned when a candidate list is not an array of strings.
var ErrInvalidList = errors.New("invalid list format")

// Store is the block-list storage contract.
// Implementations must make Replace atomic with respect to IsBlocked: a check
// observes either the old list or the new list, never a mix.
type Store interface {
	// IsBlocked reports whether id is on the current list.
	IsBlocked(ctx context.Context, id string) (bool, error)

	// Replace swaps the current list for ids. Order and duplicates are kept.
	Replace(ctx context.Context, ids []string) error

	// List returns the current list in the order it was last set.
	List(ctx context.Context) ([]string, error)
}

// Pinger is implemented by stores backed by a remote system.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks store reachability. Stores without a remote dependency are always reachable.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// DecodeList validates raw JSON as an array of strings.
// A missing value, null, or any non-array shape is rejected.
func DecodeList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidList
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, ErrInvalidList
	}

	ids := make([]string, 0, len(items))
	for i, item := range items {
		var id *string
		if err := json.Unmarshal(item, &id); err != nil || id == nil {
			return nil, fmt.Errorf("%w: element %d is not a string", ErrInvalidList, i)
		}
		ids = append(ids, *id)
	}
	return ids, nil
}

// Update is the message shape used to push a new list, both over HTTP and Pub/Sub.
type Update struct {
	List json.RawMessage `json:"list"`
}

// DecodeUpdate parses an Update document and validates its list.
func DecodeUpdate(data []byte) ([]string, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidList, err)
	}
	return DecodeList(u.List)
}

// EncodeUpdate renders ids as an Update document. A nil slice encodes as an empty list.
func EncodeUpdate(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	list, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Update{List: list})
}
