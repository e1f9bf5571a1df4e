// Package persist holds the snapshot backends behind market.Snapshotter.
// Every backend stores the whole state as one JSON document under one key.
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-farmlink/internal/market"
)

const DefaultKey = "farmlink-state"

// ErrCorrupt marks stored data that cannot be read back as a State. The
// store treats it the same as an empty backend.
var ErrCorrupt = errors.New("snapshot corrupt")

func Encode(st market.State) ([]byte, error) {
	b, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// Decode parses a stored snapshot strictly: unknown fields, trailing data,
// a missing users collection or unknown enum values are all ErrCorrupt.
func Decode(b []byte) (*market.State, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var st market.State
	if err := dec.Decode(&st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrCorrupt)
	}
	if err := validate(st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &st, nil
}

func validate(st market.State) error {
	if st.Users == nil {
		return errors.New("missing users")
	}
	for _, u := range st.Users {
		if u.ID == "" || !u.Role.Valid() {
			return fmt.Errorf("user %q has role %q", u.ID, u.Role)
		}
		if u.Status != market.UserActive && u.Status != market.UserSuspended {
			return fmt.Errorf("user %q has status %q", u.ID, u.Status)
		}
	}
	for _, p := range st.Products {
		if p.ID == "" || !p.Status.Valid() {
			return fmt.Errorf("product %q has status %q", p.ID, p.Status)
		}
	}
	for _, o := range st.Orders {
		if o.ID == "" || !o.Status.Valid() {
			return fmt.Errorf("order %q has status %q", o.ID, o.Status)
		}
	}
	return nil
}
