package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PermissionSet is the stored shape of a role override: {"allowed": [...]}.
// A bare JSON array is accepted on read and normalized to this shape.
type PermissionSet struct {
	Allowed []string `json:"allowed"`
}

func (p *PermissionSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		p.Allowed = nil
		return nil
	}

	if data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("permission list: %w", err)
		}
		p.Allowed = list
		return nil
	}

	var obj struct {
		Allowed []string `json:"allowed"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("permission object: %w", err)
	}
	p.Allowed = obj.Allowed
	return nil
}

// Has reports whether the set grants perm, either directly, through "*",
// or through an area wildcard such as "billing.*".
func (p PermissionSet) Has(perm string) bool {
	for _, a := range p.Allowed {
		if a == "*" || a == perm {
			return true
		}
		if n := len(a); n > 2 && a[n-2:] == ".*" && len(perm) > n-1 && perm[:n-1] == a[:n-1] {
			return true
		}
	}
	return false
}
