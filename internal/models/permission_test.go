package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionSet_UnmarshalShapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"array", `["a.view","b.manage"]`, []string{"a.view", "b.manage"}},
		{"object", `{"allowed":["a.view"]}`, []string{"a.view"}},
		{"null", `null`, nil},
		{"empty object", `{}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PermissionSet
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			assert.Equal(t, tt.want, p.Allowed)
		})
	}

	var p PermissionSet
	assert.Error(t, json.Unmarshal([]byte(`"finance.view"`), &p))
}

func TestPermissionSet_Has(t *testing.T) {
	p := PermissionSet{Allowed: []string{"billing.*", "cases.view"}}

	assert.True(t, p.Has("billing.view"))
	assert.True(t, p.Has("billing.manage"))
	assert.True(t, p.Has("cases.view"))
	assert.False(t, p.Has("cases.manage"))
	assert.False(t, p.Has("billingx.view"))
	assert.True(t, PermissionSet{Allowed: []string{"*"}}.Has("x"))
}
