package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]string{
		"zone_name": "app.prd.example.com",
		"account":   "123456789012",
	}

	tests := []struct {
		name    string
		data    interface{}
		want    interface{}
		wantErr string
	}{
		{
			name: "plain string untouched",
			data: "no placeholders here",
			want: "no placeholders here",
		},
		{
			name: "single placeholder",
			data: "api.${zone_name}",
			want: "api.app.prd.example.com",
		},
		{
			name: "multiple placeholders in one string",
			data: "${account}:${zone_name}",
			want: "123456789012:app.prd.example.com",
		},
		{
			name: "nested maps and lists",
			data: map[string]interface{}{
				"domain": map[string]interface{}{
					"zone_name": "${zone_name}",
				},
				"names": []interface{}{"${zone_name}", "static"},
			},
			want: map[string]interface{}{
				"domain": map[string]interface{}{
					"zone_name": "app.prd.example.com",
				},
				"names": []interface{}{"app.prd.example.com", "static"},
			},
		},
		{
			name: "non-string scalars pass through",
			data: map[string]interface{}{"count": 3, "enabled": true},
			want: map[string]interface{}{"count": 3, "enabled": true},
		},
		{
			name:    "undefined variable fails and names it",
			data:    "api.${missing_var}",
			wantErr: "missing_var",
		},
		{
			name:    "undefined variable deep in the document",
			data:    map[string]interface{}{"a": []interface{}{"${nope}"}},
			wantErr: "nope",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			got, err := Substitute(tt.data, vars)
			if tt.wantErr != "" {
				if assert.Error(err) {
					assert.Contains(err.Error(), tt.wantErr)
					// the error lists every defined variable
					assert.Contains(err.Error(), "account")
					assert.Contains(err.Error(), "zone_name")
				}
				return
			}
			if assert.NoError(err) {
				assert.Equal(tt.want, got)
			}
		})
	}
}

func TestResolveVariables(t *testing.T) {
	t.Run("variables referencing variables", func(t *testing.T) {
		assert := assert.New(t)
		resolved, err := ResolveVariables(map[string]string{
			"zone_name":    "example.com",
			"front_domain": "front.${zone_name}",
			"deep":         "cdn.${front_domain}",
		})
		require.NoError(t, err)
		assert.Equal("example.com", resolved["zone_name"])
		assert.Equal("front.example.com", resolved["front_domain"])
		assert.Equal("cdn.front.example.com", resolved["deep"])
	})

	t.Run("no references is a no-op", func(t *testing.T) {
		assert := assert.New(t)
		resolved, err := ResolveVariables(map[string]string{"a": "1", "b": "2"})
		require.NoError(t, err)
		assert.Equal(map[string]string{"a": "1", "b": "2"}, resolved)
	})

	t.Run("undefined reference inside variables fails", func(t *testing.T) {
		assert := assert.New(t)
		_, err := ResolveVariables(map[string]string{"a": "${ghost}"})
		assert.Error(err)
		assert.Contains(err.Error(), "ghost")
	})

	t.Run("cyclic definitions stop after the pass cap", func(t *testing.T) {
		assert := assert.New(t)
		resolved, err := ResolveVariables(map[string]string{
			"a": "${b}",
			"b": "${a}",
		})
		// Soft failure: values are kept best-effort, a warning is logged.
		require.NoError(t, err)
		assert.Len(resolved, 2)
	})
}
