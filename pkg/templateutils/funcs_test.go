package templateutils

import (
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncs(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		data any
		want string
	}{
		{
			name: "joinString",
			tmpl: `{{ joinString . "," }}`,
			data: []string{"a", "b", "c"},
			want: "a,b,c",
		},
		{
			name: "json",
			tmpl: `{{ json . }}`,
			data: map[string]int{"a": 1},
			want: `{"a":1}`,
		},
		{
			name: "jsonPretty",
			tmpl: `{{ jsonPretty . }}`,
			data: map[string]int{"a": 1},
			want: "{\n  \"a\": 1\n}",
		},
		{
			name: "replaceAll",
			tmpl: `{{ replaceAll . "o" "0" }}`,
			data: "hello world",
			want: "hell0 w0rld",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			tmpl, err := template.New("t").Funcs(Funcs).Parse(tt.tmpl)
			require.NoError(t, err)
			sb := new(strings.Builder)
			require.NoError(t, tmpl.Execute(sb, tt.data))
			assert.Equal(tt.want, sb.String())
		})
	}
}
