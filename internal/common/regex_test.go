package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstCapture(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    string
		wantOK  bool
	}{
		{name: "capture group", pattern: `at\s+([A-Z ]+?)\s+on`, text: "spent at AMAZON INDIA on 15-01", want: "AMAZON INDIA", wantOK: true},
		{name: "no group uses whole match", pattern: `debited`, text: "Rs 10 DEBITED", want: "DEBITED", wantOK: true},
		{name: "skips empty optional group", pattern: `(?:Rs\.?|INR)\s*(\d+)?`, text: "INR", want: "INR", wantOK: true},
		{name: "no match", pattern: `credited`, text: "debited", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := CompileInsensitive(tt.pattern)
			require.NoError(t, err)
			got, ok := FirstCapture(re, tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := FirstCapture(nil, "anything")
	assert.False(t, ok)
}

func TestCompileInsensitive_KeepsExplicitFlags(t *testing.T) {
	re, err := CompileInsensitive(`(?s)^VK`)
	require.NoError(t, err)
	assert.False(t, re.MatchString("vk-hdfcbk"))

	re, err = CompileInsensitive(`(?:Rs|INR)\s*\d+`)
	require.NoError(t, err)
	assert.True(t, re.MatchString("inr 500"), "non-capturing group is not a flag group")

	_, err = CompileInsensitive(`[unclosed`)
	assert.Error(t, err)
}
