package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptLine(t *testing.T) {
	assert.Equal(t, "overwrite? [N/y]:", promptLine("overwrite?", noYesConstraints))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", No},
		{"y", Yes},
		{" Y ", Yes},
		{"n", No},
		{"maybe", No},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.in, noYesConstraints))
		})
	}
}
