package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseExposedPort(t *testing.T) {
	tests := []struct {
		input    string
		expected ExposedPort
		ok       bool
	}{
		{"8080", ExposedPort{Port: 8080, Protocol: "tcp"}, true},
		{"8080/tcp", ExposedPort{Port: 8080, Protocol: "tcp"}, true},
		{"53/UDP", ExposedPort{Port: 53, Protocol: "udp"}, true},
		{"$PORT", ExposedPort{}, false},
		{"70000", ExposedPort{}, false},
		{"", ExposedPort{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseExposedPort(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExposedPortString(t *testing.T) {
	assert.Equal(t, "8080", ExposedPort{Port: 8080, Protocol: "tcp"}.String())
	assert.Equal(t, "8080", ExposedPort{Port: 8080}.String())
	assert.Equal(t, "53/udp", ExposedPort{Port: 53, Protocol: "udp"}.String())
}

func TestDescriptorCopies(t *testing.T) {
	d := ServiceDescriptor{Name: "api", Language: LanguagePython, Port: 8000}
	renamed := d.WithName("billing").WithPort(9000)

	assert.Equal(t, "api", d.Name)
	assert.Equal(t, 8000, d.Port)
	assert.Equal(t, "billing", renamed.Name)
	assert.Equal(t, 9000, renamed.Port)
	assert.True(t, d.Known())
	assert.False(t, ServiceDescriptor{Language: LanguageUnknown}.Known())
}

func TestDefaultPort(t *testing.T) {
	assert.Equal(t, 8000, LanguagePython.DefaultPort())
	assert.Equal(t, 3000, LanguageNode.DefaultPort())
}
