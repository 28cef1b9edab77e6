// FILE: confspec/casing_test.go

package confspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeCase(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		separator string
		expected  string
	}{
		{"CamelCase", "camelCase", "_", "camel_case"},
		{"PascalCase", "PascalCase", "_", "pascal_case"},
		{"Acronym", "HTTPResponseCode", "-", "http-response-code"},
		{"AcronymSnake", "HTTPResponseCode", "_", "http_response_code"},
		{"AlreadySnake", "snake_case", "-", "snake-case"},
		{"Spaces", "some name", "_", "some_name"},
		{"DigitBoundary", "base64Value", "_", "base64_value"},
		{"SingleWord", "debug", "-", "debug"},
		{"Upper", "MYAPP_db_port", "_", "myapp_db_port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, changeCase(tt.input, tt.separator))
		})
	}
}
