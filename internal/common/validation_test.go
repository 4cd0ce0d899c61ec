package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_Rules(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		rules   []ValidationRule
		wantMsg string
	}{
		{name: "required string", value: "  ", rules: []ValidationRule{Required}, wantMsg: "is required"},
		{name: "required nil pointer", value: (*string)(nil), rules: []ValidationRule{Required}, wantMsg: "is required"},
		{name: "required zero amount", value: 0.0, rules: []ValidationRule{Required}, wantMsg: "is required"},
		{name: "too long", value: strings.Repeat("é", 4), rules: []ValidationRule{MaxLength(3)}, wantMsg: "at most 3 characters"},
		{name: "bad email", value: "buyer-at-example", rules: []ValidationRule{Email}, wantMsg: "valid email"},
		{name: "not positive", value: -1.0, rules: []ValidationRule{Positive}, wantMsg: "greater than zero"},
		{name: "not a number", value: "10", rules: []ValidationRule{Positive}, wantMsg: "must be a number"},
		{name: "all pass", value: "buyer@example.com", rules: []ValidationRule{Required, MaxLength(64), Email}},
		{name: "empty email left to required", value: "", rules: []ValidationRule{Email}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator().Field("field", tt.value, tt.rules...)
			if tt.wantMsg == "" {
				assert.False(t, v.HasErrors())
				assert.Empty(t, v.ErrorMessage())
				return
			}
			assert.True(t, v.HasErrors())
			assert.Contains(t, v.ErrorMessage(), tt.wantMsg)
		})
	}
}

func TestValidator_JoinsFieldFailures(t *testing.T) {
	v := NewValidator().
		Field("external_id", "", Required).
		Field("amount", 0.0, Required, Positive)

	msg := v.ErrorMessage()
	assert.Equal(t, 2, strings.Count(msg, "; "))
	assert.Contains(t, msg, "'external_id'")
	assert.Contains(t, msg, "'amount'")
}
