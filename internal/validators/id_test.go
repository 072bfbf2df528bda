package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		wantErr string
	}{
		{name: "platform name", id: "test-567"},
		{name: "uuid", id: "f47ac10b-58cc-4372-a567-0e02b2c3d479"},
		{name: "dots and underscores", id: "db_prod.1"},
		{name: "single character", id: "a"},
		{name: "empty", id: "", wantErr: "cannot be empty"},
		{name: "whitespace", id: " test ", wantErr: "whitespace"},
		{name: "path separator", id: "a/b", wantErr: "is invalid"},
		{name: "parent directory", id: "..", wantErr: "is invalid"},
		{name: "current directory", id: ".", wantErr: "is invalid"},
		{name: "leading dot", id: ".hidden", wantErr: "is invalid"},
		{name: "trailing hyphen", id: "test-", wantErr: "is invalid"},
		{name: "backslash", id: `a\b`, wantErr: "is invalid"},
		{name: "too long", id: strings.Repeat("a", maxIDLength+1), wantErr: "maximum length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateID("instance", tt.id)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.True(t, IsValidID(tt.id))
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "instance ID")
			assert.False(t, IsValidID(tt.id))
		})
	}
}
