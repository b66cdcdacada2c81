package mirror

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLocalPath(t *testing.T) {
	tests := []struct {
		name          string
		remotePath    string
		expected      string
		errorExpected bool
	}{
		{
			name:       "root maps to the mirror root",
			remotePath: "/",
			expected:   "/mirror",
		},
		{
			name:       "top level node",
			remotePath: "/a",
			expected:   filepath.Join("/mirror", "a"),
		},
		{
			name:       "nested node",
			remotePath: "/a/b/c",
			expected:   filepath.Join("/mirror", "a", "b", "c"),
		},
		{
			name:          "relative path",
			remotePath:    "a/b",
			errorExpected: true,
		},
		{
			name:          "empty path",
			remotePath:    "",
			errorExpected: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			local, err := ToLocalPath(test.remotePath, "/mirror")
			if test.errorExpected {
				require.Error(t, err)
				assert.IsType(t, &InvalidPathError{}, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, local)
		})
	}
}

func TestAuxiliaryPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/mirror", "a", AuxiliaryName), AuxiliaryPath(filepath.Join("/mirror", "a")))
}
