package version

import (
	"testing"

	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		appVersion    string
		configVersion string
		expectError   bool
		errorContains string
	}{
		{
			name:          "exact match",
			appVersion:    "1.2.0",
			configVersion: "1.2.0",
		},
		{
			name:          "config patch higher",
			appVersion:    "1.2.0",
			configVersion: "1.2.5",
		},
		{
			name:          "older config minor",
			appVersion:    "1.3.0",
			configVersion: "1.2.4",
		},
		{
			name:          "v prefix on both",
			appVersion:    "v1.2.0",
			configVersion: "v1.2.3",
		},
		{
			name:          "config without version",
			appVersion:    "1.2.0",
			configVersion: "",
		},
		{
			name:          "development app build",
			appVersion:    "main",
			configVersion: "9.9.9",
		},
		{
			name:          "development config",
			appVersion:    "1.2.0",
			configVersion: "main",
		},
		{
			name:          "newer config minor",
			appVersion:    "1.2.0",
			configVersion: "1.3.0",
			expectError:   true,
			errorContains: "minor version mismatch",
		},
		{
			name:          "major version differs",
			appVersion:    "2.0.0",
			configVersion: "1.2.0",
			expectError:   true,
			errorContains: "major version mismatch",
		},
		{
			name:          "invalid config version",
			appVersion:    "1.2.0",
			configVersion: "not-a-version",
			expectError:   true,
			errorContains: "invalid config version",
		},
		{
			name:          "invalid app version",
			appVersion:    "banana",
			configVersion: "1.2.0",
			expectError:   true,
			errorContains: "invalid app version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConfigCompatibility(tt.appVersion, tt.configVersion)
			if !tt.expectError {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}

func TestGetVersion(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	Version = "v0.3.1"
	assert.Equal(t, "v0.3.1", GetVersion())
}
