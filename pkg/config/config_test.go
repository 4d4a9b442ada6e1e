package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/ossaudit/pkg/config"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    config.Config
		wantErr string
	}{
		{
			name: "full config",
			content: `
username = "user"
token = "secret"
columns = ["name", "version", "cve", "cvss_score"]
ignore_ids = ["10", "CVE-20"]
`,
			want: config.Config{
				Username:  "user",
				Token:     "secret",
				Columns:   []string{"name", "version", "cve", "cvss_score"},
				IgnoreIDs: []string{"10", "CVE-20"},
			},
		},
		{
			name:    "empty config falls back to default columns",
			content: ``,
			want: config.Config{
				Columns: config.DefaultColumns,
			},
		},
		{
			name:    "malformed config",
			content: `username = `,
			wantErr: "config read error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			cfg, err := config.Read(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestReadMissingExplicitPath(t *testing.T) {
	_, err := config.Read(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
