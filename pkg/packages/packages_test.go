package packages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/ossaudit/pkg/types"
)

func TestFromFiles(t *testing.T) {
	requirements := `
# comment
django==1.11
requests[security]==2.0.0  # pinned for CVE-xyz
flask==1.0; python_version < "3.8"
unpinned
-r other-requirements.txt
celery>=4.0
`
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(path, []byte(requirements), 0o600))

	pkgs, err := FromFiles([]string{path})
	require.NoError(t, err)
	assert.Equal(t, []types.Package{
		{Name: "django", Version: "1.11"},
		{Name: "requests", Version: "2.0.0"},
		{Name: "flask", Version: "1.0"},
	}, pkgs)
}

func TestFromFilesMissing(t *testing.T) {
	_, err := FromFiles([]string{filepath.Join(t.TempDir(), "absent.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file open error")
}

func TestInstalled(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		execErr error
		want    []types.Package
		wantErr string
	}{
		{
			name:   "happy path",
			output: `[{"name": "Django", "version": "1.11"}, {"name": "requests", "version": "2.0.0"}]`,
			want: []types.Package{
				{Name: "Django", Version: "1.11"},
				{Name: "requests", Version: "2.0.0"},
			},
		},
		{
			name:    "pip missing",
			execErr: xerrors.New("executable file not found"),
			wantErr: "pip list error",
		},
		{
			name:    "broken output",
			output:  "WARNING: pip is out of date",
			wantErr: "failed to parse pip list output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := pipList
			defer func() { pipList = orig }()
			pipList = func() ([]byte, error) {
				return []byte(tt.output), tt.execErr
			}

			pkgs, err := Installed()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pkgs)
		})
	}
}
