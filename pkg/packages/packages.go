package packages

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/xerrors"

	"github.com/aquasecurity/ossaudit/pkg/types"
)

// pipList is swapped out in tests.
var pipList = func() ([]byte, error) {
	return exec.Command("python", "-m", "pip", "list", "--format", "json").Output()
}

// Installed returns the inventory of the host package manager.
func Installed() ([]types.Package, error) {
	out, err := pipList()
	if err != nil {
		return nil, xerrors.Errorf("pip list error: %w", err)
	}

	var entries []struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(out, &entries); err != nil {
		return nil, xerrors.Errorf("failed to parse pip list output: %w", err)
	}

	pkgs := make([]types.Package, 0, len(entries))
	for _, entry := range entries {
		pkgs = append(pkgs, types.Package{Name: entry.Name, Version: entry.Version})
	}
	return pkgs, nil
}

// FromFiles reads requirements-style dependency declarations.
func FromFiles(paths []string) ([]types.Package, error) {
	var pkgs []types.Package
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, xerrors.Errorf("file open error: %w", err)
		}

		filePkgs, err := parse(f)
		f.Close()
		if err != nil {
			return nil, xerrors.Errorf("failed to parse %s: %w", path, err)
		}
		pkgs = append(pkgs, filePkgs...)
	}
	return pkgs, nil
}

func parse(r io.Reader) ([]types.Package, error) {
	var pkgs []types.Package
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if pkg, ok := parseLine(scanner.Text()); ok {
			pkgs = append(pkgs, pkg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Errorf("scan error: %w", err)
	}
	return pkgs, nil
}

// parseLine handles pinned requirement lines ("name==version") with
// comments, extras and environment markers stripped. Anything else,
// including unpinned requirements and pip options, is skipped.
func parseLine(line string) (types.Package, bool) {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "-") {
		return types.Package{}, false
	}

	// environment marker, e.g. "foo==1.0; python_version < '3.8'"
	if i := strings.Index(line, ";"); i >= 0 {
		line = line[:i]
	}

	name, version, ok := strings.Cut(line, "==")
	if !ok {
		return types.Package{}, false
	}

	// extras, e.g. "requests[security]==2.0.0"
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)

	version = strings.TrimSpace(version)
	if i := strings.IndexAny(version, ", "); i >= 0 {
		version = version[:i]
	}

	if name == "" || version == "" {
		return types.Package{}, false
	}
	return types.Package{Name: name, Version: version}, true
}
