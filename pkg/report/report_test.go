package report_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aquasecurity/ossaudit/pkg/report"
	"github.com/aquasecurity/ossaudit/pkg/types"
)

func score(s float64) *float64 { return &s }

func TestFilter(t *testing.T) {
	vulns := []types.Vulnerability{
		{Name: "a", ID: "10", CVE: "CVE-10"},
		{Name: "b", ID: "20", CVE: "CVE-20"},
		{Name: "c", ID: "30"},
	}

	tests := []struct {
		name      string
		ignoreIDs []string
		wantNames []string
	}{
		{
			name:      "no ignore list",
			wantNames: []string{"a", "b", "c"},
		},
		{
			name:      "ignore by id and by CVE",
			ignoreIDs: []string{"10", "CVE-20"},
			wantNames: []string{"c"},
		},
		{
			name:      "unknown ids are harmless",
			ignoreIDs: []string{"99", "CVE-99"},
			wantNames: []string{"a", "b", "c"},
		},
		{
			name:      "empty CVE never matches an empty ignore entry",
			ignoreIDs: []string{""},
			wantNames: []string{"a", "b", "c"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := report.Filter(vulns, tt.ignoreIDs)

			var names []string
			for _, v := range got {
				names = append(names, v.Name)
			}
			assert.Equal(t, tt.wantNames, names)

			// filtering is idempotent
			assert.Equal(t, got, report.Filter(got, tt.ignoreIDs))
		})
	}
}

func TestEvaluateThreshold(t *testing.T) {
	scored := []types.Vulnerability{
		{ID: "1", CvssScore: score(2.0)},
		{ID: "2", CvssScore: score(5.5)},
		{ID: "3", CvssScore: score(9.0)},
	}

	tests := []struct {
		name      string
		vulns     []types.Vulnerability
		threshold float64
		want      report.Result
	}{
		{
			name:      "unset threshold fails on any vulnerability",
			vulns:     scored,
			threshold: report.ThresholdUnset,
			want:      report.Result{Count: 3, Failed: true},
		},
		{
			name:      "unset threshold with no vulnerabilities passes",
			threshold: report.ThresholdUnset,
			want:      report.Result{Count: 0, Failed: false},
		},
		{
			name:      "threshold counts scores at or above it",
			vulns:     scored,
			threshold: 5.5,
			want:      report.Result{Count: 2, Failed: true},
		},
		{
			name:      "threshold above every score passes",
			vulns:     scored,
			threshold: 9.1,
			want:      report.Result{Count: 0, Failed: false},
		},
		{
			name:      "unscored vulnerabilities never reach a threshold",
			vulns:     []types.Vulnerability{{ID: "1"}},
			threshold: 0,
			want:      report.Result{Count: 0, Failed: false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, report.EvaluateThreshold(tt.vulns, tt.threshold))
		})
	}
}

func TestRender(t *testing.T) {
	vulns := []types.Vulnerability{
		{Name: "django", Version: "1.11", Title: "XSS", CvssScore: score(6.1)},
		{Name: "requests", Version: "2.0.0", Title: "Leak"},
	}

	out := report.Render(vulns, []string{"name", "version", "title", "cvss_score"}, 120)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "CVSS_SCORE")
	assert.Contains(t, out, "django")
	assert.Contains(t, out, "1.11")
	assert.Contains(t, out, "XSS")
	assert.Contains(t, out, "6.1")
	assert.Contains(t, out, "requests")
}

func TestRenderColumnLookup(t *testing.T) {
	vulns := []types.Vulnerability{
		{Name: "django", Version: "1.11"},
	}

	// column names are matched case-insensitively
	out := report.Render(vulns, []string{"Name", "VERSION"}, 80)
	assert.Contains(t, out, "django")
	assert.Contains(t, out, "1.11")

	// unknown columns render as empty cells rather than failing
	out = report.Render(vulns, []string{"name", "bogus"}, 80)
	assert.Contains(t, out, "BOGUS")
	assert.Contains(t, out, "django")

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "django") {
			assert.NotContains(t, line, "bogus")
		}
	}
}
