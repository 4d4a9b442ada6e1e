package report

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"

	"github.com/aquasecurity/ossaudit/pkg/set"
	"github.com/aquasecurity/ossaudit/pkg/types"
)

// ThresholdUnset is the sentinel for "no severity threshold".
const ThresholdUnset float64 = -1

// columnValues maps a lowercased column name to its accessor.
// Unknown column names render as empty cells rather than failing.
var columnValues = map[string]func(types.Vulnerability) string{
	"name":        func(v types.Vulnerability) string { return v.Name },
	"version":     func(v types.Vulnerability) string { return v.Version },
	"id":          func(v types.Vulnerability) string { return v.ID },
	"cve":         func(v types.Vulnerability) string { return v.CVE },
	"title":       func(v types.Vulnerability) string { return v.Title },
	"description": func(v types.Vulnerability) string { return v.Description },
	"reference":   func(v types.Vulnerability) string { return v.Reference },
	"severity": func(v types.Vulnerability) string {
		return types.ColorizeSeverity(v.Severity())
	},
	"cvss_score": func(v types.Vulnerability) string {
		if v.CvssScore == nil {
			return ""
		}
		return strconv.FormatFloat(*v.CvssScore, 'f', 1, 64)
	},
}

// Filter removes any vulnerability whose ID or CVE is in ignoreIDs,
// preserving the order of the remaining vulnerabilities.
func Filter(vulns []types.Vulnerability, ignoreIDs []string) []types.Vulnerability {
	if len(ignoreIDs) == 0 {
		return vulns
	}
	ignored := set.New(ignoreIDs...)
	return lo.Filter(vulns, func(v types.Vulnerability, _ int) bool {
		if ignored.Contains(v.ID) {
			return false
		}
		return v.CVE == "" || !ignored.Contains(v.CVE)
	})
}

type Result struct {
	Count  int
	Failed bool
}

// EvaluateThreshold decides the pass/fail outcome. With the threshold
// unset any vulnerability fails the run; with a threshold set only
// scores at or above it do, and the count covers just those.
func EvaluateThreshold(vulns []types.Vulnerability, threshold float64) Result {
	if threshold < 0 {
		return Result{Count: len(vulns), Failed: len(vulns) != 0}
	}
	count := lo.CountBy(vulns, func(v types.Vulnerability) bool {
		return v.CvssScore != nil && *v.CvssScore >= threshold
	})
	return Result{Count: count, Failed: count != 0}
}

// Render formats one row per vulnerability, one column per requested
// name, bounded to the given output width.
func Render(vulns []types.Vulnerability, columns []string, width int) string {
	headers := lo.Map(columns, func(column string, _ int) string {
		return strings.ToUpper(column)
	})

	rows := make([][]string, 0, len(vulns))
	for _, vuln := range vulns {
		row := make([]string, 0, len(columns))
		for _, column := range columns {
			accessor, ok := columnValues[strings.ToLower(column)]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, accessor(vuln))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Width(width).
		Headers(headers...).
		Rows(rows...)
	return t.Render()
}
