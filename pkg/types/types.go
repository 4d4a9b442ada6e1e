package types

import (
	"strings"

	"github.com/fatih/color"
)

// Package identifies one audited package. The name is case-insensitive,
// the version is an opaque string and is never compared semantically.
type Package struct {
	Name    string
	Version string
}

// Equal reports whether two packages form the same query unit.
func (p Package) Equal(other Package) bool {
	return strings.EqualFold(p.Name, other.Name) && p.Version == other.Version
}

// Credentials holds the optional OSS Index username/token pair.
type Credentials struct {
	Username string
	Token    string
}

// Vulnerability is one advisory matched to a package.
type Vulnerability struct {
	Name        string   // originating package name
	Version     string   // originating package version
	ID          string   // advisory identifier, e.g. a UUID or CVE-2019-8331
	CVE         string   // CVE identifier, may be empty
	Title       string
	Description string
	CvssScore   *float64 // nil when the advisory carries no score
	Reference   string
}

// Severity returns the severity rating derived from the CVSS score.
func (v Vulnerability) Severity() Severity {
	return SeverityFromScore(v.CvssScore)
}

type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var (
	SeverityNames = []string{
		"UNKNOWN",
		"LOW",
		"MEDIUM",
		"HIGH",
		"CRITICAL",
	}
	SeverityColor = []func(a ...interface{}) string{
		color.New(color.FgCyan).SprintFunc(),
		color.New(color.FgBlue).SprintFunc(),
		color.New(color.FgYellow).SprintFunc(),
		color.New(color.FgHiRed).SprintFunc(),
		color.New(color.FgRed).SprintFunc(),
	}
)

// SeverityFromScore maps a CVSS score to the CVSS v3 rating scale.
// A missing score is distinct from 0.0 and maps to SeverityUnknown.
func SeverityFromScore(score *float64) Severity {
	switch {
	case score == nil:
		return SeverityUnknown
	case *score >= 9.0:
		return SeverityCritical
	case *score >= 7.0:
		return SeverityHigh
	case *score >= 4.0:
		return SeverityMedium
	case *score > 0:
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

func (s Severity) String() string {
	return SeverityNames[s]
}

func ColorizeSeverity(severity Severity) string {
	return SeverityColor[severity](severity.String())
}
