package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/goark/go-cvss/v3/metric"
	"github.com/samber/lo"
	"golang.org/x/xerrors"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/aquasecurity/ossaudit/pkg/log"
	"github.com/aquasecurity/ossaudit/pkg/ossindex"
	"github.com/aquasecurity/ossaudit/pkg/types"
)

// Error is an unrecoverable remote-communication or response-parsing
// failure. It aborts the whole run: no partial results are returned.
type Error struct {
	err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("audit error: %s", e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Querier performs one remote component-report query.
type Querier interface {
	Query(coordinates []string, creds *types.Credentials) ([]byte, error)
}

// Store is the response cache consulted before a remote query.
// Get never fails, a missing fingerprint is simply absent.
type Store interface {
	Get(fingerprint string) ([]byte, bool)
	Put(fingerprint string, raw []byte) error
}

type Option func(*Auditor)

// WithBatchSize overrides the per-request coordinate limit, for tests.
func WithBatchSize(n int) Option {
	return func(a *Auditor) { a.batchSize = n }
}

// WithProgress draws a progress bar across batches.
func WithProgress() Option {
	return func(a *Auditor) { a.progress = true }
}

// Auditor looks up vulnerabilities for package coordinates, batch by
// batch, through the cache-then-network resolve path.
type Auditor struct {
	querier   Querier
	store     Store
	batchSize int
	progress  bool
}

func NewAuditor(querier Querier, store Store, options ...Option) *Auditor {
	auditor := &Auditor{
		querier:   querier,
		store:     store,
		batchSize: ossindex.MaxCoordinates,
	}
	for _, option := range options {
		option(auditor)
	}
	return auditor
}

// Audit returns every advisory matching the given packages, in input
// package order, contiguous per package. Batches are queried
// sequentially and any failure discards results from earlier batches.
func (a *Auditor) Audit(pkgs []types.Package, creds *types.Credentials, bypassCache bool) ([]types.Vulnerability, error) {
	if len(pkgs) == 0 {
		return nil, nil
	}

	batches := lo.Chunk(pkgs, a.batchSize)

	var bar *pb.ProgressBar
	if a.progress && len(batches) > 1 {
		bar = pb.StartNew(len(batches))
	}

	var vulns []types.Vulnerability
	for _, batch := range batches {
		batchVulns, err := a.auditBatch(batch, creds, bypassCache)
		if err != nil {
			return nil, err
		}
		vulns = append(vulns, batchVulns...)
		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Finish()
	}
	return vulns, nil
}

func (a *Auditor) auditBatch(batch []types.Package, creds *types.Credentials, bypassCache bool) ([]types.Vulnerability, error) {
	coordinates := lo.Map(batch, func(pkg types.Package, _ int) string {
		return ossindex.Coordinate(pkg)
	})
	fingerprint := Fingerprint(coordinates, creds != nil)

	raw, err := a.resolve(fingerprint, coordinates, creds, bypassCache)
	if err != nil {
		return nil, &Error{err: err}
	}

	reports, err := ossindex.Parse(raw)
	if err != nil {
		return nil, &Error{err: err}
	}

	// The response identifies the matching package by its coordinate
	byCoordinate := make(map[string]ossindex.Report, len(reports))
	for _, report := range reports {
		byCoordinate[strings.ToLower(report.Coordinates)] = report
	}

	var vulns []types.Vulnerability
	for i, pkg := range batch {
		report, ok := byCoordinate[strings.ToLower(coordinates[i])]
		if !ok {
			continue
		}
		for _, vuln := range report.Vulnerabilities {
			vulns = append(vulns, types.Vulnerability{
				Name:        pkg.Name,
				Version:     pkg.Version,
				ID:          vuln.ID,
				CVE:         vuln.CVE,
				Title:       vuln.Title,
				Description: vuln.Description,
				CvssScore:   score(vuln),
				Reference:   vuln.Reference,
			})
		}
	}
	return vulns, nil
}

// resolve returns the raw response for the fingerprint, from the cache
// when allowed, otherwise from the remote service. Only a successful
// query populates the cache, and a failed Put only forgoes caching.
func (a *Auditor) resolve(fingerprint string, coordinates []string, creds *types.Credentials, bypassCache bool) ([]byte, error) {
	if !bypassCache {
		if raw, ok := a.store.Get(fingerprint); ok {
			return raw, nil
		}
	}

	raw, err := a.querier.Query(coordinates, creds)
	if err != nil {
		return nil, xerrors.Errorf("component report query error: %w", err)
	}

	if err := a.store.Put(fingerprint, raw); err != nil {
		log.Warn("Failed to cache the response", log.String("fingerprint", fingerprint), log.Err(err))
	}
	return raw, nil
}

// Fingerprint identifies one batch query. It is order-independent
// across coordinates, and authenticated and anonymous queries over the
// same coordinates never share a cache entry.
func Fingerprint(coordinates []string, authenticated bool) string {
	sorted := make([]string, len(coordinates))
	copy(sorted, coordinates)
	sort.Strings(sorted)

	marker := "anonymous"
	if authenticated {
		marker = "authenticated"
	}

	h := sha256.New()
	for _, coordinate := range sorted {
		fmt.Fprintln(h, coordinate)
	}
	fmt.Fprintln(h, marker)
	return hex.EncodeToString(h.Sum(nil))
}

// score prefers the advisory's own CVSS score and falls back to
// decoding the CVSS v3 vector. Absence is distinct from zero.
func score(vuln ossindex.Vulnerability) *float64 {
	if vuln.CvssScore != nil {
		return vuln.CvssScore
	}
	if vuln.CvssVector == "" {
		return nil
	}
	bm, err := metric.NewBase().Decode(vuln.CvssVector)
	if err != nil {
		return nil
	}
	s := bm.Score()
	return &s
}
