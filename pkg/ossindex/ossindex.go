package ossindex

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/package-url/packageurl-go"
	"github.com/parnurzeal/gorequest"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/ossaudit/pkg/types"
)

const (
	componentReportURL = "https://ossindex.sonatype.org/api/v3/component-report"

	// MaxCoordinates is the request size limit of the component-report API.
	MaxCoordinates = 128

	timeout = 30 * time.Second
)

type option func(*Client)

func WithURL(url string) option {
	return func(c *Client) { c.url = url }
}

func WithTimeout(d time.Duration) option {
	return func(c *Client) { c.timeout = d }
}

// Client queries the Sonatype OSS Index component-report API.
type Client struct {
	url     string
	timeout time.Duration
}

func NewClient(options ...option) *Client {
	client := &Client{
		url:     componentReportURL,
		timeout: timeout,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Coordinate returns the package-url coordinate for pkg,
// e.g. pkg:pypi/django@1.11. Package names are case-insensitive.
func Coordinate(pkg types.Package) string {
	purl := packageurl.NewPackageURL(packageurl.TypePyPi, "", strings.ToLower(pkg.Name), pkg.Version, nil, "")
	return purl.ToString()
}

type componentReportRequest struct {
	Coordinates []string `json:"coordinates"`
}

// Report is one component entry of a component-report response.
type Report struct {
	Coordinates     string          `json:"coordinates"`
	Description     string          `json:"description"`
	Reference       string          `json:"reference"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

type Vulnerability struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CvssScore   *float64 `json:"cvssScore"`
	CvssVector  string   `json:"cvssVector"`
	CVE         string   `json:"cve"`
	Reference   string   `json:"reference"`
}

// Query performs a single component-report request for the given
// coordinates. No retry: the service rate-limits anonymous clients.
func (c *Client) Query(coordinates []string, creds *types.Credentials) ([]byte, error) {
	req := gorequest.New().
		Post(c.url).
		Timeout(c.timeout).
		Send(componentReportRequest{Coordinates: coordinates})
	if creds != nil {
		req = req.SetBasicAuth(creds.Username, creds.Token)
	}

	resp, body, errs := req.EndBytes()
	if len(errs) > 0 {
		return nil, xerrors.Errorf("HTTP error. url: %s, err: %w", c.url, errs[0])
	}
	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("HTTP error. status code: %d, url: %s", resp.StatusCode, c.url)
	}
	return body, nil
}

// Parse decodes a component-report response, one report per queried
// coordinate. Unknown fields are tolerated, a report without
// coordinates or an advisory without an ID is malformed.
func Parse(raw []byte) ([]Report, error) {
	var reports []Report
	if err := json.Unmarshal(raw, &reports); err != nil {
		return nil, xerrors.Errorf("failed to parse component report: %w", err)
	}
	for _, report := range reports {
		if report.Coordinates == "" {
			return nil, xerrors.New("component report entry without coordinates")
		}
		for _, vuln := range report.Vulnerabilities {
			if vuln.ID == "" {
				return nil, xerrors.Errorf("advisory without ID for %s", report.Coordinates)
			}
		}
	}
	return reports, nil
}
