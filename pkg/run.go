package pkg

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli"
	"golang.org/x/term"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/ossaudit/pkg/audit"
	"github.com/aquasecurity/ossaudit/pkg/cache"
	"github.com/aquasecurity/ossaudit/pkg/config"
	"github.com/aquasecurity/ossaudit/pkg/ossindex"
	"github.com/aquasecurity/ossaudit/pkg/packages"
	"github.com/aquasecurity/ossaudit/pkg/report"
	"github.com/aquasecurity/ossaudit/pkg/types"
)

func run(c *cli.Context) error {
	store := cache.New(c.String("cache-dir"))
	defer store.Close()

	if c.Bool("reset-cache") {
		if err := store.Reset(); err != nil {
			return xerrors.Errorf("failed to reset the cache: %w", err)
		}
	}

	cfg, err := config.Read(c.String("config-file"))
	if err != nil {
		return err
	}
	mergeFlags(&cfg, c)

	pkgs, err := collectPackages(c)
	if err != nil {
		return err
	}

	var creds *types.Credentials
	if cfg.Username != "" || cfg.Token != "" {
		creds = &types.Credentials{Username: cfg.Username, Token: cfg.Token}
	}

	options := []audit.Option{}
	if interactive() {
		options = append(options, audit.WithProgress())
	}
	auditor := audit.NewAuditor(ossindex.NewClient(), store, options...)

	vulns, err := auditor.Audit(pkgs, creds, c.Bool("no-cache"))
	if err != nil {
		return err
	}

	vulns = report.Filter(vulns, cfg.IgnoreIDs)

	if len(vulns) > 0 {
		fmt.Println(report.Render(vulns, cfg.Columns, outputWidth()))
	}

	threshold := c.Float64("threshold")
	result := report.EvaluateThreshold(vulns, threshold)

	fmt.Printf("Found %d vulnerabilities in %d packages\n", len(vulns), len(pkgs))
	if threshold >= 0 {
		fmt.Printf("%d with CVSS score >= %.1f\n", result.Count, threshold)
	}

	if result.Failed {
		return cli.NewExitError("", 1)
	}
	return nil
}

// collectPackages gathers the audit input from the host package
// manager and/or the listed dependency files.
func collectPackages(c *cli.Context) ([]types.Package, error) {
	var pkgs []types.Package

	if c.Bool("installed") {
		s := newSpinner("Collecting installed packages...")
		installed, err := packages.Installed()
		s.Stop()
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, installed...)
	}

	if files := c.StringSlice("file"); len(files) > 0 {
		filePkgs, err := packages.FromFiles(files)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, filePkgs...)
	}

	return pkgs, nil
}

// mergeFlags lets command-line flags override the configuration file.
func mergeFlags(cfg *config.Config, c *cli.Context) {
	if username := c.String("username"); username != "" {
		cfg.Username = username
	}
	if token := c.String("token"); token != "" {
		cfg.Token = token
	}
	if columns := c.StringSlice("column"); len(columns) > 0 {
		cfg.Columns = columns
	}
	cfg.IgnoreIDs = append(cfg.IgnoreIDs, c.StringSlice("ignore-id")...)
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	if interactive() {
		s.Start()
	}
	return s
}

func interactive() bool {
	return isatty.IsTerminal(os.Stderr.Fd())
}

func outputWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}
