package pkg

import (
	"github.com/urfave/cli"

	"github.com/aquasecurity/ossaudit/pkg/report"
	"github.com/aquasecurity/ossaudit/pkg/utils"
)

func NewApp(version string) *cli.App {
	app := cli.NewApp()
	app.Name = "ossaudit"
	app.Version = version
	app.Usage = "Audit packages against Sonatype OSS Index"
	app.Action = run

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config-file, c",
			Usage: "configuration file",
		},
		cli.BoolFlag{
			Name:  "installed, i",
			Usage: "audit installed packages",
		},
		cli.StringSliceFlag{
			Name:  "file, f",
			Usage: "audit packages in file (can be specified multiple times)",
		},
		cli.StringFlag{
			Name:  "username",
			Usage: "OSS Index username",
		},
		cli.StringFlag{
			Name:  "token",
			Usage: "OSS Index API token",
		},
		cli.StringSliceFlag{
			Name:  "column",
			Usage: "report column (can be specified multiple times)",
		},
		cli.StringSliceFlag{
			Name:  "ignore-id",
			Usage: "ignore a vulnerability by ID or CVE (can be specified multiple times)",
		},
		cli.Float64Flag{
			Name:  "threshold, t",
			Usage: "fail only on CVSS scores at or above this value",
			Value: report.ThresholdUnset,
		},
		cli.BoolFlag{
			Name:  "no-cache",
			Usage: "bypass the response cache",
		},
		cli.BoolFlag{
			Name:  "reset-cache",
			Usage: "delete the response cache",
		},
		cli.StringFlag{
			Name:  "cache-dir",
			Usage: "cache directory path",
			Value: utils.CacheDir(),
		},
	}

	return app
}
