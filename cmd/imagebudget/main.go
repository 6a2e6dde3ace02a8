package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	imagebudget "github.com/Skryldev/image-budget"
	"github.com/Skryldev/image-budget/config"
	"github.com/Skryldev/image-budget/core"
	"github.com/Skryldev/image-budget/hooks"
	"github.com/Skryldev/image-budget/utils"
	"github.com/Skryldev/image-budget/validity"
)

// extraResizers is filled by optional backends compiled in with build tags.
var extraResizers []func() core.Resizer

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %s\n", err.Error())
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "imagebudget",
		Usage: "Compress images to fit a byte budget",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: config.Default().LogLevel, Usage: "debug, info, warn or error"},
		},
		Commands: []*cli.Command{
			{
				Name:      "compress",
				Usage:     "Write the best JPEG of IN that is smaller than the budget",
				ArgsUsage: "IN OUT",
				Action:    compressImage,
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "budget", Value: config.PreviewBudget, Usage: "exclusive byte budget"},
					&cli.StringFlag{Name: "preset", Usage: "preview or attachment; overrides --budget"},
					&cli.StringFlag{Name: "backend", Usage: "draw, imaging or vips"},
					&cli.StringSliceFlag{
						Name:    "feature",
						EnvVars: []string{"IMAGEBUDGET_FEATURES"},
						Usage:   "feature flags used when --backend is not set (vips_resizer, imaging_resizer)",
					},
					&cli.StringFlag{Name: "report-dir", Usage: "store corruption reports under this directory"},
				},
			},
			{
				Name:      "inspect",
				Usage:     "Print format, size and blankness of an image",
				ArgsUsage: "IN",
				Action:    inspectImage,
			},
		},
	}
}

func compressImage(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("compress needs IN and OUT", 2)
	}
	in, out := c.Args().Get(0), c.Args().Get(1)

	cfg := config.Default()
	cfg.LogLevel = c.String("log-level")
	logger, err := hooks.NewZapProduction(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg.DefaultBudget = c.Int64("budget")
	switch c.String("preset") {
	case "":
	case "preview":
		cfg.DefaultBudget = config.PreviewBudget
	case "attachment":
		cfg.DefaultBudget = config.AttachmentBudget
	default:
		return cli.Exit(fmt.Sprintf("unknown preset %q", c.String("preset")), 2)
	}
	cfg.Backend = c.String("backend")
	if cfg.Backend == "" {
		cfg.Backend = string(imagebudget.SelectBackend(featureSet(c.StringSlice("feature"))))
	}
	if dir := c.String("report-dir"); dir != "" {
		cfg.Report.Storage = config.StorageLocal
		cfg.Report.Local.RootDir = dir
	}

	opts := []imagebudget.Option{imagebudget.WithLogger(logger)}
	for _, mk := range extraResizers {
		opts = append(opts, imagebudget.WithResizers(mk()))
	}
	proc, err := imagebudget.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer proc.Stop() //nolint:errcheck

	f, err := os.Open(in)
	if err != nil {
		return err
	}
	img, err := proc.Load(c.Context, f)
	f.Close()
	if err != nil {
		return err
	}

	res, err := proc.Compress(c.Context, core.Request{Source: img, Filename: in})
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s: %dx%d quality %.2f, %d bytes (budget %d, %d attempts, %s)\n",
		out, res.Width, res.Height, res.Quality, len(res.Data), cfg.DefaultBudget, res.Attempts, res.Backend)
	return nil
}

func inspectImage(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("inspect needs IN", 2)
	}
	raw, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	img, err := imagebudget.Load(c.Context, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	v := config.Default().Validity
	b := img.Bounds()
	fmt.Fprintf(c.App.Writer, "format=%s width=%d height=%d bytes=%d blank=%t\n",
		utils.DetectFormat(raw), b.Dx(), b.Dy(), len(raw), validity.IsDegenerate(img, v.Tolerance, v.SampleLimit))
	return nil
}

func featureSet(names []string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if part = strings.TrimSpace(part); part != "" {
				set[part] = true
			}
		}
	}
	return func(flag string) bool { return set[flag] }
}
