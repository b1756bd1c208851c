package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dfryer1193/blogapi/blog/application"
	"github.com/dfryer1193/blogapi/blog/persistence"
	"github.com/dfryer1193/blogapi/shared/config"
	"github.com/dfryer1193/blogapi/shared/logging"
)

const usage = `usage: blogctl <command> [flags]

commands:
  sweep    remove unreferenced cover images and stale partial uploads,
           and report blogs whose image file is missing
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "sweep":
		err = runSweep(ctx, os.Args[2:], os.Stdout)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func runSweep(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "report what would be removed without deleting anything")
	minAge := fs.Duration("min-age", time.Hour, "only remove files older than this")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, true)

	database := cfg.Database()
	if err := database.Connect(); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	images, err := persistence.NewFileImageStore(cfg.Images)
	if err != nil {
		return err
	}

	sweeper := application.NewSweeper(persistence.NewBlogRepository(database.DB()), images)
	report, err := sweeper.Sweep(ctx, application.SweepOptions{DryRun: *dryRun, MinAge: *minAge})
	if err != nil {
		return err
	}

	printReport(out, report, *dryRun)
	return nil
}

func printReport(out io.Writer, r *application.SweepReport, dryRun bool) {
	verb := "removed"
	if dryRun {
		verb = "would remove"
	}

	fmt.Fprintf(out, "referenced: %d\n", r.Referenced)
	fmt.Fprintf(out, "%s: %d\n", verb, len(r.Removed))
	for _, name := range r.Removed {
		fmt.Fprintf(out, "  %s\n", name)
	}
	if len(r.Young) > 0 {
		fmt.Fprintf(out, "skipped (too recent): %d\n", len(r.Young))
	}
	if len(r.Failed) > 0 {
		fmt.Fprintf(out, "failed: %d\n", len(r.Failed))
		for _, name := range r.Failed {
			fmt.Fprintf(out, "  %s\n", name)
		}
	}
	if len(r.Dangling) > 0 {
		fmt.Fprintf(out, "missing files referenced by blogs: %d\n", len(r.Dangling))
		for _, ref := range r.Dangling {
			fmt.Fprintf(out, "  %s\n", ref.URL())
		}
	}
}
