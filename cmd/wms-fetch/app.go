package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/noah-isme/wms-imagery/internal/models"
	"github.com/noah-isme/wms-imagery/internal/service"
	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
	"github.com/noah-isme/wms-imagery/pkg/interval"
)

const (
	startPrompt = "Enter the start date in YYYYMMDD format (e.g., 20240915 for 15th September 2024): "
	endPrompt   = "Enter the end date in YYYYMMDD format (e.g., 20240916 for 16th September 2024): "

	msgInvalidStart = "Invalid start date format. Please enter in YYYYMMDD format."
	msgInvalidEnd   = "Invalid end date format. Please enter in YYYYMMDD format."
	msgBadRange     = "End date cannot be earlier than the start date."
)

type rangeRunner interface {
	Run(ctx context.Context, rng interval.DateRange) (*models.Run, error)
	Location() *time.Location
}

type manifestWriter interface {
	Generate(run *models.Run, format models.ManifestFormat) (*service.ManifestResult, error)
}

type app struct {
	downloads      rangeRunner
	manifests      manifestWriter
	manifestFormat models.ManifestFormat
	manifestPath   func(rel string) string
}

// run reads the date range, downloads it and returns the process exit code.
func (a *app) run(ctx context.Context, args []string, in io.Reader, out io.Writer) int {
	lines := bufio.NewScanner(in)
	loc := a.downloads.Location()

	startRaw := argOrPrompt(args, 0, startPrompt, lines, out)
	start, err := interval.ParseDate(startRaw, loc)
	if err != nil {
		fmt.Fprintln(out, msgInvalidStart)
		return 1
	}
	endRaw := argOrPrompt(args, 1, endPrompt, lines, out)
	end, err := interval.ParseDate(endRaw, loc)
	if err != nil {
		fmt.Fprintln(out, msgInvalidEnd)
		return 1
	}
	rng, err := interval.NewDateRange(start, end)
	if err != nil {
		if errors.Is(err, appErrors.ErrInvalidRange) {
			fmt.Fprintln(out, msgBadRange)
		} else {
			fmt.Fprintln(out, err)
		}
		return 1
	}

	result, runErr := a.downloads.Run(ctx, rng)
	if result != nil {
		fmt.Fprintf(out, "Saved %d of %d images (%d failed) for %s-%s\n", result.Saved, result.Total, result.Failed, result.Start, result.End)
		a.writeManifest(result, out)
	}
	if runErr != nil {
		fmt.Fprintf(out, "Download stopped early: %v\n", runErr)
		return 1
	}
	return 0
}

func (a *app) writeManifest(run *models.Run, out io.Writer) {
	if a.manifests == nil || a.manifestFormat == "" {
		return
	}
	res, err := a.manifests.Generate(run, a.manifestFormat)
	if err != nil {
		fmt.Fprintf(out, "Failed to write manifest: %v\n", err)
		return
	}
	path := res.RelativePath
	if a.manifestPath != nil {
		path = a.manifestPath(path)
	}
	fmt.Fprintf(out, "Manifest saved as '%s'\n", path)
}

func argOrPrompt(args []string, idx int, prompt string, lines *bufio.Scanner, out io.Writer) string {
	if idx < len(args) {
		return strings.TrimSpace(args[idx])
	}
	fmt.Fprint(out, prompt)
	if !lines.Scan() {
		fmt.Fprintln(out)
		return ""
	}
	return strings.TrimSpace(lines.Text())
}
