package cmd

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"time"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/renderer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	opts, err := renderOptions(ctx)
	if err != nil {
		return err
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	var scheduler tracer.BlockScheduler
	switch name := ctx.String("scheduler"); name {
	case "naive":
		scheduler = tracer.NewNaiveScheduler()
	case "perfect":
		scheduler = tracer.NewPerfectScheduler()
	default:
		return errors.Errorf("unknown block scheduler %q", name)
	}

	logSystemInfo()
	r, err := renderer.NewDefault(sc, scheduler, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	// Abort on ^C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()
	go func() {
		if _, ok := <-sigChan; ok {
			logger.Warning("interrupt received; aborting frame")
			r.Interrupt()
		}
	}()

	if err = r.Render(); err != nil {
		return err
	}

	if err = writeFrame(r.Frame(), ctx.String("out")); err != nil {
		return err
	}

	// Display stats
	displayFrameStats(r.Stats())
	return nil
}

// Map the render flags to renderer options.
func renderOptions(ctx *cli.Context) (renderer.Options, error) {
	opts := renderer.DefaultOptions()
	opts.FrameW = uint32(ctx.Int("width"))
	opts.FrameH = uint32(ctx.Int("height"))
	opts.RaysPerPixel = uint32(ctx.Int("rays"))
	opts.AAThreshold = ctx.Float64("threshold")
	opts.MaxLevel = ctx.Int("max-level")
	opts.Alpha = ctx.Bool("alpha")
	opts.NumWorkers = ctx.Int("workers")
	opts.Seed = ctx.Int64("seed")

	var err error
	if opts.Sampling, err = tracer.ParseSampleMode(ctx.String("sampling")); err != nil {
		return opts, err
	}

	// The fragment window takes inclusive pixel bounds; -1 stands for the
	// frame edge.
	x0, x1 := ctx.Int("xstart"), ctx.Int("xend")
	y0, y1 := ctx.Int("ystart"), ctx.Int("yend")
	if x0 >= 0 || x1 >= 0 || y0 >= 0 || y1 >= 0 {
		if x1 < 0 {
			x1 = int(opts.FrameW) - 1
		}
		if y1 < 0 {
			y1 = int(opts.FrameH) - 1
		}
		x0, y0 = max(x0, 0), max(y0, 0)
		if x1 < x0 || y1 < y0 {
			return opts, errors.Wrapf(renderer.ErrInvalidOptions, "empty fragment window x %d..%d, y %d..%d", x0, x1, y0, y1)
		}
		opts.Window = image.Rect(x0, y0, x1+1, y1+1)
	}
	return opts, nil
}

func writeFrame(frame *image.NRGBA, imgFile string) error {
	start := time.Now()
	f, err := os.Create(imgFile)
	if err != nil {
		return errors.Wrap(err, "could not create output image")
	}

	if err = png.Encode(f, frame); err != nil {
		f.Close()
		return errors.Wrap(err, "error encoding png file")
	}
	if err = f.Close(); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s in %d ms", imgFile, time.Since(start).Nanoseconds()/1000000)
	return nil
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Worker", "Primary", "Block height", "% of frame", "Rays", "Render time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%t", stat.IsPrimary),
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			fmt.Sprintf("%d", stat.Rays.Total()),
			fmt.Sprintf("%s", stat.RenderTime),
		})
	}
	table.SetFooter([]string{"", "", "", "TOTAL", fmt.Sprintf("%d", stats.Rays.Total()), fmt.Sprintf("%s", stats.RenderTime)})
	table.Render()

	rays := tablewriter.NewWriter(&buf)
	rays.SetAutoFormatHeaders(false)
	rays.SetHeader([]string{"Ray type", "Count"})
	for kind, count := range stats.Rays.Rays {
		rays.Append([]string{tracer.RayKind(kind).String(), fmt.Sprintf("%d", count)})
	}
	rays.Append([]string{"intersection tests", fmt.Sprintf("%d", stats.Rays.Tests)})
	rays.Append([]string{"mailbox hits", fmt.Sprintf("%d", stats.Rays.MailboxHits)})
	rays.Render()

	logger.Noticef("frame statistics\n%s", buf.String())
}
