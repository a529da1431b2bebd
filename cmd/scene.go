package cmd

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/accel"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/scene"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/scene/reader"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Assemble the scene named by the first command argument: a built-in demo
// or a wavefront obj file given as a local path or URL.
func loadScene(ctx *cli.Context) (*scene.Scene, error) {
	if ctx.NArg() != 1 {
		return nil, errors.New("missing scene argument")
	}
	name := ctx.Args().First()

	opts, err := sceneOptions(ctx)
	if err != nil {
		return nil, err
	}

	var b *scene.Builder
	if strings.HasSuffix(strings.ToLower(name), ".obj") {
		b = scene.NewBuilder()
		if err = reader.Read(name, b); err != nil {
			return nil, err
		}
	} else if b, err = scene.LoadDemo(name); err != nil {
		return nil, err
	}

	logger.Noticef("assembling scene %s", name)
	return b.Build(opts)
}

// Map the scene flags to scene options.
func sceneOptions(ctx *cli.Context) (scene.Options, error) {
	opts := scene.DefaultOptions()
	var err error

	if opts.Background, err = parseColor(ctx.String("background")); err != nil {
		return opts, errors.Wrap(err, "background")
	}
	if opts.Haze, err = parseColor(ctx.String("haze")); err != nil {
		return opts, errors.Wrap(err, "haze")
	}
	opts.Fog = ctx.Float64("fog")
	opts.RI = ctx.Float64("ri")
	opts.Falloff = ctx.Float64("falloff")

	opts.Index = accel.Kind(ctx.String("index"))
	opts.IndexOptions.MaxDepth = ctx.Int("kd-depth")
	size := ctx.Int("grid-size")
	opts.IndexOptions.GridSize = [3]int{size, size, size}
	opts.IndexOptions.LeafSize = ctx.Int("leaf-size")
	return opts, nil
}

// Parse an "r,g,b" triplet or a single grey value.
func parseColor(val string) (types.Color, error) {
	fields := strings.Split(val, ",")
	if len(fields) != 1 && len(fields) != 3 {
		return types.Color{}, errors.Errorf("expected a grey value or r,g,b; got %q", val)
	}

	var c types.Color
	for i := range c {
		f := fields[min(i, len(fields)-1)]
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return types.Color{}, errors.Wrapf(err, "invalid colour component %q", f)
		}
		c[i] = v
	}
	return c, nil
}

// List the built-in demo scenes.
func ListScenes(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Scene", "Description"})
	for _, d := range scene.Demos() {
		table.Append([]string{d.Name, d.Description})
	}
	table.Render()

	logger.Noticef("built-in scenes\n%s", buf.String())
	return nil
}

// Display assembled scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	logger.Noticef("scene information\n%s", sceneInfo(sc.Stats()))
	return nil
}

func sceneInfo(stats scene.Stats) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Primitive", "Count"})
	for kind, count := range stats.PerKind {
		if count == 0 {
			continue
		}
		table.Append([]string{geometry.Kind(kind).String(), strconv.Itoa(count)})
	}
	table.SetFooter([]string{"TOTAL", strconv.Itoa(stats.Objects)})
	table.Render()

	bbox := "empty"
	if !stats.BBox.IsEmpty() {
		bbox = fmt.Sprintf("(%.4g, %.4g, %.4g) - (%.4g, %.4g, %.4g)",
			stats.BBox.Min[0], stats.BBox.Min[1], stats.BBox.Min[2],
			stats.BBox.Max[0], stats.BBox.Max[1], stats.BBox.Max[2])
	}

	table = tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Property", "Value"})
	table.AppendBulk([][]string{
		{"CSG operands", strconv.Itoa(stats.Operands)},
		{"Unindexed objects", strconv.Itoa(stats.Others)},
		{"Lights", strconv.Itoa(stats.Lights)},
		{"World bounds", bbox},
		{"Tolerance", fmt.Sprintf("%g", stats.Tolerance)},
	})
	table.Render()

	idx := stats.Index
	if idx.Kind == "" {
		return buf.String()
	}
	table = tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Index", "Objects", "Nodes", "Leaves", "Max depth", "Voxels", "Occupied", "Refs"})
	table.Append([]string{
		string(idx.Kind),
		strconv.Itoa(idx.Objects),
		strconv.Itoa(idx.Nodes),
		strconv.Itoa(idx.Leaves),
		strconv.Itoa(idx.MaxDepth),
		strconv.Itoa(idx.Voxels),
		strconv.Itoa(idx.Occupied),
		strconv.Itoa(idx.Refs),
	})
	table.Render()
	return buf.String()
}
