package cmd

import (
	"bytes"
	"fmt"
	"runtime"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/urfave/cli"
)

// List the processors available to the render workers.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	infos, err := cpu.Info()
	if err != nil {
		return err
	}
	logical, err := cpu.Counts(true)
	if err != nil {
		logical = runtime.NumCPU()
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("\nSystem provides %d logical cpu(s):\n\n", logical))

	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Cpu", "Model", "Cores", "Speed (MHz)", "Cache (KB)"})
	for idx, info := range infos {
		table.Append([]string{
			fmt.Sprintf("%02d", idx),
			info.ModelName,
			fmt.Sprintf("%d", info.Cores),
			fmt.Sprintf("%.0f", info.Mhz),
			fmt.Sprintf("%d", info.CacheSize),
		})
	}
	table.Render()

	if vm, err := mem.VirtualMemory(); err == nil {
		buf.WriteString(fmt.Sprintf("\nMemory: %d MB total, %d MB available\n", vm.Total>>20, vm.Available>>20))
	}

	logger.Notice(buf.String())
	return nil
}

// Log the host the frame is rendered on.
func logSystemInfo() {
	infos, err := cpu.Info()
	if err != nil || len(infos) == 0 {
		logger.Infof("could not query cpu information: %v", err)
		return
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Infof("rendering on %s", infos[0].ModelName)
		return
	}
	logger.Infof("rendering on %s with %d MB of memory", infos[0].ModelName, vm.Total>>20)
}
