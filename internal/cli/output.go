package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"

	"github.com/jengzang/records-timeline/internal/models"
)

var (
	placeColor   = color.New(color.FgGreen, color.Bold)
	travelColor  = color.New(color.FgCyan)
	sleepColor   = color.New(color.FgBlue)
	filledColor  = color.New(color.FgYellow)
	unknownColor = color.New(color.FgHiBlack)
)

// kindLabel colors a block kind for terminal output
func kindLabel(kind string) string {
	switch kind {
	case models.BlockPlace:
		return placeColor.Sprint(kind)
	case models.BlockTravel:
		return travelColor.Sprint(kind)
	case models.BlockSleepCandidate:
		return sleepColor.Sprint(kind)
	case models.BlockGapFilled:
		return filledColor.Sprint(kind)
	default:
		return unknownColor.Sprint(kind)
	}
}

// fixedColumnsWidth is the width of every column but Place, with borders
const fixedColumnsWidth = 72

// minPlaceWidth keeps labels readable on narrow terminals
const minPlaceWidth = 12

// placeWidth fits the Place column to the terminal, 80 columns when unknown
func placeWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return max(width-fixedColumnsWidth, minPlaceWidth)
}

// truncate shortens s to n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// printBlocks renders a day's blocks as a table
func printBlocks(w io.Writer, blocks []models.LocationBlock) error {
	labelWidth := placeWidth()
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Start", "End", "Duration", "Kind", "Place", "Category", "Confidence"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, b := range blocks {
		data = append(data, []string{
			b.Start.Format("15:04"),
			b.End.Format("15:04"),
			formatDuration(b.Duration()),
			kindLabel(b.Kind),
			truncate(b.Label, labelWidth),
			b.Category,
			fmt.Sprintf("%.2f", b.Confidence),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h, m := int(d.Hours()), int(d.Minutes())%60
	var sb strings.Builder
	if h > 0 {
		fmt.Fprintf(&sb, "%dh", h)
	}
	if m > 0 || h == 0 {
		fmt.Fprintf(&sb, "%dm", m)
	}
	return sb.String()
}
