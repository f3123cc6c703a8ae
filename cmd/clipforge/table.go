package main

import (
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one column of CLI table output.
type column struct {
	header string
	// numeric columns (job ids, counts) are right aligned.
	numeric bool
	// maxWidth shortens longer cells; zero leaves them as is.
	maxWidth int
	// path cells are shortened from the left so the file name survives.
	path bool
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.header
		cfg := table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if col.numeric {
			cfg.Align = text.AlignRight
		}
		if col.maxWidth > 0 {
			cfg.WidthMax = col.maxWidth
			cfg.WidthMaxEnforcer = truncate
			if col.path {
				cfg.WidthMaxEnforcer = shortenPath
			}
		}
		configs[i] = cfg
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

// shortenPath keeps the tail of a path within limit runes, e.g.
// ".../job-12/subtitled_x.mp4".
func shortenPath(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	base := filepath.Base(value)
	if len([]rune(base))+4 > limit {
		return truncate(base, limit)
	}
	return "..." + string(runes[len(runes)-(limit-3):])
}
