package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"TourCast/internal/domain/models"
)

var outcomeHeader = []string{"State", "Region", "Status", "Horizon", "History", "Skipped", "Future Total", "Avg Daily", "Growth"}

// writeTable renders one row per outcome.
func writeTable(w io.Writer, outs []*models.ForecastOutcome) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(outcomeHeader)
	if err := table.Bulk(outcomeRows(outs)); err != nil {
		return err
	}
	return table.Render()
}

func outcomeRows(outs []*models.ForecastOutcome) [][]string {
	rows := make([][]string, 0, len(outs))
	for _, o := range outs {
		if o == nil {
			continue
		}
		total, avg, growth := "-", "-", "-"
		if o.Summary != nil {
			total = strconv.FormatFloat(o.Summary.FutureTotal, 'f', 0, 64)
			avg = strconv.FormatFloat(o.Summary.AverageDaily, 'f', 1, 64)
			if o.Summary.GrowthRate != nil {
				growth = fmt.Sprintf("%.2f%%", *o.Summary.GrowthRate)
			} else {
				growth = o.Summary.GrowthRateStatus
			}
		}
		rows = append(rows, []string{
			orAll(o.Filter.State),
			orAll(o.Filter.Region),
			string(o.Status),
			strconv.Itoa(o.Horizon),
			strconv.Itoa(len(o.Series)),
			strconv.Itoa(o.SkippedRecords),
			total,
			avg,
			growth,
		})
	}
	return rows
}

func orAll(s *string) string {
	if s == nil {
		return "All"
	}
	return *s
}
