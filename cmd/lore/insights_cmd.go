package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lorehq/lore/internal/loreerr"
)

// InsightsCmd prints an aggregate activity report: counts by tool, the
// most-used tags, and session volume by day. With --query, the same
// report is passed through a gojq filter instead of the default table,
// so an operator can slice it without lore needing its own query syntax.
type InsightsCmd struct {
	Query string `help:"gojq filter applied to the report JSON, e.g. '.byDay | to_entries | sort_by(.value)'." name:"query"`
}

type insightsReport struct {
	SessionCount int            `json:"sessionCount"`
	MessageCount int            `json:"messageCount"`
	LinkCount    int            `json:"linkCount"`
	ByTool       map[string]int `json:"byTool"`
	ByTag        map[string]int `json:"byTag"`
	ByDay        map[string]int `json:"byDay"`
}

func (c *InsightsCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}

	stats, err := st.Stats(context.Background())
	if err != nil {
		return loreerr.New(loreerr.KindStore, "insights", err)
	}
	tags, err := st.TagCounts(context.Background())
	if err != nil {
		return loreerr.New(loreerr.KindStore, "insights", err)
	}
	byDay, err := st.SessionsByDay(context.Background())
	if err != nil {
		return loreerr.New(loreerr.KindStore, "insights", err)
	}

	report := insightsReport{
		SessionCount: stats.SessionCount,
		MessageCount: stats.MessageCount,
		LinkCount:    stats.LinkCount,
		ByTool:       stats.ByTool,
		ByTag:        tags,
		ByDay:        byDay,
	}

	if c.Query != "" {
		data, err := json.Marshal(report)
		if err != nil {
			return loreerr.New(loreerr.KindUnknown, "insights", err)
		}
		var input interface{}
		if err := json.Unmarshal(data, &input); err != nil {
			return loreerr.New(loreerr.KindUnknown, "insights", err)
		}
		out, err := jqFilter(input, c.Query)
		if err != nil {
			return loreerr.New(loreerr.KindInput, "insights", err)
		}
		fmt.Println(out)
		return nil
	}

	fmt.Printf("Sessions: %d   Messages: %d   Links: %d\n\n", report.SessionCount, report.MessageCount, report.LinkCount)

	fmt.Println("By tool:")
	for _, k := range sortedKeys(report.ByTool) {
		fmt.Printf("  %-16s %d\n", k, report.ByTool[k])
	}

	if len(report.ByTag) > 0 {
		fmt.Println("\nTop tags:")
		for _, k := range sortedKeys(report.ByTag) {
			fmt.Printf("  %-16s %d\n", k, report.ByTag[k])
		}
	}

	if len(report.ByDay) > 0 {
		fmt.Println("\nActivity by day:")
		for _, k := range sortedKeys(report.ByDay) {
			fmt.Printf("  %-12s %d\n", k, report.ByDay[k])
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
