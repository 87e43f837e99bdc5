package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/lorehq/lore/internal/store"
)

// jqFilter compiles and runs a gojq expression against an arbitrary JSON-ish
// value, returning the first result pretty-printed. Used by the reporting
// commands to let an operator slice a stats payload without lore needing its
// own query language.
func jqFilter(input interface{}, expr string) (string, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return "", fmt.Errorf("jq: parse %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return "", fmt.Errorf("jq: compile %q: %w", expr, err)
	}

	iter := code.Run(input)
	var lines []string
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if e, ok := v.(error); ok {
			return "", fmt.Errorf("jq: %w", e)
		}
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("jq: encode result: %w", err)
		}
		lines = append(lines, string(out))
	}
	if len(lines) == 0 {
		return "null", nil
	}
	return strings.Join(lines, "\n"), nil
}

// statsToJQInput round-trips a Stats value through JSON so gojq can walk it
// as a generic map, the same approach used for dotted-path config queries.
func statsToJQInput(stats store.Stats) interface{} {
	data, err := json.Marshal(stats)
	if err != nil {
		return map[string]interface{}{}
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return map[string]interface{}{}
	}
	return v
}
