package metrics

import (
	"sort"
	"strconv"
)

// BreakdownRow represents the aggregated count for one outcome class/detail pair.
type BreakdownRow struct {
	Class  Class
	Detail string
	Count  int
}

// breakdownDetail labels an outcome inside its class bucket: the status code
// for HTTP outcomes, the transport reason otherwise.
func breakdownDetail(o Outcome) string {
	if o.Class == ClassTransport {
		if o.Reason != "" {
			return o.Reason
		}
		return "transport error"
	}
	return strconv.Itoa(o.Status)
}

// FlattenBreakdown converts a nested class->detail map into a sorted slice of BreakdownRow rows.
// Rows are sorted by descending count, then by class/detail for stability.
func FlattenBreakdown(buckets map[Class]map[string]int) []BreakdownRow {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]BreakdownRow, 0)
	for class, details := range buckets {
		for detail, count := range details {
			rows = append(rows, BreakdownRow{Class: class, Detail: detail, Count: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			if rows[i].Class == rows[j].Class {
				return rows[i].Detail < rows[j].Detail
			}
			return rows[i].Class < rows[j].Class
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
