package google

import (
	"fmt"
	"strconv"
	"strings"

	"smartbudget/internal/ledger"
)

// parseValues converts a values matrix (as returned by the Sheets API) into
// a ledger table. Numbers are rendered without exponent so amounts and
// serial dates survive the round trip; empty trailing rows are dropped.
func parseValues(values [][]interface{}) ledger.Table {
	rows := make([][]string, 0, len(values))
	for _, row := range values {
		rows = append(rows, toStrings(row))
	}
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return ledger.NewTable(rows)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(x))
		}
	}
	return out
}

func toValues(t ledger.Table) [][]interface{} {
	out := make([][]interface{}, 0, t.Len()+1)
	out = append(out, toInterfaces(t.Header))
	for _, row := range t.Rows {
		out = append(out, toInterfaces(row))
	}
	return out
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
