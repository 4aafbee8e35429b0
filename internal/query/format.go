package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatOutcome renders an Outcome as stable text, used both for display
// and for audit capture.
func FormatOutcome(o *Outcome) string {
	if o.HasScalar {
		return formatCell(o.Scalar)
	}
	if len(o.Rows) == 0 {
		return "(no rows)"
	}

	widths := make([]int, len(o.Columns))
	for i, c := range o.Columns {
		widths[i] = len(c)
	}
	cells := make([][]string, len(o.Rows))
	for r, row := range o.Rows {
		cells[r] = make([]string, len(row))
		for i, v := range row {
			s := formatCell(v)
			cells[r][i] = s
			if i < len(widths) && len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	var b strings.Builder
	writeRow := func(vals []string) {
		for i, v := range vals {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(pad(v, widths[i]))
		}
		b.WriteByte('\n')
	}

	writeRow(o.Columns)
	for i, w := range widths {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	b.WriteByte('\n')
	for _, row := range cells {
		writeRow(row)
	}
	fmt.Fprintf(&b, "(%d rows)", len(o.Rows))
	return b.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
