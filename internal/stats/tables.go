package stats

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"qrlsim/internal/aggregate"
	"qrlsim/internal/model"
)

// SummaryRow is one metric line of the run summary table.
type SummaryRow struct {
	Metric string
	Value  string
}

// SummaryRows renders the summary metrics; percentages carry one decimal.
// The cycle length row reports the number of windows.
func SummaryRows(res aggregate.Result, unit string) []SummaryRow {
	rows := []SummaryRow{
		{Metric: "Cycle Length", Value: fmt.Sprintf("%d %s", res.Windows, unit)},
	}
	for _, r := range []model.Reward{model.RewardUp, model.RewardDown, model.RewardFlat} {
		rc := res.RewardCount(r)
		rows = append(rows, SummaryRow{
			Metric: fmt.Sprintf("Rewards (%s)", r),
			Value:  fmt.Sprintf("%d (%.1f%%)", rc.Count, rc.Percent),
		})
	}
	rows = append(rows, SummaryRow{Metric: "Fidelity", Value: fmt.Sprintf("%.1f%%", res.Fidelity*100)})
	return rows
}

// WriteSummaryTeX writes the summary as a booktabs tabular.
func WriteSummaryTeX(w io.Writer, res aggregate.Result, unit string) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("\\begin{tabular}{cc}\n\\toprule\nMetric & Value \\\\\n\\midrule\n")
	for _, row := range SummaryRows(res, unit) {
		fmt.Fprintf(bw, "%s & %s \\\\\n", row.Metric, texEscapePercent(row.Value))
	}
	bw.WriteString("\\bottomrule\n\\end{tabular}")
	return bw.Flush()
}

func texEscapePercent(s string) string {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		if s[i] == '%' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// WriteErrorRateCSV writes delta_t,p_error,fidelity rows with a header.
func WriteErrorRateCSV(w io.Writer, rows []model.ErrorRateRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"delta_t", "p_error", "fidelity"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			formatFloat(row.DeltaT),
			formatFloat(row.PError),
			formatFloat(row.Fidelity),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteErrorRateDat writes space-separated "delta_t fidelity" pairs, no header.
func WriteErrorRateDat(w io.Writer, rows []model.ErrorRateRow) error {
	bw := bufio.NewWriter(w)
	for _, row := range rows {
		fmt.Fprintf(bw, "%s %s\n", formatFloat(row.DeltaT), formatFloat(row.Fidelity))
	}
	return bw.Flush()
}

// WriteCountsDat writes "bitstring count" lines in the given order.
func WriteCountsDat(w io.Writer, rows []model.HistogramRow) error {
	bw := bufio.NewWriter(w)
	for _, row := range rows {
		fmt.Fprintf(bw, "%s %d\n", row.Bitstring, row.Count)
	}
	return bw.Flush()
}

// ReadCountsDat parses the output of WriteCountsDat.
func ReadCountsDat(r io.Reader) ([]model.HistogramRow, error) {
	scanner := bufio.NewScanner(r)
	rows := make([]model.HistogramRow, 0, 16)
	line := 0
	for scanner.Scan() {
		line++
		var row model.HistogramRow
		if _, err := fmt.Sscanf(scanner.Text(), "%s %d", &row.Bitstring, &row.Count); err != nil {
			return nil, fmt.Errorf("counts line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, scanner.Err()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
