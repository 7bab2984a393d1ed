package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Faint(true)
)

// Render writes the summary in the console format.
func Render(w io.Writer, inputPath string, s Summary) {
	fmt.Fprintln(w, headerStyle.Render("Batch results report"))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Input file:"), inputPath)

	if s.Scored == 0 {
		fmt.Fprintf(w, "No scored rows found (%d rows read).\n", s.Total)
		return
	}

	fmt.Fprintf(w, "%s %d / %d\n", labelStyle.Render("Scored rows:"), s.Scored, s.Total)
	fmt.Fprintf(w, "%s   %.3f\n", labelStyle.Render("Mean OCQ:"), s.MeanOCQ)
	fmt.Fprintf(w, "%s %.3f\n", labelStyle.Render("Median OCQ:"), s.MedianOCQ)
	fmt.Fprintf(w, "%s %.1f%%\n", labelStyle.Render("Safety violation rate:"), 100*s.ViolationRate)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("By use case:"))
	for _, g := range s.ByUseCase {
		fmt.Fprintf(w, "- %s: n=%d, mean_OCQ=%.3f, viol%%=%.1f\n",
			g.UseCase, g.N, g.MeanOCQ, 100*g.ViolationRate)
	}
}
