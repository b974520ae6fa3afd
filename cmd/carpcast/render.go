package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/carpcast/internal/forecast"
	"github.com/lox/carpcast/internal/models"
	"github.com/lox/carpcast/internal/scoring"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	tierStyles = map[models.Recommendation]lipgloss.Style{
		models.RecommendationExcellent: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		models.RecommendationGood:      lipgloss.NewStyle().Foreground(lipgloss.Color("113")),
		models.RecommendationRegular:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		models.RecommendationPoor:      lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		models.RecommendationUnknown:   dimStyle,
	}
)

func tier(r models.Recommendation, text string) string {
	if s, ok := tierStyles[r]; ok {
		return s.Render(text)
	}
	return text
}

func renderResult(w io.Writer, res *forecast.Result) error {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s, %d hours", res.Species.Label(), len(res.Points))))
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("run %s", res.RunID)))
	fmt.Fprintln(w)

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-20s %5s  %-10s %5s %5s %5s %6s  %s",
		"TIME", "SCORE", "TIER", "METEO", "ASTRO", "CONF", "WATER", "NOTES")))
	for _, p := range res.Points {
		water := "-"
		if p.WaterTemp != nil {
			water = fmt.Sprintf("%.1f", *p.WaterTemp)
		}
		notes := strings.Join(p.QualityFlags, ",")
		if p.Failed {
			notes = strings.TrimPrefix(notes+",scoring failed", ",")
		}
		score := p.Score
		fmt.Fprintf(w, "%-20s %5s  %-10s %5d %5d %5.2f %6s  %s\n",
			p.Time,
			tier(score.Recommendation, fmt.Sprintf("%5d", score.Overall)),
			tier(score.Recommendation, fmt.Sprintf("%-10s", score.Recommendation)),
			score.Breakdown.Subscores.Meteo,
			score.Breakdown.Subscores.Astro,
			score.Confidence,
			water,
			dimStyle.Render(notes),
		)
	}
	fmt.Fprintln(w)

	if err := renderWindows(w, "Best windows", res.BestWindows); err != nil {
		return err
	}
	return renderWindows(w, "Best windows today", res.BestWindowsToday)
}

func renderWindows(w io.Writer, title string, windows []models.BestWindow) error {
	fmt.Fprintln(w, headerStyle.Render(title))
	if len(windows) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("  none"))
		return err
	}
	for _, bw := range windows {
		r := scoring.RecommendationFor(float64(bw.Score))
		if _, err := fmt.Fprintf(w, "  %s -> %s  %s  %s\n", bw.Start, bw.End,
			tier(r, fmt.Sprintf("%3d", bw.Score)), dimStyle.Render(bw.Reason)); err != nil {
			return err
		}
	}
	return nil
}

func renderWaterTemp(w io.Writer, series []models.WeatherData, estimated []float64) error {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-20s %6s %6s", "TIME", "AIR", "WATER")))
	for i, h := range series {
		if _, err := fmt.Fprintf(w, "%-20s %6.1f %6.2f\n", h.Time, h.Temperature, estimated[i]); err != nil {
			return err
		}
	}
	return nil
}
