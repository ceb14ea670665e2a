package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mangadrop/internal/content"
	mdlanguage "mangadrop/internal/language"
)

type seriesJSON struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Demographic string       `json:"demographic,omitempty"`
	Status      string       `json:"status,omitempty"`
	Year        string       `json:"year,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Volumes     []volumeJSON `json:"volumes"`
}

type volumeJSON struct {
	Title      string   `json:"title"`
	CoverFound bool     `json:"cover_found"`
	Chapters   []string `json:"chapters"`
}

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "series SERIES_ID",
		Short: "Show a series and the volumes and chapters available for the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := ctx.resolver().Series(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, toSeriesJSON(series))
			}
			renderSeries(cmd, series, ctx.config.MangaDex.Language)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func toSeriesJSON(series content.Series) seriesJSON {
	out := seriesJSON{
		ID:          series.ID,
		Title:       series.Title,
		Description: series.Description,
		Demographic: series.Demographic,
		Status:      series.Status,
		Year:        series.Year,
		Tags:        series.Tags,
		Volumes:     make([]volumeJSON, 0, len(series.Volumes)),
	}
	for _, v := range series.Volumes {
		chapters := make([]string, 0, len(v.Chapters))
		for _, c := range v.Chapters {
			chapters = append(chapters, c.Title)
		}
		out.Volumes = append(out.Volumes, volumeJSON{Title: v.Title, CoverFound: v.Cover.Found, Chapters: chapters})
	}
	return out
}

func renderSeries(cmd *cobra.Command, series content.Series, lang string) {
	out := cmd.OutOrStdout()
	title := cases.Title(language.English)

	fmt.Fprintln(out, series.Title)
	var facts []string
	if series.Demographic != "" {
		facts = append(facts, title.String(series.Demographic))
	}
	if series.Status != "" {
		facts = append(facts, title.String(series.Status))
	}
	if series.Year != "" {
		facts = append(facts, series.Year)
	}
	facts = append(facts, mdlanguage.DisplayName(lang))
	if len(facts) > 0 {
		fmt.Fprintln(out, strings.Join(facts, " · "))
	}
	if len(series.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(series.Tags, ", "))
	}
	if series.Description != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, series.Description)
	}
	fmt.Fprintln(out)

	if len(series.Volumes) == 0 {
		fmt.Fprintln(out, "No chapters are available in the configured language")
		return
	}
	rows := make([][]string, 0, len(series.Volumes))
	for _, v := range series.Volumes {
		rows = append(rows, []string{v.Title, fmt.Sprint(len(v.Chapters)), chapterRange(v.Chapters), yesNo(v.Cover.Found)})
	}
	fmt.Fprintln(out, renderTable([]column{col("Volume"), num("Chapters"), col("Range"), col("Cover")}, rows))
}

func chapterRange(chapters []content.Chapter) string {
	switch len(chapters) {
	case 0:
		return ""
	case 1:
		return chapters[0].Title
	default:
		return chapters[0].Title + " - " + chapters[len(chapters)-1].Title
	}
}
