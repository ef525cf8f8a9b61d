package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"truthx/internal/metadata"
	"truthx/internal/report"
)

func renderReport(out io.Writer, rep report.Report, colorize bool) {
	lines := renderSectionHeader("Analysis", colorize)
	lines = append(lines,
		renderStatusLine("Risk", riskKind(rep.RiskLevel), fmt.Sprintf("%s (score %d)", rep.RiskLevel, rep.Score), colorize),
		renderStatusLine("Summary", statusInfo, rep.Summary, colorize),
		renderStatusLine("Models", statusInfo, rep.ModelsUsed, colorize),
	)
	if rep.CombinedConfidence != nil {
		lines = append(lines, renderStatusLine("Combined", statusInfo,
			fmt.Sprintf("%s (%.4f)", rep.OverallLabel, *rep.CombinedConfidence), colorize))
	}
	if rep.RequestID != "" {
		lines = append(lines, renderStatusLine("Request", statusInfo, rep.RequestID, colorize))
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))

	if rep.Metadata != nil {
		fmt.Fprintln(out)
		renderMetadata(out, *rep.Metadata, colorize)
	}

	if rep.Risk != nil && len(rep.Risk.Flags) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Join(renderSectionHeader("Flags", colorize), "\n"))
		rows := make([][]string, 0, len(rep.Risk.Flags))
		for _, flag := range rep.Risk.Flags {
			rows = append(rows, []string{
				paint(string(flag.Severity), statusKindColor(severityKind(flag.Severity)), colorize),
				flag.Label,
				flag.Detail,
			})
		}
		fmt.Fprintln(out, renderTable([]string{"Severity", "Flag", "Detail"}, rows, nil))
	}

	if v := rep.VideoAnalysis; v != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Join(renderSectionHeader("Video", colorize), "\n"))
		fmt.Fprintln(out, renderStatusLine("Verdict", statusInfo, fmt.Sprintf("%s (%.0f%%, %d frames)", v.Label, v.Confidence*100, v.Frames), colorize))
		if v.Error != "" {
			fmt.Fprintln(out, renderStatusLine("Error", statusWarn, v.Error, colorize))
		}
	}
	if a := rep.AudioAnalysis; a != nil {
		msg := a.Error
		kind := statusWarn
		if a.FakeProbability != nil {
			msg = fmt.Sprintf("%.0f%% synthetic", *a.FakeProbability*100)
			kind = statusInfo
		}
		fmt.Fprintln(out, renderStatusLine("Audio", kind, msg, colorize))
	}
	if t := rep.TextAnalysis; t != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Join(renderSectionHeader("Text", colorize), "\n"))
		fmt.Fprintln(out, renderStatusLine("Verdict", statusInfo,
			fmt.Sprintf("%s (%.0f%% confidence, ai probability %.2f)", t.Label, t.Confidence*100, t.AIProbability), colorize))
		if t.Error != "" {
			fmt.Fprintln(out, renderStatusLine("Error", statusWarn, t.Error, colorize))
		}
	}

	if len(rep.Drift) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Join(renderSectionHeader("Drift", colorize), "\n"))
		rows := make([][]string, 0, len(rep.Drift))
		for _, p := range rep.Drift {
			rows = append(rows, []string{strconv.Itoa(p.Offset) + "s", strconv.Itoa(p.Value), string(p.Source)})
		}
		fmt.Fprintln(out, renderTable([]string{"Offset", "Score", "Source"}, rows, []columnAlignment{alignRight, alignRight, alignLeft}))
	}

	if len(rep.RelatedArticles) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Join(renderSectionHeader("Related articles", colorize), "\n"))
		rows := make([][]string, 0, len(rep.RelatedArticles))
		for _, article := range rep.RelatedArticles {
			rows = append(rows, []string{
				fmt.Sprintf("%.3f", article.SimilarityScore),
				article.Title,
				article.URL,
			})
		}
		fmt.Fprintln(out, renderTable([]string{"Similarity", "Title", "URL"}, rows, []columnAlignment{alignRight}))
	}
}

func renderMetadata(out io.Writer, meta metadata.Metadata, colorize bool) {
	fmt.Fprintln(out, strings.Join(renderSectionHeader("Metadata", colorize), "\n"))
	rows := [][]string{
		{"File", meta.File.FileName},
		{"Source", string(meta.Source)},
		{"Container", meta.File.ContainerFormat},
		{"Duration", meta.File.DurationHuman},
		{"Size", fmt.Sprintf("%.2f MB", meta.File.SizeMB)},
		{"Bitrate", fmt.Sprintf("%d kb/s", meta.File.BitrateKbps)},
	}
	if v := meta.Video; v != nil {
		rows = append(rows,
			[]string{"Video codec", v.CodecShort},
			[]string{"Resolution", v.Resolution},
			[]string{"Frame rate", strconv.FormatFloat(v.FPS, 'f', -1, 64)},
		)
	}
	if a := meta.Audio; a != nil {
		rows = append(rows,
			[]string{"Audio codec", a.CodecShort},
			[]string{"Sample rate", fmt.Sprintf("%d Hz", a.SampleRateHz)},
		)
	}
	for _, key := range []string{metadata.TagEncoder, metadata.TagCameraDevice, metadata.TagCreationTime} {
		if value := meta.Tags.Get(key); value != "" {
			rows = append(rows, []string{key, value})
		}
	}
	if meta.Error != "" {
		rows = append(rows, []string{"Error", meta.Error})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}
