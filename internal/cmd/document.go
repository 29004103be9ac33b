package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pyscout/scout/internal/analyzer"
	"github.com/pyscout/scout/internal/config"
	"github.com/pyscout/scout/internal/dom"
	"github.com/pyscout/scout/internal/query"
	"github.com/pyscout/scout/internal/render"
)

func (a *app) newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render [file|url|-]",
		Short: "Parse a document and print it in the chosen format",
		Long: `Parse a document from a file, an http(s) URL or stdin and print it as a
nested JSON record, Markdown, indented markup, compact markup or plain text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if done, err := a.handleShowConfig(cmd); done {
				return err
			}
			doc, err := a.loadDocument(cmd.Context(), cmd.InOrStdin(), sourceArg(args, 0))
			if err != nil {
				return err
			}
			out, err := formatNode(doc.Root(), a.cfg)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func (a *app) newSelectCmd() *cobra.Command {
	var (
		attr  string
		first bool
	)
	cmd := &cobra.Command{
		Use:   "select <selector> [file|url|-]",
		Short: "Print the nodes matching a CSS selector",
		Long: `Select nodes with a CSS selector. Supported syntax: type selectors and *,
.class, #id, [attr] and [attr=value], joined by the descendant (whitespace)
and child (>) combinators. Matches are printed in document order.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if done, err := a.handleShowConfig(cmd); done {
				return err
			}
			doc, err := a.loadDocument(cmd.Context(), cmd.InOrStdin(), sourceArg(args, 1))
			if err != nil {
				return err
			}

			var sel *query.Selection
			if first {
				sel, err = query.SelectOne(doc.Root(), args[0])
			} else {
				sel, err = query.Select(doc.Root(), args[0])
			}
			if err != nil {
				return fmt.Errorf("invalid selector: %w", err)
			}

			w := cmd.OutOrStdout()
			if attr != "" {
				return writeAttrs(w, sel.Attrs(attr), a.cfg)
			}
			return writeSelection(w, sel, a.cfg)
		},
	}
	cmd.Flags().StringVarP(&attr, "attr", "a", "", "Print this attribute of each match instead of the node")
	cmd.Flags().BoolVar(&first, "first", false, "Stop at the first match")
	return cmd
}

// analysisReport is the analyze command's output
type analysisReport struct {
	Title     string                 `json:"title,omitempty"`
	Text      analyzer.TextReport    `json:"text"`
	Structure analyzer.PageStructure `json:"structure"`
	Semantic  analyzer.SemanticInfo  `json:"semantic"`
}

func (a *app) newAnalyzeCmd() *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "analyze [file|url|-]",
		Short: "Report text statistics, tag structure and semantic elements",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if done, err := a.handleShowConfig(cmd); done {
				return err
			}
			doc, err := a.loadDocument(cmd.Context(), cmd.InOrStdin(), sourceArg(args, 0))
			if err != nil {
				return err
			}

			root := doc.Root()
			sel := query.From([]dom.Node{root})
			if scope != "" {
				if sel, err = query.Select(root, scope); err != nil {
					return fmt.Errorf("invalid selector: %w", err)
				}
			} else if body, ok := root.Find(dom.Tag("body")); ok {
				sel = query.From([]dom.Node{body})
			}

			report := analysisReport{
				Text:      sel.AnalyzeText(),
				Structure: analyzer.AnalyzePageStructure(doc),
				Semantic:  analyzer.ExtractSemanticInfo(doc),
			}
			if title, ok := root.Find(dom.Tag("title")); ok {
				report.Title = title.GetText(" ", true)
			}

			w := cmd.OutOrStdout()
			if strings.ToLower(a.cfg.Format) == "text" {
				return writeAnalysisText(w, report)
			}
			return writeJSON(w, report, a.cfg.Indent)
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "Analyze only the text of nodes matching this selector")
	return cmd
}

// formatNode serializes n in the configured output format
func formatNode(n dom.Node, cfg *config.Config) (string, error) {
	switch strings.ToLower(cfg.Format) {
	case "markdown":
		return render.Markdown(n, render.MarkdownOptions{HeadingStyle: render.ParseHeadingStyle(cfg.HeadingStyle)}), nil
	case "pretty":
		return render.Pretty(n, cfg.Indent), nil
	case "html":
		return render.HTML(n) + "\n", nil
	case "text":
		return n.GetText(" ", true) + "\n", nil
	default:
		data, err := render.JSON(n, cfg.Indent)
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	}
}

func writeSelection(w io.Writer, sel *query.Selection, cfg *config.Config) error {
	if strings.ToLower(cfg.Format) == "json" {
		return writeJSON(w, query.Map(sel, render.ToRecord), cfg.Indent)
	}
	for i, n := range sel.Nodes() {
		out, err := formatNode(n, cfg)
		if err != nil {
			return err
		}
		if i > 0 && strings.ToLower(cfg.Format) == "markdown" {
			out = "\n" + out
		}
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return nil
}

func writeAttrs(w io.Writer, values []query.AttrValue, cfg *config.Config) error {
	if strings.ToLower(cfg.Format) == "json" {
		out := make([]*string, len(values))
		for i, v := range values {
			if v.Present {
				out[i] = &v.Value
			}
		}
		return writeJSON(w, out, cfg.Indent)
	}
	for _, v := range values {
		if !v.Present {
			continue
		}
		if _, err := fmt.Fprintln(w, v.Value); err != nil {
			return err
		}
	}
	return nil
}

func writeAnalysisText(w io.Writer, r analysisReport) error {
	var b strings.Builder
	if r.Title != "" {
		fmt.Fprintf(&b, "Title:        %s\n", r.Title)
	}
	fmt.Fprintf(&b, "Words:        %s (%s unique)\n", humanize.Comma(int64(r.Text.Words)), humanize.Comma(int64(r.Text.UniqueWords)))
	fmt.Fprintf(&b, "Sentences:    %s\n", humanize.Comma(int64(r.Text.Sentences)))
	fmt.Fprintf(&b, "Avg word:     %.2f chars\n", r.Text.AvgWordLength)
	fmt.Fprintf(&b, "Elements:     %s (max depth %d)\n", humanize.Comma(int64(r.Structure.Elements)), r.Structure.MaxDepth)
	fmt.Fprintf(&b, "Lists:        %d\n", len(r.Semantic.Lists))
	fmt.Fprintf(&b, "Tables:       %d\n", len(r.Semantic.Tables))
	for level := 1; level <= 6; level++ {
		for _, h := range r.Semantic.Headings[level] {
			fmt.Fprintf(&b, "%s %s\n", strings.Repeat("#", level), h)
		}
	}
	if len(r.Text.TopWords) > 0 {
		b.WriteString("Top words:\n")
		for _, wc := range r.Text.TopWords {
			fmt.Fprintf(&b, "  %-20s %d\n", wc.Word, wc.Count)
		}
	}
	for _, group := range []struct {
		name  string
		found []string
	}{
		{"Emails", r.Text.Entities.Emails},
		{"URLs", r.Text.Entities.URLs},
		{"Phones", r.Text.Entities.Phones},
	} {
		if len(group.found) > 0 {
			fmt.Fprintf(&b, "%s: %s\n", group.name, strings.Join(group.found, ", "))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
