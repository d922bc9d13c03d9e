package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavelanni/exambank/internal/catalog"
	"github.com/pavelanni/exambank/internal/export"
	"github.com/pavelanni/exambank/internal/llm"
	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/report"
	"github.com/pavelanni/exambank/internal/store"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every learner's attempt history as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.String("exam-id", "", "Exam identifier for output (required)")
	f.String("subject", "", "Subject name for output (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")

	_ = cmd.MarkFlagRequired("exam-id")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <username>",
		Short: "Print a learner's performance report",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.String("format", "text", "Output format (text, json, pdf)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("chrome-path", "", "Chrome executable for PDF output (default: search PATH)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import question files (JSON or YAML) into the bank",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	addCommonFlags(cmd.Flags())
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate questions with the configured LLM",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	addCommonFlags(f)
	addLLMFlags(f)
	f.String("mode", "question", "What to generate (question, paper, extract, worksheet)")
	f.String("topic", "", "Topic of a single question")
	f.String("subject", "", "Subject of an exam paper")
	f.String("document", "", "Source document (PDF, text or Markdown)")
	f.Int("count", 10, "Number of questions for paper and worksheet modes")
	f.Int("mcq-count", 5, "Number of multiple-choice questions in paper mode")
	f.String("difficulty", string(model.DifficultyMedium), "Paper difficulty (easy, medium, hard)")
	f.Bool("save", false, "Add the questions to the bank as pending review")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

// openOutput returns stdout for "" or "-", otherwise creates the file.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	w, err := openOutput(path)
	if err != nil {
		return err
	}
	defer w.Close()
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	learners, err := db.ExportAllAttempts()
	if err != nil {
		return fmt.Errorf("export attempts: %w", err)
	}
	for i := range learners {
		rep := report.Summarize(learners[i].Attempts)
		learners[i].AverageScore = rep.AverageScore
		learners[i].Strengths = rep.Strengths
		learners[i].Weaknesses = rep.Weaknesses
	}

	return writeJSON(v.GetString("output"), model.HistoryExport{
		ExamID:     v.GetString("exam-id"),
		Subject:    v.GetString("subject"),
		ExportedAt: time.Now().UTC(),
		Learners:   learners,
	})
}

func runReport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	u, err := db.GetUserByUsername(args[0])
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("no such user %q", args[0])
	}
	attempts, err := db.ListAttempts(u.ID)
	if err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}
	rep := report.Summarize(attempts)

	switch format := v.GetString("format"); format {
	case "json":
		return writeJSON(v.GetString("output"), rep)
	case "pdf":
		exp := export.New(export.NewChromeRenderer(v.GetString("chrome-path"), 0), nil, nil)
		data, err := exp.Report(cmd.Context(), export.LearnerReport{Learner: *u, Report: rep})
		if err != nil {
			return err
		}
		w, err := openOutput(v.GetString("output"))
		if err != nil {
			return err
		}
		defer w.Close()
		_, err = w.Write(data)
		return err
	case "text":
		w, err := openOutput(v.GetString("output"))
		if err != nil {
			return err
		}
		defer w.Close()
		return printReport(w, *u, rep)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func printReport(w io.Writer, u model.User, rep report.Report) error {
	fmt.Fprintf(w, "%s (%s)\n", u.DisplayName, u.Username)
	fmt.Fprintf(w, "Exams taken: %d\nAverage score: %.1f%%\n\n", rep.TotalExams, rep.AverageScore)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOPIC\tCORRECT\tTOTAL\tPERCENT\tCLASS")
	for _, t := range rep.Topics {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\t%s\n", t.Topic, t.Correct, t.Total, t.Percentage, t.Class)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nStrengths: %s\nWeaknesses: %s\n",
		strings.Join(rep.Strengths, ", "), strings.Join(rep.Weaknesses, ", "))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	cat := catalog.NewService(db, db)
	total := 0
	for _, path := range args {
		n, err := cat.ImportFile(path)
		if errors.Is(err, catalog.ErrAlreadyImported) {
			continue
		}
		if err != nil {
			return err
		}
		total += n
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions\n", total)
	return nil
}

func readDocument(path string) (*llm.Document, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	mimeType := "text/plain"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		mimeType = "application/pdf"
	case ".md":
		mimeType = "text/markdown"
	}
	return &llm.Document{Name: filepath.Base(path), MIMEType: mimeType, Data: data}, nil
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	gen, err := newGenerator(ctx, v)
	if err != nil {
		return err
	}
	if gen == nil {
		return fmt.Errorf("no LLM provider configured")
	}
	doc, err := readDocument(v.GetString("document"))
	if err != nil {
		return err
	}

	var qs []model.Question
	switch mode := v.GetString("mode"); mode {
	case "question":
		q, err := gen.GenerateQuestion(ctx, v.GetString("topic"), doc)
		if err != nil {
			return err
		}
		qs = []model.Question{q}
	case "paper":
		qs, err = gen.GenerateExamPaper(ctx, llm.PaperRequest{
			Subject:    v.GetString("subject"),
			Document:   doc,
			Count:      v.GetInt("count"),
			MCQCount:   v.GetInt("mcq-count"),
			Difficulty: model.Difficulty(v.GetString("difficulty")),
		})
	case "extract":
		qs, err = gen.ExtractQuestions(ctx, doc)
	case "worksheet":
		qs, err = gen.GenerateWorksheet(ctx, doc, v.GetInt("count"))
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return err
	}

	if v.GetBool("save") {
		db, err := store.New(v.GetString("db"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		added, err := catalog.NewService(db, db).AddGenerated(qs)
		if err != nil {
			return err
		}
		qs = added
		slog.Info("saved generated questions for review", "count", len(added))
	}
	return writeJSON(v.GetString("output"), qs)
}
