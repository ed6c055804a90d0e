package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	appI18n "github.com/pavelanni/tubequiz/internal/i18n"
	"github.com/pavelanni/tubequiz/internal/model"
	"github.com/pavelanni/tubequiz/internal/quiz"
)

func takeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "take <youtube-url>",
		Short: "Take a quiz in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runTake,
	}
	f := cmd.Flags()
	f.StringP("output", "o", "", "Write the graded session as JSON to this file (- for stdout)")
	addQuizFlags(f)
	addLLMFlags(f)
	addTranscriptFlags(f)
	addLogFlags(f)
	return cmd
}

func runTake(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx = appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(lang))

	completer, err := buildCompleter(ctx, v)
	if err != nil {
		return err
	}
	resolver, closeCache, err := buildResolver(ctx, v)
	if err != nil {
		return err
	}
	defer closeCache()

	out := cmd.OutOrStdout()
	svc := quiz.NewService(resolver, quiz.NewGenerator(completer, v.GetInt("num-mcq"), v.GetInt("num-text")))
	sess := quiz.NewSession()
	err = svc.Start(ctx, sess, args[0], func(st quiz.Stage) {
		fmt.Fprintln(out, appI18n.T(ctx, stageMessageID(st)))
	})
	if err != nil {
		return err
	}

	t := &terminalQuiz{ctx: ctx, in: bufio.NewScanner(cmd.InOrStdin()), out: out}
	if err := t.run(sess, quiz.NewGrader(completer)); err != nil {
		return err
	}

	return writeExport(out, v.GetString("output"), sess.Snapshot().Export())
}

func stageMessageID(st quiz.Stage) string {
	switch st {
	case quiz.StageAnalyzing:
		return "StageAnalyzing"
	case quiz.StageTranscript:
		return "StageTranscript"
	case quiz.StageGenerating:
		return "StageGenerating"
	default:
		return "StageDone"
	}
}

// terminalQuiz asks every question on out, records the answers read from in,
// submits, and prints the review.
type terminalQuiz struct {
	ctx context.Context
	in  *bufio.Scanner
	out io.Writer
}

func (t *terminalQuiz) readLine() (string, bool) {
	if !t.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(t.in.Text()), true
}

func (t *terminalQuiz) run(sess *quiz.Session, scorer quiz.Scorer) error {
	q := sess.Snapshot().Quiz
	if q == nil {
		return quiz.ErrNoQuiz
	}

	if len(q.MCQs) > 0 {
		fmt.Fprintf(t.out, "\n%s\n", appI18n.T(t.ctx, "MCQSection"))
	}
mcqs:
	for i, m := range q.MCQs {
		fmt.Fprintf(t.out, "\n%s %s\n", appI18n.Td(t.ctx, "QuestionN", map[string]any{"N": i + 1}), m.Question)
		for j, opt := range m.Options {
			fmt.Fprintf(t.out, "  %d) %s\n", j+1, opt)
		}
		for {
			fmt.Fprint(t.out, appI18n.Td(t.ctx, "ChooseOption", map[string]any{"N": len(m.Options)}))
			line, ok := t.readLine()
			if !ok {
				break mcqs
			}
			if line == "" {
				break
			}
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > len(m.Options) {
				fmt.Fprintln(t.out, appI18n.Td(t.ctx, "InvalidChoice", map[string]any{"N": len(m.Options)}))
				continue
			}
			if err := sess.RecordMCQResponse(i, m.Options[n-1]); err != nil {
				return err
			}
			break
		}
	}

	if len(q.TextQuestions) > 0 {
		fmt.Fprintf(t.out, "\n%s\n", appI18n.T(t.ctx, "TextSection"))
	}
	for i, tq := range q.TextQuestions {
		fmt.Fprintf(t.out, "\n%s %s\n", appI18n.Td(t.ctx, "QuestionN", map[string]any{"N": i + 1}), tq.Question)
		fmt.Fprint(t.out, appI18n.T(t.ctx, "EnterAnswer"))
		line, ok := t.readLine()
		if !ok {
			break
		}
		// A blank line is a recorded empty answer, graded as no answer.
		if err := sess.RecordTextResponse(i, line); err != nil {
			return err
		}
	}
	if err := t.in.Err(); err != nil {
		return fmt.Errorf("read answers: %w", err)
	}

	if _, err := sess.Submit(t.ctx, scorer); err != nil && !errors.Is(err, quiz.ErrAlreadySubmitted) {
		return err
	}
	t.printResults(sess.Snapshot().Export())
	return nil
}

func (t *terminalQuiz) printResults(s model.SessionExport) {
	sc := *s.Score
	fmt.Fprintf(t.out, "\n%s\n", appI18n.T(t.ctx, "QuizResults"))
	fmt.Fprintln(t.out, appI18n.Td(t.ctx, "YourScore", map[string]any{"Score": int(sc.TotalScore)}))
	fmt.Fprintln(t.out, appI18n.Td(t.ctx, "ScoreBreakdown", map[string]any{
		"Correct": sc.MCQCorrect,
		"Total":   sc.MCQTotal,
		"Text":    int(sc.TextScore),
	}))

	for i, m := range s.Quiz.MCQs {
		fmt.Fprintf(t.out, "\n%s %s\n", appI18n.Td(t.ctx, "QuestionN", map[string]any{"N": i + 1}), m.Question)
		chosen, answered := s.MCQResponses[strconv.Itoa(i)]
		for _, opt := range m.Options {
			switch {
			case opt == m.Answer:
				fmt.Fprintf(t.out, "  ✓ %s %s\n", opt, appI18n.T(t.ctx, "CorrectAnswerMark"))
			case answered && opt == chosen:
				fmt.Fprintf(t.out, "  ✗ %s %s\n", opt, appI18n.T(t.ctx, "YourAnswerMark"))
			default:
				fmt.Fprintf(t.out, "    %s\n", opt)
			}
		}
		if !answered {
			fmt.Fprintf(t.out, "  %s\n", appI18n.T(t.ctx, "NotAnswered"))
		}
	}

	for i, tq := range s.Quiz.TextQuestions {
		key := strconv.Itoa(i)
		fmt.Fprintf(t.out, "\n%s %s\n", appI18n.Td(t.ctx, "QuestionN", map[string]any{"N": i + 1}), tq.Question)
		fb, ok := s.TextFeedback[key]
		if !ok {
			fb = model.Feedback{Feedback: appI18n.T(t.ctx, "NotEvaluated")}
		}
		fmt.Fprintf(t.out, "  %s [%s]\n  %s\n",
			appI18n.Td(t.ctx, "FeedbackScore", map[string]any{"Score": fb.Score}),
			model.FeedbackBand(fb.Score), fb.Feedback)
		if tq.Answer != nil {
			fmt.Fprintf(t.out, "  %s: %s\n", appI18n.T(t.ctx, "ReferenceAnswer"), *tq.Answer)
		}
	}
}

// writeExport writes e as indented JSON to outPath, or to stdout when
// outPath is "-". An empty outPath writes nothing.
func writeExport(stdout io.Writer, outPath string, e model.SessionExport) error {
	if outPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if outPath == "-" {
		w = stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}
