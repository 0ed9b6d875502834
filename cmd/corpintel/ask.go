package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/corpintel/internal/domain/evidence"
	logpkg "github.com/kailas-cloud/corpintel/internal/logger"
	"github.com/kailas-cloud/corpintel/internal/usecase/analysis"
)

var (
	askEntity   string
	askScenario string
	askSearch   string
	askJSON     bool

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question, or start an interactive session when none is given",
		RunE:  runAsk,
	}
)

func init() {
	askCmd.Flags().StringVar(&askEntity, "entity", "", "Company name or stock code")
	askCmd.Flags().StringVarP(&askScenario, "scenario", "s", "", "Scenario id or display name (see `corpintel scenarios`)")
	askCmd.Flags().StringVar(&askSearch, "search", "auto", "External search preference: auto, always, never")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full structured response as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	pref, err := evidence.ParsePreference(askSearch)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), envName, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := logpkg.ContextWithLogger(cmd.Context(), a.logger)
	sess := analysis.NewSession(a.cfg.Analysis.HistorySize)
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		return ask(ctx, a, sess, out, strings.Join(args, " "), pref)
	}

	fmt.Fprintln(out, "Interactive session. Type :history for past questions, :quit to exit.")
	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case ":quit", ":q", "exit", "quit":
			return nil
		case ":history":
			printHistory(out, sess)
			continue
		}
		if err := ask(ctx, a, sess, out, line, pref); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func ask(
	ctx context.Context, a *app, sess *analysis.Session, out io.Writer, q string, pref evidence.Preference,
) error {
	res, err := a.analysis.Analyze(ctx, sess, analysis.Request{
		Query:      q,
		Entity:     askEntity,
		Scenario:   askScenario,
		Preference: pref,
	})
	if err != nil {
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	printResult(out, res)
	return nil
}

func printResult(out io.Writer, res *analysis.Result) {
	r := res.Response
	if res.Scenario != nil {
		fmt.Fprintf(out, "\n[%s] %s\n", res.Scenario.DisplayName, res.Entity)
	}
	fmt.Fprintf(out, "\n%s\n", r.Summary)

	printList(out, "Key findings", r.KeyFindings)
	if r.RiskAssessment.RiskLevel != "" {
		fmt.Fprintf(out, "\nRisk level: %s\n", r.RiskAssessment.RiskLevel)
	}
	printList(out, "Identified risks", r.RiskAssessment.IdentifiedRisks)
	printList(out, "Recommendations", r.Recommendations)

	d := res.Decision
	fmt.Fprintf(out, "\nSources: %d local, %d web", res.Sources.Local, res.Sources.External)
	if d.ShouldSearch {
		fmt.Fprintf(out, " (searched: %s)", d.Type)
	}
	fmt.Fprintf(out, " in %.1fs\n", res.Duration.Seconds())
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(out, "  - %s\n", it)
	}
}

func printHistory(out io.Writer, sess *analysis.Session) {
	turns := sess.History()
	if len(turns) == 0 {
		fmt.Fprintln(out, "No questions yet.")
		return
	}
	for i, t := range turns {
		scen := string(t.Scenario)
		if scen == "" {
			scen = "-"
		}
		fmt.Fprintf(out, "%2d. %s [%s] %s\n", i+1, t.At.Format("15:04:05"), scen, t.Query)
	}
}
