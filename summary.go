package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"sjsage522/listingscout/internal/listing"
	"sjsage522/listingscout/internal/scoring"
	"sjsage522/listingscout/services/worker"
)

const topPicks = 3

// printSummary reports a run and the best laptops by each score
func printSummary(out io.Writer, result worker.RunResult) {
	fmt.Fprintf(out, "Collected %d listings, %d new (%s)\n", len(result.All), len(result.New), result.Duration.Round(time.Second))

	skipped := make([]string, 0, len(result.Skipped))
	for source, err := range result.Skipped {
		skipped = append(skipped, fmt.Sprintf("  %s: %v", source, err))
	}
	sort.Strings(skipped)
	if len(skipped) > 0 {
		fmt.Fprintln(out, "Skipped sources:")
		fmt.Fprintln(out, strings.Join(skipped, "\n"))
	}

	printTop(out, "Top 3 Business Picks (Daily Driver):", result.All, listing.ScoreBusiness)
	printTop(out, "Top 3 Server Picks (Home Lab):", result.All, listing.ScoreServer)

	for _, l := range result.New {
		if l.Kind != listing.KindJob {
			continue
		}
		fmt.Fprintf(out, "NEW %s | %s | %s | %s\n", l.Company, l.Title, strings.Join(l.Tags, ", "), l.CanonicalURL)
	}
}

func printTop(out io.Writer, heading string, all []listing.Listing, score string) {
	top := scoring.TopN(all, score, topPicks)
	if len(top) == 0 {
		return
	}
	fmt.Fprintln(out, heading)
	for i, l := range top {
		price := "Price N/A"
		if l.Price != nil {
			price = fmt.Sprintf("$%.2f", l.Price.Amount)
		}
		fmt.Fprintf(out, "%d. %s | %s | %s | %s (%s=%.2f)\n", i+1, l.Title, price, l.Status, l.CanonicalURL, score, l.Scores[score])
	}
}

// printSmoke reports the smoke test and whether every source produced cards
func printSmoke(out io.Writer, results []worker.SmokeResult) bool {
	ok := true
	for _, r := range results {
		switch {
		case r.Err != nil:
			ok = false
			fmt.Fprintf(out, "FAIL %-13s %v\n", r.Source, r.Err)
		case r.Cards == 0:
			ok = false
			fmt.Fprintf(out, "EMPTY %-12s no strategy matched page 1\n", r.Source)
		default:
			fmt.Fprintf(out, "OK   %-13s %d cards via %s\n", r.Source, r.Cards, r.Strategy)
		}
	}
	return ok
}

// runUI reads commands line by line: an empty line runs a pass, q quits
func runUI(ctx context.Context, w *worker.Worker, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "Press Enter to run a pass, q to quit.\n> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "":
			result, err := w.RunOnce(ctx)
			if err != nil {
				fmt.Fprintf(out, "run failed: %v\n", err)
			} else {
				printSummary(out, result)
			}
		case "q", "quit", "exit":
			return
		default:
			fmt.Fprintln(out, "unknown command")
		}
		fmt.Fprint(out, "> ")
	}
}
