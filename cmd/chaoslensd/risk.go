package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/chaoslens/internal/depgraph"
)

var rankCommand = &cli.Command{
	Name:  "rank",
	Usage: "Rank indexed files by chaos score",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "glob", Usage: "Restrict ranking to paths matching this glob", Value: "*"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum rows to return (0 = unlimited)", Value: 20},
		&cli.BoolFlag{Name: "ascending", Usage: "Sort ascending instead of descending"},
		&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
	},
	Action: func(c *cli.Context) error {
		st, err := openStore(c)
		if err != nil {
			return err
		}
		rows, err := st.RankByChaos(context.Background(), c.String("glob"), c.Int("limit"), !c.Bool("ascending"))
		if err != nil {
			return fmt.Errorf("rank failed: %w", err)
		}
		if c.Bool("json") {
			return json.NewEncoder(os.Stdout).Encode(rows)
		}
		for _, row := range rows {
			fmt.Printf("%.3f  %-6s  %s\n", row.Profile.ChaosScore, row.Profile.RiskClass, row.Path)
		}
		return nil
	},
}

var riskCommand = &cli.Command{
	Name:  "risk",
	Usage: "Scan the index for files whose combined risk (chaos + blast radius + churn) clears a threshold",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "glob", Usage: "Restrict the scan to paths matching this glob", Value: "*"},
		&cli.Float64Flag{Name: "min-risk", Usage: "Minimum combined risk score to report", Value: 0.2},
		&cli.IntFlag{Name: "limit", Usage: "Maximum rows to return (0 = unlimited)", Value: 20},
		&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
	},
	Action: func(c *cli.Context) error {
		st, err := openStore(c)
		if err != nil {
			return err
		}
		extractor := depgraph.NewRegexExtractor()
		graph := depgraph.New(extractor)
		composer := buildRiskComposer(st, graph)

		rows, err := composer.ScanCritical(context.Background(), c.String("glob"), c.Float64("min-risk"), c.Int("limit"))
		if err != nil {
			return fmt.Errorf("risk scan failed: %w", err)
		}
		if c.Bool("json") {
			return json.NewEncoder(os.Stdout).Encode(rows)
		}
		for _, row := range rows {
			fmt.Printf("%.3f  %-9s  chaos=%.3f blast=%d churn=%.3f  %s\n",
				row.Score, row.Class, row.Chaos, row.Blast, row.Churn, row.Path)
		}
		return nil
	},
}
