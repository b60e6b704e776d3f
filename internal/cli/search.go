package cli

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"localrag/internal/domain"
	"localrag/internal/tui"
)

func newSearchCommand(opts *globalOptions) *cobra.Command {
	var (
		query string
		topK  int
	)
	cmd := &cobra.Command{
		Use:   "search FILE...",
		Short: "Index text files and search them",
		Long: `Index the given .txt files (glob patterns allowed) and open an interactive
search screen. With --query the search runs once and results are printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			stats, err := svc.IngestDocuments(ctx, args)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			if !cmd.Flags().Changed("top-k") {
				topK = a.cfg.Search.TopK
			}

			if query != "" {
				res, err := svc.Query(ctx, query, topK)
				if err != nil {
					return err
				}
				printResults(cmd.OutOrStdout(), res)
				return nil
			}

			summary := fmt.Sprintf("Indexed %d chunks from %d documents", stats.Chunks, stats.Documents)
			p := tea.NewProgram(tui.New(ctx, svc, summary, topK), tea.WithContext(ctx))
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "run a single query and print the results")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 10, "number of results")
	return cmd
}

func printResults(w io.Writer, res domain.QueryResult) {
	if len(res.Variations) > 1 {
		fmt.Fprintf(w, "Variations: %s\n", strings.Join(res.Variations[1:], " | "))
	}
	if len(res.Results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for i, r := range res.Results {
		fmt.Fprintf(w, "%d. [%.3f] %s\n", i+1, r.Score, r.Chunk.Text)
	}
}
