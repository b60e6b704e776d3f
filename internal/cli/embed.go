package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"localrag/internal/embedding"
	"localrag/internal/similarity"
)

type embedOutput struct {
	Text      string    `json:"text"`
	Embedder  string    `json:"embedder"`
	Dimension int       `json:"dimension"`
	Embedding []float64 `json:"embedding"`
}

func newEmbedCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "embed TEXT...",
		Short: "Print the embedding of each argument as a JSON line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			emb, err := a.embedder()
			if err != nil {
				return err
			}
			vectors, err := embedding.EmbedAll(cmd.Context(), emb, args, a.cfg.Search.Workers)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for i, v := range vectors {
				if err := enc.Encode(embedOutput{Text: args[i], Embedder: emb.Name(), Dimension: len(v), Embedding: v}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newSimilarityCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "similarity A B",
		Short: "Print the cosine similarity of two texts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			emb, err := a.embedder()
			if err != nil {
				return err
			}
			vectors, err := embedding.EmbedAll(cmd.Context(), emb, args, 2)
			if err != nil {
				return err
			}
			score, err := similarity.CosineSimilarity(vectors[0], vectors[1])
			if err != nil {
				return err
			}
			if math.IsNaN(score) {
				a.log.Warn("similarity undefined for empty text")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.6f\n", score)
			return nil
		},
	}
}

func newExpandCommand(opts *globalOptions) *cobra.Command {
	var num int
	cmd := &cobra.Command{
		Use:   "expand QUERY...",
		Short: "Print the query followed by model-generated variations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("num") {
				a.cfg.Expander.NumVariations = num
			}
			variations := a.expander().ExpandQuery(cmd.Context(), strings.Join(args, " "))
			for _, v := range variations {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&num, "num", "n", 0, "number of variations including the query (2-5, 1 disables)")
	return cmd
}
