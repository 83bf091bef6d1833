package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kailas-cloud/topicrag/internal/version"
	topicrag "github.com/kailas-cloud/topicrag/pkg/sdk"
)

var errNoDataset = errors.New("--dataset is required (or TOPICRAG_DATASET)")

func newTopicsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List the distinct topics of a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, opts := datasetFlags(v)
			if path == "" {
				return errNoDataset
			}
			report, err := topicrag.Inspect(cmd.Context(), path, opts)
			if err != nil {
				return err //nolint:wrapcheck // already prefixed by the SDK
			}
			out := cmd.OutOrStdout()
			for _, t := range report.Topics {
				fmt.Fprintln(out, t)
			}
			return nil
		},
	}
}

func newInspectCmd(v *viper.Viper) *cobra.Command {
	var showRows bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show how a dataset builds: kept rows, dimension, dropped rows by reason",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, opts := datasetFlags(v)
			if path == "" {
				return errNoDataset
			}
			report, err := topicrag.Inspect(cmd.Context(), path, opts)
			if err != nil {
				return err //nolint:wrapcheck // already prefixed by the SDK
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "rows\t%d\n", report.TotalRows)
			fmt.Fprintf(tw, "kept\t%d\n", report.KeptRows)
			fmt.Fprintf(tw, "dimension\t%d\n", report.Dimension)
			fmt.Fprintf(tw, "topics\t%d\n", len(report.Topics))

			reasons := make([]string, 0, len(report.Dropped))
			for r := range report.Dropped {
				reasons = append(reasons, r)
			}
			sort.Strings(reasons)
			for _, r := range reasons {
				fmt.Fprintf(tw, "dropped %s\t%d\n", r, report.Dropped[r])
			}
			if showRows {
				for _, is := range report.Issues {
					fmt.Fprintf(tw, "row %d\t%s\t%s\t%s\n", is.Row, is.ID, is.Reason, is.Error)
				}
			}
			return tw.Flush() //nolint:wrapcheck // terminal write
		},
	}
	cmd.Flags().BoolVar(&showRows, "rows", false, "list every dropped row")
	return cmd
}

func newQueryCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Embed a query and print the most similar passages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, opts := datasetFlags(v)
			if path == "" {
				return errNoDataset
			}
			if v.GetString("model") == "" {
				return errors.New("--model is required (or TOPICRAG_MODEL)")
			}

			clientOpts := []topicrag.Option{
				topicrag.WithDataset(path, opts),
				topicrag.WithEmbedder(topicrag.NewOpenAIEmbedder(topicrag.OpenAIConfig{
					APIKey:     v.GetString("api-key"),
					BaseURL:    v.GetString("base-url"),
					Model:      v.GetString("model"),
					Dimensions: v.GetInt("dimensions"),
				})),
				topicrag.WithQueryInstruction(v.GetString("instruction")),
			}
			if v.GetBool("verbose") {
				clientOpts = append(clientOpts, topicrag.WithLogger(
					slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
				))
			}

			client, err := topicrag.New(cmd.Context(), clientOpts...)
			if err != nil {
				return err //nolint:wrapcheck // already prefixed by the SDK
			}

			res, err := client.Retrieve(cmd.Context(), strings.Join(args, " "), v.GetString("topic"), v.GetInt("top-k"))
			if err != nil {
				return fmt.Errorf("topicrag: %w", err)
			}
			printRetrieval(cmd, res, v.GetInt("width"))
			return nil
		},
	}

	f := cmd.Flags()
	f.String("topic", "", "restrict to a topic; unknown topics search everything")
	f.Int("top-k", 5, "number of passages")
	f.String("api-key", "", "embedding API key")
	f.String("base-url", "", "OpenAI-compatible base URL")
	f.String("model", "", "embedding model that produced the corpus vectors")
	f.Int("dimensions", 0, "requested embedding dimensions (0 = model default)")
	f.String("instruction", "", "prefix prepended to the query before embedding")
	f.Int("width", 120, "truncate passage text to this many characters (0 = no limit)")
	f.BoolP("verbose", "v", false, "log SDK operations to stderr")
	_ = v.BindPFlags(f)
	return cmd
}

func printRetrieval(cmd *cobra.Command, res topicrag.Retrieval, width int) {
	out := cmd.OutOrStdout()
	if res.FallbackUsed {
		fmt.Fprintln(out, "# topic not found, searched all topics")
	}
	for i, r := range res.Results {
		content := strings.Join(strings.Fields(r.Content), " ")
		if width > 0 {
			if runes := []rune(content); len(runes) > width {
				content = string(runes[:width]) + "…"
			}
		}
		fmt.Fprintf(out, "%2d. %.4f  [%s] %s\n    %s\n", i+1, r.Score, r.Topic, r.ID, content)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "topicragctl", version.String())
		},
	}
}
