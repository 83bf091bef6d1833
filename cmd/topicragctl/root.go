package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	topicrag "github.com/kailas-cloud/topicrag/pkg/sdk"
)

// envPrefix scopes environment overrides, e.g. TOPICRAG_DATASET.
const envPrefix = "TOPICRAG"

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "topicragctl",
		Short:        "Inspect topic-tagged corpora and run retrieval queries",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("dataset", "", "dataset file (xlsx, csv or parquet)")
	flags.String("format", "auto", "dataset format: auto, xlsx, csv, parquet")
	flags.String("sheet", "", "xlsx sheet name (default: first sheet)")
	flags.String("id-column", "", "id column header (default \"ID\")")
	flags.String("content-column", "", "content column header (default \"Nội dung\")")
	flags.String("topic-column", "", "topic column header (default \"Chủ đề\")")
	flags.String("embedding-column", "", "embedding column header (default \"Embedding_MathBERT\")")
	_ = v.BindPFlags(flags)

	root.AddCommand(
		newTopicsCmd(v),
		newInspectCmd(v),
		newQueryCmd(v),
		newVersionCmd(),
	)
	return root
}

func datasetFlags(v *viper.Viper) (string, topicrag.DatasetOptions) {
	return v.GetString("dataset"), topicrag.DatasetOptions{
		Format: v.GetString("format"),
		Sheet:  v.GetString("sheet"),
		Columns: topicrag.Columns{
			ID:        v.GetString("id-column"),
			Content:   v.GetString("content-column"),
			Topic:     v.GetString("topic-column"),
			Embedding: v.GetString("embedding-column"),
		},
	}
}
