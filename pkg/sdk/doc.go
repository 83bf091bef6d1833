// Package topicrag embeds topic-aware passage retrieval in a Go program.
//
// A Client loads a pre-embedded corpus (xlsx, csv or parquet with id,
// content, topic and embedding columns), embeds queries through the
// configured Embedder and ranks passages by cosine similarity. A topic
// filter narrows the search; an unknown or empty topic falls back to the
// full corpus.
//
//	emb := topicrag.NewOpenAIEmbedder(topicrag.OpenAIConfig{
//	    APIKey:  os.Getenv("GEMINI_API_KEY"),
//	    BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
//	    Model:   "text-embedding-004",
//	})
//	client, _ := topicrag.New(ctx,
//	    topicrag.WithDataset("math.xlsx", topicrag.DatasetOptions{}),
//	    topicrag.WithEmbedder(emb),
//	)
//	res, _ := client.Retrieve(ctx, "giải phương trình bậc hai", "Đại số", 5)
//	for _, r := range res.Results {
//	    fmt.Println(r.Score, r.ID, r.Topic)
//	}
package topicrag
