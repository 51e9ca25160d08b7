// Package plantsearch embeds the plant semantic search core in-process.
//
// A Client owns one corpus: plant records, their embeddings and the keyword
// tokens used for boosting. The corpus is built on first use (or by Load) from
// static records or a content provider, and optionally persisted to a snapshot
// file so later processes skip the embedding pass.
//
//	client, _ := plantsearch.New(ctx,
//	    plantsearch.WithRecords(plants...),
//	    plantsearch.WithLocalEmbedder(384),
//	    plantsearch.WithSnapshotFile("data/snapshot.json"),
//	)
//	defer client.Close()
//
//	hits, _ := client.Search(ctx, "remedy for skin problems", 5)
//	for _, h := range hits {
//	    fmt.Println(h.Plant.CommonName(), h.Score)
//	}
//
// Hosted models are used through WithHuggingFace or any Embedder passed to
// WithEmbedder. Failed embedding calls during a build degrade to zero vectors;
// such a corpus is served but never written to the snapshot.
package plantsearch
