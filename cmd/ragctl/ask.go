package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question over the indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().Int("top-k", 0, "number of chunks to retrieve (0 = server default)")
	askCmd.Flags().String("document-id", "", "restrict retrieval to one document")
	askCmd.Flags().String("source", "", "restrict retrieval to one source")
	askCmd.Flags().String("symbol", "", "restrict retrieval to one symbol")
	askCmd.Flags().Bool("sources", false, "print retrieved sources after the answer")
}

func runAsk(cmd *cobra.Command, args []string) error {
	topK, _ := cmd.Flags().GetInt("top-k")
	documentID, _ := cmd.Flags().GetString("document-id")
	source, _ := cmd.Flags().GetString("source")
	symbol, _ := cmd.Flags().GetString("symbol")
	showSources, _ := cmd.Flags().GetBool("sources")

	payload := map[string]any{
		"question":    args[0],
		"top_k":       topK,
		"document_id": documentID,
		"source":      source,
		"symbol":      symbol,
	}

	var out struct {
		Answer  string `json:"answer"`
		Sources []struct {
			Title       string  `json:"title"`
			Section     string  `json:"section"`
			ChunkID     string  `json:"chunkId"`
			Score       float32 `json:"score"`
			TextPreview string  `json:"textPreview"`
		} `json:"sources"`
	}
	if err := postJSON(cmd.Context(), newClient(), "/v1/rag/answer", payload, &out); err != nil {
		return err
	}

	fmt.Println(out.Answer)
	if showSources {
		fmt.Println()
		for i, src := range out.Sources {
			fmt.Printf("[%d] %s (%s) score=%.3f\n", i+1, src.Title, src.ChunkID, src.Score)
		}
	}
	return nil
}
