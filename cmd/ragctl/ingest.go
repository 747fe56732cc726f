package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file-or-dir>",
	Short: "Ingest documents from text files",
	Long: `Ingest one file, or every .txt and .md file under a directory.

The document id defaults to the file name without extension; --id
overrides it for single-file ingests. Bulk ingests are rate limited
with --rps to avoid saturating the embedding backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("id", "", "document id (single file only; defaults to file name)")
	ingestCmd.Flags().String("source", "manual", "source label stored with every chunk")
	ingestCmd.Flags().String("symbol", "", "ticker symbol metadata")
	ingestCmd.Flags().String("title", "", "document title metadata (defaults to file name)")
	ingestCmd.Flags().String("source-url", "", "source URL metadata")
	ingestCmd.Flags().Int("chunk-size", 0, "chunk size in characters (0 = server default)")
	ingestCmd.Flags().Int("chunk-overlap", -1, "chunk overlap in characters (-1 = server default)")
	ingestCmd.Flags().Float64("rps", 1, "max ingest requests per second for bulk runs")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	files := []string{path}
	if info.IsDir() {
		files, err = collectTextFiles(path)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no .txt or .md files under %s", path)
		}
	}

	id, _ := cmd.Flags().GetString("id")
	if id != "" && len(files) > 1 {
		return fmt.Errorf("--id only applies to single-file ingests")
	}

	rps, _ := cmd.Flags().GetFloat64("rps")
	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	client := newClient()

	var failed int
	for _, file := range files {
		if err := limiter.Wait(cmd.Context()); err != nil {
			return err
		}
		if err := ingestFile(cmd, client, file, id); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", file, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(files))
	}
	return nil
}

func collectTextFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func ingestFile(cmd *cobra.Command, client *http.Client, file, id string) error {
	text, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	if id == "" {
		id = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}
	source, _ := cmd.Flags().GetString("source")
	symbol, _ := cmd.Flags().GetString("symbol")
	title, _ := cmd.Flags().GetString("title")
	sourceURL, _ := cmd.Flags().GetString("source-url")
	if title == "" {
		title = filepath.Base(file)
	}

	payload := map[string]any{
		"document_id": id,
		"source":      source,
		"text":        string(text),
		"metadata": map[string]string{
			"symbol":    symbol,
			"title":     title,
			"sourceUrl": sourceURL,
		},
	}
	if size, _ := cmd.Flags().GetInt("chunk-size"); size > 0 {
		payload["chunk_size"] = size
	}
	if overlap, _ := cmd.Flags().GetInt("chunk-overlap"); overlap >= 0 {
		payload["chunk_overlap"] = overlap
	}

	var resp struct {
		ChunksUpserted int    `json:"chunksUpserted"`
		DocumentID     string `json:"documentId"`
	}
	if err := postJSON(cmd.Context(), client, "/v1/rag/ingest", payload, &resp); err != nil {
		return err
	}
	fmt.Printf("OK %s: %d chunks\n", resp.DocumentID, resp.ChunksUpserted)
	return nil
}

// postJSON sends a JSON request with the internal API key attached and
// decodes a JSON response. Non-2xx responses surface the server's
// error field.
func postJSON(ctx context.Context, client *http.Client, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-Internal-Api-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, errBody.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
