package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete all chunks of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	documentID := args[0]

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodDelete,
		serviceURL+"/v1/rag/doc/"+documentID, nil)
	if err != nil {
		return err
	}
	if apiKey != "" {
		req.Header.Set("X-Internal-Api-Key", apiKey)
	}

	resp, err := newClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out struct {
		DocumentID string `json:"documentId"`
		Deleted    int    `json:"deleted"`
	}
	if err := decodeResponse(resp, &out); err != nil {
		return err
	}
	fmt.Printf("OK %s: %d chunks deleted\n", out.DocumentID, out.Deleted)
	return nil
}
