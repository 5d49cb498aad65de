package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// UploadResult mirrors the server's upload response.
type UploadResult struct {
	Success          bool     `json:"success"`
	PDFsProcessed    int      `json:"pdfs_processed"`
	URLsProcessed    int      `json:"urls_processed"`
	TotalChunksAdded int      `json:"total_chunks_added"`
	Message          string   `json:"message"`
	Errors           []string `json:"errors,omitempty"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var (
		pdfPatterns []string
		urls        []string
		noProgress  bool
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload PDFs and web pages to a client",
		Long: `Uploads PDFs and web page URLs to the client's knowledge base.

--pdf accepts files or glob patterns, including ** for recursive matches:

  chatbot upload --pdf 'catalogo/**/*.pdf' --url https://example.com/envios`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(cmd, pdfPatterns, urls, noProgress || outputJSON, outputJSON)
		},
	}

	cmd.Flags().StringArrayVar(&pdfPatterns, "pdf", nil, "PDF file or glob pattern (repeatable)")
	cmd.Flags().StringArrayVar(&urls, "url", nil, "Web page URL (repeatable)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	return cmd
}

func runUpload(cmd *cobra.Command, pdfPatterns, urls []string, noProgress, outputJSON bool) error {
	pdfs, err := expandPDFPatterns(pdfPatterns)
	if err != nil {
		return err
	}
	if len(pdfs) == 0 && len(urls) == 0 {
		return fmt.Errorf("nothing to upload: pass --pdf or --url")
	}

	api, settings, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}
	clientID, err := settings.RequireClientID()
	if err != nil {
		return err
	}

	var onProgress ProgressFunc
	if !noProgress && len(pdfs) > 0 {
		var bar *progressbar.ProgressBar
		onProgress = func(current, total int64) {
			if bar == nil {
				bar = progressbar.NewOptions64(total,
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionShowBytes(true),
					progressbar.OptionSetWidth(40),
					progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Uploading %d PDFs[reset]", len(pdfs))),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionOnCompletion(func() {
						fmt.Fprintln(os.Stderr)
					}),
				)
			}
			_ = bar.Set64(current)
		}
	}

	resp, err := api.PostDocuments(fmt.Sprintf("/api/clients/%s/documents/upload", clientID), pdfs, urls, onProgress)
	if err != nil {
		return fmt.Errorf("failed to upload documents: %w", err)
	}

	var result UploadResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(result.Message)
	fmt.Printf("PDFs processed: %d, URLs processed: %d, chunks added: %d\n",
		result.PDFsProcessed, result.URLsProcessed, result.TotalChunksAdded)
	if len(result.Errors) > 0 {
		fmt.Println("Errors:")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}

// expandPDFPatterns resolves plain paths and doublestar globs into a sorted,
// de-duplicated file list. A pattern matching nothing is an error.
func expandPDFPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		for _, m := range matches {
			clean := filepath.Clean(m)
			if _, ok := seen[clean]; ok {
				continue
			}
			seen[clean] = struct{}{}
			files = append(files, clean)
		}
	}

	sort.Strings(files)
	return files, nil
}
