// Command prodscrape-mcp exposes the product scraper over the Model Context
// Protocol (stdio). It is a thin client of the HTTP API: tools call the
// running prodscrape server and format the canonical product for the model.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeRequest mirrors the prodscrape API request model.
type scrapeRequest struct {
	URL                string `json:"url"`
	PreferredTransport string `json:"preferred_transport,omitempty"`
	Timeout            int    `json:"timeout,omitempty"`
	MaxImages          int    `json:"max_images,omitempty"`
}

// scrapeResponse mirrors the prodscrape API response model.
type scrapeResponse struct {
	Success      bool   `json:"success"`
	Completeness string `json:"completeness"`
	Transport    string `json:"transport"`
	Product      *struct {
		Title          string            `json:"title"`
		Description    string            `json:"description"`
		PriceAmount    *int64            `json:"price_amount"`
		Currency       string            `json:"currency"`
		Images         []string          `json:"images"`
		Brand          string            `json:"brand"`
		Category       string            `json:"category"`
		Features       []string          `json:"features"`
		Specifications map[string]string `json:"specifications"`
		Rating         *float64          `json:"rating"`
		ReviewsCount   *int              `json:"reviews_count"`
		SourceURL      string            `json:"source_url"`
		SourcePlatform string            `json:"source_platform"`
		FieldsMissing  []string          `json:"fields_missing"`
	} `json:"product"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// batchResponse mirrors the prodscrape batch API response.
type batchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// batchStatusResponse mirrors the prodscrape batch status API response.
type batchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []json.RawMessage `json:"results"`
}

func main() {
	apiURL := os.Getenv("PRODSCRAPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PRODSCRAPE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PRODSCRAPE_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"prodscrape",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeProductTool := mcp.NewTool("scrape_product",
		mcp.WithDescription("Scrape a product page (AliExpress, Amazon, eBay, Best Buy, or any shop) and return the canonical product: title, price, images, variants, specifications."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The product page URL to scrape"),
		),
		mcp.WithString("preferred_transport",
			mcp.Description("Transport override: 'http' (fast, static pages), 'browser' (renders JavaScript), or 'browser-stealth' (anti-bot evasion)"),
			mcp.Enum("http", "browser", "browser-stealth"),
		),
		mcp.WithNumber("max_images",
			mcp.Description("Maximum number of product images to return (default: 10, max: 30)"),
		),
	)
	s.AddTool(scrapeProductTool, handleScrapeProduct(apiURL, apiKey))

	batchScrapeTool := mcp.NewTool("batch_scrape_products",
		mcp.WithDescription("Scrape multiple product URLs in parallel and return the canonical product for each."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of product page URLs to scrape"),
		),
	)
	s.AddTool(batchScrapeTool, handleBatchScrape(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleScrapeProduct(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 150 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scrapeRequest{
			URL:                url,
			PreferredTransport: request.GetString("preferred_transport", ""),
			MaxImages:          request.GetInt("max_images", 0),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/scrape", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}

		var scrapeResp scrapeResponse
		if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !scrapeResp.Success || scrapeResp.Product == nil {
			errMsg := "scrape failed"
			if scrapeResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", scrapeResp.Error.Code, scrapeResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatProduct(&scrapeResp)), nil
	}
}

func handleBatchScrape(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		payload := map[string]interface{}{"urls": urls}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/batch/scrape", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var batchResp batchResponse
		if err := json.Unmarshal(respBody, &batchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v", err)), nil
		}
		if batchResp.ID == "" {
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		resultBody, err := pollJobCompletion(ctx, client, apiURL, apiKey, "/api/v1/batch/"+batchResp.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var statusResp batchStatusResponse
		if err := json.Unmarshal(resultBody, &statusResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch status: %v", err)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Batch %s: %s (%d/%d)\n", statusResp.ID, statusResp.Status,
			statusResp.Completed, statusResp.Total)
		for i, raw := range statusResp.Results {
			var r scrapeResponse
			if err := json.Unmarshal(raw, &r); err != nil || !r.Success || r.Product == nil {
				fmt.Fprintf(&b, "\n--- Result %d: failed ---\n", i+1)
				continue
			}
			fmt.Fprintf(&b, "\n--- Result %d ---\n%s", i+1, formatProduct(&r))
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

// formatProduct renders the product as compact text for the model.
func formatProduct(resp *scrapeResponse) string {
	p := resp.Product
	var b strings.Builder

	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	if p.PriceAmount != nil {
		fmt.Fprintf(&b, "Price: %.2f %s\n", float64(*p.PriceAmount)/100, p.Currency)
	}
	if p.Brand != "" {
		fmt.Fprintf(&b, "Brand: %s\n", p.Brand)
	}
	if p.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", p.Category)
	}
	if p.Rating != nil {
		fmt.Fprintf(&b, "Rating: %.1f", *p.Rating)
		if p.ReviewsCount != nil {
			fmt.Fprintf(&b, " (%d reviews)", *p.ReviewsCount)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Platform: %s\nSource: %s\nCompleteness: %s (transport %s)\n",
		p.SourcePlatform, p.SourceURL, resp.Completeness, resp.Transport)
	if len(p.FieldsMissing) > 0 {
		fmt.Fprintf(&b, "Missing fields: %s\n", strings.Join(p.FieldsMissing, ", "))
	}

	if len(p.Images) > 0 {
		b.WriteString("\nImages:\n")
		for _, img := range p.Images {
			fmt.Fprintf(&b, "  - %s\n", img)
		}
	}
	if len(p.Features) > 0 {
		b.WriteString("\nFeatures:\n")
		for _, f := range p.Features {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	if len(p.Specifications) > 0 {
		b.WriteString("\nSpecifications:\n")
		for k, v := range p.Specifications {
			fmt.Fprintf(&b, "  %s: %s\n", k, v)
		}
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", p.Description)
	}
	return b.String()
}

// apiPost sends a POST request to the prodscrape API and returns the body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJobCompletion polls a job endpoint until status is no longer
// "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}
			req.Header.Set("X-API-Key", apiKey)

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read poll response: %w", err)
			}

			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "processing" {
				return body, nil
			}
		}
	}
}
