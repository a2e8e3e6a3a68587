package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	httpDefaultMaxChars = 50000
	httpMaxRedirects    = 3
	httpTimeout         = 30 * time.Second
	httpErrorMaxChars   = 4000
	httpCacheSize       = 100
	httpCacheTTL        = 15 * time.Minute
)

var httpAllowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// HTTPRequestTool performs HTTP calls on behalf of the agent. GET responses
// are cached briefly, HTML is reduced to markdown or text, and private
// address space is blocked for both the initial URL and every redirect hop.
// Credentials are taken from environment variables, never from arguments,
// so the model cannot exfiltrate a literal token through the transcript.
type HTTPRequestTool struct {
	maxChars int
	cache    *expirable.LRU[string, string]
}

func NewHTTPRequestTool() *HTTPRequestTool {
	return &HTTPRequestTool{
		maxChars: httpDefaultMaxChars,
		cache:    expirable.NewLRU[string, string](httpCacheSize, nil, httpCacheTTL),
	}
}

func (t *HTTPRequestTool) Name() string { return "http_request" }

func (t *HTTPRequestTool) Description() string {
	return "Make an HTTP request and return the response. HTML is converted to markdown. Authentication uses environment variables: set auth_type and auth_env_var to attach credentials."
}

func (t *HTTPRequestTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"method": map[string]interface{}{
				"type":        "string",
				"description": "HTTP method. Default: GET.",
				"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			},
			"url": map[string]interface{}{
				"type":        "string",
				"description": "HTTP or HTTPS URL to request.",
			},
			"headers": map[string]interface{}{
				"type":        "object",
				"description": "Additional request headers.",
			},
			"body": map[string]interface{}{
				"type":        "string",
				"description": "Request body for POST/PUT/PATCH.",
			},
			"auth_type": map[string]interface{}{
				"type":        "string",
				"description": "How to attach the credential from auth_env_var.",
				"enum":        []string{"bearer", "basic", "token"},
			},
			"auth_env_var": map[string]interface{}{
				"type":        "string",
				"description": "Name of the environment variable holding the credential.",
			},
			"extract_mode": map[string]interface{}{
				"type":        "string",
				"description": `How to extract HTML responses ("markdown" or "text"). Default: "markdown".`,
				"enum":        []string{"markdown", "text"},
			},
			"max_chars": map[string]interface{}{
				"type":        "number",
				"description": "Maximum characters to return (truncates when exceeded).",
				"minimum":     100.0,
			},
		},
		"required": []string{"url"},
	}
}

func (t *HTTPRequestTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	rawURL, _ := args["url"].(string)
	if rawURL == "" {
		return ErrorResult("url is required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrorResult(fmt.Sprintf("invalid URL: %v", err))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrorResult("only http and https URLs are supported")
	}
	if err := checkSSRF(rawURL); err != nil {
		return ErrorResult(fmt.Sprintf("SSRF protection: %v", err))
	}

	method := "GET"
	if m, ok := args["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if !httpAllowedMethods[method] {
		return ErrorResult(fmt.Sprintf("unsupported method %q", method))
	}

	extractMode := "markdown"
	if em, ok := args["extract_mode"].(string); ok && (em == "markdown" || em == "text") {
		extractMode = em
	}
	maxChars := t.maxChars
	if mc, ok := args["max_chars"].(float64); ok && int(mc) >= 100 {
		maxChars = int(mc)
	}

	// Only idempotent unauthenticated GETs are cached.
	_, hasAuth := args["auth_env_var"]
	cacheKey := fmt.Sprintf("%s:%s:%d", rawURL, extractMode, maxChars)
	if method == "GET" && !hasAuth {
		if cached, ok := t.cache.Get(cacheKey); ok {
			slog.Debug("http_request cache hit", "url", rawURL)
			return NewResult(cached)
		}
	}

	result, err := t.doRequest(ctx, method, rawURL, args, extractMode, maxChars)
	if err != nil {
		return ErrorResult(fmt.Sprintf("request failed: %s", truncateStr(err.Error(), httpErrorMaxChars)))
	}

	wrapped := wrapExternalContent(result, "HTTP Request", true)
	if method == "GET" && !hasAuth {
		t.cache.Add(cacheKey, wrapped)
	}
	return NewResult(wrapped)
}

func (t *HTTPRequestTool) doRequest(ctx context.Context, method, rawURL string, args map[string]interface{}, extractMode string, maxChars int) (string, error) {
	var bodyReader io.Reader
	if body, ok := args["body"].(string); ok && body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

	if headers, ok := args["headers"].(map[string]interface{}); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	if err := applyAuth(req, args); err != nil {
		return "", err
	}

	redirectCount := 0
	client := &http.Client{
		Timeout: httpTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			redirectCount++
			if redirectCount > httpMaxRedirects {
				return fmt.Errorf("stopped after %d redirects", httpMaxRedirects)
			}
			if err := checkSSRF(req.URL.String()); err != nil {
				return fmt.Errorf("redirect SSRF protection: %w", err)
			}
			return nil
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	limitReader := io.LimitReader(resp.Body, int64(maxChars*4)) // read extra for HTML overhead
	body, err := io.ReadAll(limitReader)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	var text, extractor string
	switch {
	case strings.Contains(contentType, "application/json"):
		text, extractor = extractJSON(body)
	case strings.Contains(contentType, "text/html"),
		strings.Contains(contentType, "application/xhtml"):
		if extractMode == "markdown" {
			text = htmlToMarkdown(string(body))
			extractor = "html-to-markdown"
		} else {
			text = htmlToText(string(body))
			extractor = "html-to-text"
		}
	default:
		text = string(body)
		extractor = "raw"
	}

	truncated := false
	if len(text) > maxChars {
		text = text[:maxChars]
		truncated = true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "URL: %s\n", resp.Request.URL.String())
	fmt.Fprintf(&sb, "Status: %d\n", resp.StatusCode)
	fmt.Fprintf(&sb, "Extractor: %s\n", extractor)
	if truncated {
		fmt.Fprintf(&sb, "Truncated: true (limit: %d chars)\n", maxChars)
	}
	fmt.Fprintf(&sb, "Length: %d\n\n", len(text))
	sb.WriteString(text)
	return sb.String(), nil
}

// applyAuth attaches a credential read from the environment. The variable
// name comes from the model; the value never enters the conversation.
func applyAuth(req *http.Request, args map[string]interface{}) error {
	envVar, _ := args["auth_env_var"].(string)
	if envVar == "" {
		return nil
	}
	secret := os.Getenv(envVar)
	if secret == "" {
		return fmt.Errorf("environment variable %s is not set", envVar)
	}

	authType, _ := args["auth_type"].(string)
	switch authType {
	case "", "bearer":
		req.Header.Set("Authorization", "Bearer "+secret)
	case "token":
		req.Header.Set("Authorization", "token "+secret)
	case "basic":
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(secret)))
	default:
		return fmt.Errorf("unsupported auth_type %q", authType)
	}
	return nil
}
