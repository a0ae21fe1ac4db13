package vision_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"segno/internal/config"
	"segno/internal/services"
	"segno/internal/vision"
)

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("fake png bytes"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}
	return body
}

func newClient(baseURL string, opts ...vision.Option) *vision.Client {
	cfg := config.Vision{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test/vision-model",
	}
	opts = append(opts, vision.WithSleeper(func(time.Duration) {}))
	return vision.NewClient(cfg, opts...)
}

func TestExtractDocument(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write(completionBody(t, `{
            "metadata": {"title": "Suite in Eb", "composer": "Holst", "isMultiPart": true},
            "isMultiPart": true,
            "confidenceScore": 92,
            "instructions": [
                {"instrument": "Flute", "partName": "Flute 1", "fromPage": 1, "toPage": 2},
                {"instrument": "Oboe", "partName": "Oboe", "fromPage": 3, "toPage": 4}
            ]
        }`))
	}))
	defer server.Close()

	client := newClient(server.URL)
	result, err := client.ExtractDocument(context.Background(), vision.ExtractRequest{
		PageImages: []string{writeImage(t, "page-1.png"), writeImage(t, "page-2.png")},
	})
	if err != nil {
		t.Fatalf("ExtractDocument failed: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotPayload["model"] != "test/vision-model" {
		t.Fatalf("unexpected model %v", gotPayload["model"])
	}
	if result.Metadata.Title != "Suite in Eb" || result.Metadata.Composer != "Holst" {
		t.Fatalf("unexpected metadata %+v", result.Metadata)
	}
	if !result.IsMultiPart || result.ConfidenceScore != 92 {
		t.Fatalf("unexpected result flags %+v", result)
	}
	if len(result.Instructions) != 2 || result.Instructions[1].FromPage != 3 {
		t.Fatalf("unexpected instructions %+v", result.Instructions)
	}
}

func TestExtractDocumentModelOverride(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		gotModel, _ = payload["model"].(string)
		_, _ = w.Write(completionBody(t, `{"metadata": {"title": "x"}, "confidenceScore": 50, "instructions": []}`))
	}))
	defer server.Close()

	client := newClient(server.URL)
	_, err := client.ExtractDocument(context.Background(), vision.ExtractRequest{
		PageImages: []string{writeImage(t, "page-1.png")},
		Model:      "test/verification-model",
	})
	if err != nil {
		t.Fatalf("ExtractDocument failed: %v", err)
	}
	if gotModel != "test/verification-model" {
		t.Fatalf("expected verification model, got %q", gotModel)
	}
}

func TestExtractDocumentMalformedPayloadIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionBody(t, "this is not json at all"))
	}))
	defer server.Close()

	client := newClient(server.URL)
	_, err := client.ExtractDocument(context.Background(), vision.ExtractRequest{
		PageImages: []string{writeImage(t, "page-1.png")},
	})
	if err == nil {
		t.Fatal("expected parse failure")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("malformed output must be transient, got %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatalf("malformed output must be retryable, got %v", err)
	}
}

func TestExtractDocumentRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(completionBody(t, `{"metadata": {"title": "x"}, "confidenceScore": 80, "instructions": []}`))
	}))
	defer server.Close()

	client := newClient(server.URL, vision.WithRetryBackoff(time.Millisecond, time.Millisecond))
	result, err := client.ExtractDocument(context.Background(), vision.ExtractRequest{
		PageImages: []string{writeImage(t, "page-1.png")},
	})
	if err != nil {
		t.Fatalf("ExtractDocument failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
	if result.ConfidenceScore != 80 {
		t.Fatalf("unexpected confidence %d", result.ConfidenceScore)
	}
}

func TestExtractDocumentDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newClient(server.URL, vision.WithRetryBackoff(time.Millisecond, time.Millisecond))
	if _, err := client.ExtractDocument(context.Background(), vision.ExtractRequest{
		PageImages: []string{writeImage(t, "page-1.png")},
	}); err == nil {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Fatalf("401 must not be retried, got %d calls", calls)
	}
}

func TestLabelHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionBody(t, "```json\n{\"labels\": [{\"page\": 1, \"label\": \"  Flute 1 \", \"confidence\": 120}]}\n```"))
	}))
	defer server.Close()

	client := newClient(server.URL)
	labels, err := client.LabelHeaders(context.Background(), []string{writeImage(t, "header-1.png")})
	if err != nil {
		t.Fatalf("LabelHeaders failed: %v", err)
	}
	if len(labels) != 1 {
		t.Fatalf("expected 1 label, got %+v", labels)
	}
	if labels[0].Label != "Flute 1" {
		t.Fatalf("label should be trimmed, got %q", labels[0].Label)
	}
	if labels[0].Confidence != 100 {
		t.Fatalf("confidence should be clamped to 100, got %d", labels[0].Confidence)
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	client := vision.NewClient(config.Vision{BaseURL: "http://localhost", Model: "m"})
	_, err := client.ExtractDocument(context.Background(), vision.ExtractRequest{
		PageImages: []string{writeImage(t, "page-1.png")},
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if services.IsRetryable(err) {
		t.Fatal("configuration errors must not be retryable")
	}
}

func TestDecodeModelJSON(t *testing.T) {
	var target struct {
		OK bool `json:"ok"`
	}
	cases := []string{
		`{"ok": true}`,
		"```json\n{\"ok\": true}\n```",
		"Here is the result:\n{\"ok\": true}",
	}
	for _, payload := range cases {
		target.OK = false
		if err := vision.DecodeModelJSON(payload, &target); err != nil {
			t.Errorf("DecodeModelJSON(%q) failed: %v", payload, err)
			continue
		}
		if !target.OK {
			t.Errorf("DecodeModelJSON(%q) lost the value", payload)
		}
	}
	if err := vision.DecodeModelJSON("", &target); err == nil {
		t.Error("empty payload must fail")
	}
	if err := vision.DecodeModelJSON("plain prose with no braces", &target); err == nil {
		t.Error("non-JSON payload must fail")
	}
}
