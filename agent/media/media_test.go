package media

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	twiliox "github.com/tanpawarit/neemo/pkg/twilio"
)

type fakeDownloader struct {
	media *twiliox.Media
	err   error
	urls  []string
}

func (f *fakeDownloader) Download(ctx context.Context, mediaURL string) (*twiliox.Media, error) {
	f.urls = append(f.urls, mediaURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.media, nil
}

type fakeOpenAI struct {
	transcription string
	completion    string
	status        int

	mu       sync.Mutex
	lastPath string
	lastBody []byte
	form     map[string]string
}

func (f *fakeOpenAI) server(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.lastPath = r.URL.Path
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			f.form = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				f.form[k] = v[0]
			}
			if files := r.MultipartForm.File["file"]; len(files) == 1 {
				f.form["filename"] = files[0].Filename
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"text": f.transcription})
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			f.lastBody, _ = io.ReadAll(r.Body)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   "gpt-4o",
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": f.completion},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeOpenAI) snapshot() (path string, body []byte, form map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPath, f.lastBody, f.form
}

func newTestClient(srv *httptest.Server) *openaisdk.Client {
	client := openaisdk.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return &client
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	api := &fakeOpenAI{transcription: "  sed l7anout  "}
	srv := api.server(t)
	dl := &fakeDownloader{media: &twiliox.Media{Data: []byte("OggS"), ContentType: "audio/ogg; codecs=opus"}}

	tr := NewTranscriber(newTestClient(srv), dl, "")
	got, err := tr.Transcribe(context.Background(), "https://api.twilio.com/media/ME1")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != "sed l7anout" {
		t.Fatalf("Transcribe() = %q", got)
	}
	_, _, form := api.snapshot()
	if form["model"] != "whisper-1" || form["language"] != "ar" {
		t.Fatalf("unexpected form: %#v", form)
	}
	if form["filename"] != "audio.ogg" {
		t.Fatalf("filename = %q", form["filename"])
	}
	if form["prompt"] == "" {
		t.Fatal("expected a transcription prompt")
	}
}

func TestTranscribeDownloadError(t *testing.T) {
	t.Parallel()

	api := &fakeOpenAI{}
	srv := api.server(t)
	tr := NewTranscriber(newTestClient(srv), &fakeDownloader{err: errors.New("403")}, "")

	_, err := tr.Transcribe(context.Background(), "https://api.twilio.com/media/ME1")
	if !errors.Is(err, contractx.ErrMediaDownload) {
		t.Fatalf("expected ErrMediaDownload, got %v", err)
	}
	if path, _, _ := api.snapshot(); path != "" {
		t.Fatal("transcription endpoint must not be called")
	}
}

func TestTranscribeAPIError(t *testing.T) {
	t.Parallel()

	api := &fakeOpenAI{status: http.StatusBadRequest}
	srv := api.server(t)
	dl := &fakeDownloader{media: &twiliox.Media{Data: []byte("OggS"), ContentType: "audio/ogg"}}
	tr := NewTranscriber(newTestClient(srv), dl, "")

	_, err := tr.Transcribe(context.Background(), "https://api.twilio.com/media/ME1")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func newTestExtractor(t *testing.T, api *fakeOpenAI) *ImageExtractor {
	t.Helper()

	srv := api.server(t)
	dl := &fakeDownloader{media: &twiliox.Media{Data: []byte{0xff, 0xd8, 0xff}, ContentType: "image/jpeg"}}
	ex, err := NewImageExtractor(newTestClient(srv), dl, ExtractorConfig{
		InvoicePrompt: "invoice prompt",
		ShelfPrompt:   "shelf prompt",
	})
	if err != nil {
		t.Fatalf("NewImageExtractor() error = %v", err)
	}
	return ex
}

func TestExtractInvoice(t *testing.T) {
	t.Parallel()

	api := &fakeOpenAI{completion: "```json\n" + `{"fournisseur":"Centrale Danone","date":"12/03/2025","total":"","items":[{"product":"Danone","quantity":"12","price_unit":"2,50"},{"name":"Jben","price":10},{"name":"","quantity":3}]}` + "\n```"}
	ex := newTestExtractor(t, api)

	got, err := ex.ExtractInvoice(context.Background(), "https://api.twilio.com/media/ME2")
	if err != nil {
		t.Fatalf("ExtractInvoice() error = %v", err)
	}
	if got.Supplier != "Centrale Danone" || got.Date != "12/03/2025" {
		t.Fatalf("unexpected header: %#v", got)
	}
	if len(got.Items) != 2 {
		t.Fatalf("items = %#v", got.Items)
	}
	if got.Items[0].Name != "Danone" || got.Items[0].Quantity != 12 || !got.Items[0].Price.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("item[0] = %#v", got.Items[0])
	}
	if got.Items[1].Quantity != 1 {
		t.Fatalf("missing quantity should default to 1, got %v", got.Items[1].Quantity)
	}
	if !got.Total.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("total = %s, want 40", got.Total)
	}

	_, body, _ := api.snapshot()
	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if !strings.Contains(string(body), "data:image/jpeg;base64,/9j/") {
		t.Fatalf("image not inlined as data url: %s", body)
	}
	if rf, _ := req["response_format"].(map[string]any); rf["type"] != "json_object" {
		t.Fatalf("response_format = %#v", req["response_format"])
	}
}

func TestExtractShelf(t *testing.T) {
	t.Parallel()

	api := &fakeOpenAI{completion: `{"products":[{"name":"Coca Cola Can","quantity":5},{"name":"Lays","quantity":"2"}]}`}
	ex := newTestExtractor(t, api)

	got, err := ex.ExtractShelf(context.Background(), "https://api.twilio.com/media/ME3")
	if err != nil {
		t.Fatalf("ExtractShelf() error = %v", err)
	}
	want := []contractx.ShelfProduct{{Name: "Coca Cola Can", Quantity: 5}, {Name: "Lays", Quantity: 2}}
	if len(got.Products) != len(want) {
		t.Fatalf("products = %#v", got.Products)
	}
	for i := range want {
		if got.Products[i] != want[i] {
			t.Fatalf("product[%d] = %#v, want %#v", i, got.Products[i], want[i])
		}
	}
}

func TestExtractInvalidJSON(t *testing.T) {
	t.Parallel()

	ex := newTestExtractor(t, &fakeOpenAI{completion: "je ne sais pas"})

	_, err := ex.ExtractShelf(context.Background(), "https://api.twilio.com/media/ME4")
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestNewImageExtractorRequiresPrompts(t *testing.T) {
	t.Parallel()

	_, err := NewImageExtractor(nil, &fakeDownloader{}, ExtractorConfig{InvoicePrompt: "x"})
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}
}

func TestAudioFilename(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"audio/ogg":              "audio.ogg",
		"audio/mpeg":             "audio.mp3",
		"audio/mp4":              "audio.m4a",
		"AUDIO/WAV; rate=16000":  "audio.wav",
		"application/x-whatever": "audio.ogg",
	}
	for ct, want := range tests {
		if got := audioFilename(ct); got != want {
			t.Fatalf("audioFilename(%q) = %q, want %q", ct, got, want)
		}
	}
}
