package inference

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(serverURL string) *Client {
	return NewClient(
		http.DefaultClient,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		serverURL,
	)
}

func TestClient_Classify_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/predict" {
			t.Errorf("path = %q, want /predict", r.URL.Path)
		}

		// multipartのfileフィールドで画像が届く
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
		} else {
			defer file.Close()
			if header.Filename != "leaf.jpg" {
				t.Errorf("filename = %q, want %q", header.Filename, "leaf.jpg")
			}
			data, _ := io.ReadAll(file)
			if string(data) != "image bytes" {
				t.Errorf("file content = %q", data)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"predicted_class": "Tomato Late Blight",
			"confidence": 0.93,
			"category": "fungal",
			"part_scanned": "leaf",
			"symptoms": "Dark lesions on leaves",
			"treatment": ["Apply fungicide"],
			"prevention": ["Rotate crops"]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	prediction, err := client.Classify(context.Background(), "leaf.jpg", strings.NewReader("image bytes"))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if prediction.PredictedClass != "Tomato Late Blight" {
		t.Errorf("PredictedClass = %q", prediction.PredictedClass)
	}
	if prediction.Confidence != 0.93 {
		t.Errorf("Confidence = %v", prediction.Confidence)
	}
	if len(prediction.Treatment) != 1 || prediction.Treatment[0] != "Apply fungicide" {
		t.Errorf("Treatment = %v", prediction.Treatment)
	}
}

func TestClient_Classify_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Classify(context.Background(), "leaf.jpg", strings.NewReader("image bytes"))
	if err == nil {
		t.Error("Classify() error = nil, want error for 500 response")
	}
}

func TestClient_Classify_ApplicationError(t *testing.T) {
	// 推論サービスは失敗を200 + errorフィールドで返すことがある
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": "unsupported image format"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Classify(context.Background(), "leaf.gif", strings.NewReader("image bytes"))
	if err == nil {
		t.Fatal("Classify() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "unsupported image format") {
		t.Errorf("error = %v, want wrapped application error", err)
	}
}

func TestClient_Classify_ConnectionRefused(t *testing.T) {
	// 閉じたサーバーへの接続は失敗する
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)

	_, err := client.Classify(context.Background(), "leaf.jpg", strings.NewReader("image bytes"))
	if err == nil {
		t.Error("Classify() error = nil, want connection error")
	}
}

func TestClient_Classify_MissingPredictedClass(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Classify(context.Background(), "leaf.jpg", strings.NewReader("image bytes"))
	if err == nil {
		t.Error("Classify() error = nil, want error for empty prediction")
	}
}
