package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient("   ")
	assert.Error(t, err)
}

func TestGeminiClientGenerateText(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "models/gemini-1.5-flash:generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := generateResponse{}
		resp.Candidates = []struct {
			Content content `json:"content"`
		}{
			{Content: content{Parts: []part{{Text: "legal analysis text"}}}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key")
	require.NoError(t, err)
	client.baseURL = srv.URL

	out, err := client.GenerateText(context.Background(), "models/gemini-1.5-flash", "You are a legal expert.", "Describe my rights.")
	require.NoError(t, err)
	assert.Equal(t, "legal analysis text", out)

	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "Describe my rights.", gotReq.Contents[0].Parts[0].Text)
	require.NotNil(t, gotReq.SystemInstruction)
	assert.Equal(t, "You are a legal expert.", gotReq.SystemInstruction.Parts[0].Text)
}

func TestGeminiClientGenerateTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key")
	require.NoError(t, err)
	client.baseURL = srv.URL

	_, err = client.GenerateText(context.Background(), "gemini-1.5-flash", "", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGeminiClientGenerateTextEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key")
	require.NoError(t, err)
	client.baseURL = srv.URL

	_, err = client.GenerateText(context.Background(), "gemini-1.5-flash", "", "prompt")
	assert.Error(t, err)
}

func TestUnavailableGenerator(t *testing.T) {
	_, err := Unavailable{}.GenerateText(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
