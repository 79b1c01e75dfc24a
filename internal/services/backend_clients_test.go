package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmchat/internal/testutils"
	"calmchat/pkg/chattypes"
)

// fakeProviderServer answers every request with a canned JSON body and
// records the last request it received.
type fakeProviderServer struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	response string
	lastPath string
	lastBody map[string]interface{}
}

func newFakeProviderServer(t *testing.T, status int, response string) *fakeProviderServer {
	t.Helper()

	f := &fakeProviderServer{status: status, response: response}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var decoded map[string]interface{}
		_ = json.Unmarshal(body, &decoded)

		f.mu.Lock()
		f.lastPath = r.URL.Path
		f.lastBody = decoded
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.response)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeProviderServer) body() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody
}

func (f *fakeProviderServer) path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPath
}

// redirectTransport sends every request to target regardless of its host.
type redirectTransport struct {
	target *url.URL
}

func (r *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	redirected := req.Clone(req.Context())
	redirected.URL.Scheme = r.target.Scheme
	redirected.URL.Host = r.target.Host
	redirected.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(redirected)
}

func redirectingClient(t *testing.T, server *fakeProviderServer) *http.Client {
	t.Helper()
	target, err := url.Parse(server.URL)
	require.NoError(t, err)
	return &http.Client{Transport: &redirectTransport{target: target}}
}

const (
	geminiReply = `{"candidates":[{"content":{"role":"model","parts":[{"text":"Take a slow breath."}]},"finishReason":"STOP"}]}`

	completionReply = `{"id":"c1","object":"chat.completion","created":1,"model":"deepseek/deepseek-chat",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"You are not alone."}}]}`

	messagesReply = `{"id":"m1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
		"content":[{"type":"text","text":"That makes sense."}],"stop_reason":"end_turn",
		"usage":{"input_tokens":3,"output_tokens":4}}`
)

func TestGeminiClient_Send(t *testing.T) {
	server := newFakeProviderServer(t, http.StatusOK, geminiReply)
	profile := testutils.TwoProviderRegistry()[0]

	client := NewGeminiClient("test-key")
	client.SetHTTPClient(redirectingClient(t, server))
	assert.True(t, client.IsConfigured())
	assert.Equal(t, chattypes.ProtocolSessionChat, client.Kind())

	req, err := BuildProviderRequest(profile, testutils.SampleHistory(), "be gentle", "I feel anxious")
	require.NoError(t, err)

	text, err := client.Send(context.Background(), profile, req)
	require.NoError(t, err)
	assert.Equal(t, "Take a slow breath.", text)

	assert.Contains(t, server.path(), "gemini-2.0-flash:generateContent")
	testutils.AssertPayloadContains(t, server.body(), "be gentle", "I couldn't sleep last night.", "I feel anxious")
	testutils.AssertPayloadExcludes(t, server.body(), testutils.WelcomeText)
}

func TestOpenAIChatClient_Send(t *testing.T) {
	server := newFakeProviderServer(t, http.StatusOK, completionReply)
	profile := testutils.TwoProviderRegistry()[1]

	client := NewOpenAIChatClient("test-key", server.URL)
	assert.Equal(t, chattypes.ProtocolRestCompletion, client.Kind())

	req, err := BuildProviderRequest(profile, testutils.SampleHistory(), "be gentle", "I feel anxious")
	require.NoError(t, err)

	text, err := client.Send(context.Background(), profile, req)
	require.NoError(t, err)
	assert.Equal(t, "You are not alone.", text)

	assert.Equal(t, "/chat/completions", server.path())
	body := server.body()
	assert.Equal(t, "deepseek/deepseek-chat", body["model"])
	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	testutils.AssertPayloadExcludes(t, body, testutils.WelcomeText)
}

func TestAnthropicClient_Send(t *testing.T) {
	server := newFakeProviderServer(t, http.StatusOK, messagesReply)
	profile := chattypes.ProviderProfile{
		Key:             "C",
		DisplayName:     "C",
		ModelIdentifier: "claude-3-5-haiku-latest",
		ProtocolKind:    chattypes.ProtocolMessages,
	}

	client := NewAnthropicClient("test-key", server.URL)
	assert.Equal(t, chattypes.ProtocolMessages, client.Kind())

	req, err := BuildProviderRequest(profile, testutils.SampleHistory(), "be gentle", "I feel anxious")
	require.NoError(t, err)

	text, err := client.Send(context.Background(), profile, req)
	require.NoError(t, err)
	assert.Equal(t, "That makes sense.", text)

	assert.Equal(t, "/v1/messages", server.path())
	testutils.AssertPayloadContains(t, server.body(), "be gentle", "I feel anxious")
	testutils.AssertPayloadExcludes(t, server.body(), testutils.WelcomeText)
}

func TestBackendClients_ProviderErrors(t *testing.T) {
	profiles := testutils.TwoProviderRegistry()

	t.Run("completion error status", func(t *testing.T) {
		server := newFakeProviderServer(t, http.StatusBadRequest, `{"error":{"message":"bad model","type":"invalid_request_error"}}`)
		client := NewOpenAIChatClient("test-key", server.URL)

		req, err := BuildProviderRequest(profiles[1], nil, "", "hi")
		require.NoError(t, err)
		_, err = client.Send(context.Background(), profiles[1], req)
		assert.ErrorContains(t, err, "openai request failed")
	})

	t.Run("completion without choices", func(t *testing.T) {
		server := newFakeProviderServer(t, http.StatusOK, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`)
		client := NewOpenAIChatClient("test-key", server.URL)

		req, err := BuildProviderRequest(profiles[1], nil, "", "hi")
		require.NoError(t, err)
		_, err = client.Send(context.Background(), profiles[1], req)
		assert.Error(t, err)
	})

	t.Run("session with blank reply", func(t *testing.T) {
		server := newFakeProviderServer(t, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":" "}]}}]}`)
		client := NewGeminiClient("test-key")
		client.SetHTTPClient(redirectingClient(t, server))

		req, err := BuildProviderRequest(profiles[0], nil, "", "hi")
		require.NoError(t, err)
		_, err = client.Send(context.Background(), profiles[0], req)
		assert.ErrorIs(t, err, chattypes.ErrEmptyResponse)
	})
}

func TestBackendClients_RejectForeignRequests(t *testing.T) {
	profiles := testutils.TwoProviderRegistry()
	session, err := BuildProviderRequest(profiles[0], nil, "", "hi")
	require.NoError(t, err)
	completion, err := BuildProviderRequest(profiles[1], nil, "", "hi")
	require.NoError(t, err)

	_, err = NewGeminiClient("k").Send(context.Background(), profiles[0], completion)
	assert.ErrorContains(t, err, "cannot send rest-completion request")

	_, err = NewOpenAIChatClient("k", "").Send(context.Background(), profiles[1], session)
	assert.ErrorContains(t, err, "cannot send session-chat request")

	_, err = NewAnthropicClient("k", "").Send(context.Background(), profiles[1], nil)
	assert.ErrorContains(t, err, "cannot send nil request")
}

func TestBackendClients_NotConfigured(t *testing.T) {
	profiles := testutils.TwoProviderRegistry()
	session, err := BuildProviderRequest(profiles[0], nil, "", "hi")
	require.NoError(t, err)

	client := NewGeminiClient("")
	assert.False(t, client.IsConfigured())
	_, err = client.Send(context.Background(), profiles[0], session)
	assert.ErrorIs(t, err, chattypes.ErrBackendNotConfigured)

	assert.False(t, NewAnthropicClient("", "").IsConfigured())
	assert.False(t, NewOpenAIChatClient("", "").IsConfigured())
}
