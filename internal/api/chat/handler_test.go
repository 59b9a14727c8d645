package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holyai/holyai/internal/domain"
)

type fakeAsker struct {
	req *domain.AskRequest
	res *domain.AnswerResult
	err error
}

func (f *fakeAsker) Ask(_ context.Context, req *domain.AskRequest) (*domain.AnswerResult, error) {
	f.req = req
	return f.res, f.err
}

func ask(f *fakeAsker, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(f).RegisterRoutes(r.Group("/api/chat"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestAsk(t *testing.T) {
	f := &fakeAsker{res: &domain.AnswerResult{
		Answer:   "Breathe.",
		Contexts: []domain.RetrievedContext{{Text: "verse", Score: 0.9}},
		Messages: []domain.ChatMessage{},
	}}

	w := ask(f, `{"user_id":"u1","question":"How do I calm down?","k":3}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"answer":"Breathe.",
		"contexts":[{"text":"verse","score":0.9,"point_id":null}],
		"messages":[],
		"conversation_id":null
	}`, w.Body.String())
	assert.Equal(t, 3, f.req.K)
}

func TestAsk_ConversationID(t *testing.T) {
	f := &fakeAsker{res: &domain.AnswerResult{Answer: "ok", ConversationID: mo.Some("c1")}}

	w := ask(f, `{"user_id":"u1","question":"q","conversation_id":"c1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"conversation_id":"c1"`)
}

func TestAsk_MissingFields(t *testing.T) {
	w := ask(&fakeAsker{}, `{"question":"q"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ask(&fakeAsker{}, `{"user_id":"u1","question":"q","k":0.5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAsk_Failure(t *testing.T) {
	f := &fakeAsker{err: &domain.OrchestrationError{Step: "search", Err: errors.New("boom")}}

	w := ask(f, `{"user_id":"u1","question":"q"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed to generate answer at search: boom"}`, w.Body.String())
}

func TestAsk_ValidationFromService(t *testing.T) {
	f := &fakeAsker{err: domain.Invalid("question is required")}

	w := ask(f, `{"user_id":"u1","question":"  "}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
