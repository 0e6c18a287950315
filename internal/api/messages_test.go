package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMessage_KeepsNewest(t *testing.T) {
	var cookies []*http.Cookie
	for i := range maxMessages + 3 {
		req := httptest.NewRequest(http.MethodPost, "/save-query", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		addMessage(rec, req, LevelError, fmt.Sprintf("message %d", i))
		cookies = rec.Result().Cookies()
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	msgs := readMessages(req)
	require.Len(t, msgs, maxMessages)
	assert.Equal(t, "message 3", msgs[0].Text)
	assert.Equal(t, fmt.Sprintf("message %d", maxMessages+2), msgs[len(msgs)-1].Text)
}

func TestReadMessages_CorruptCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: messagesCookie, Value: "%%%not-base64"})
	assert.Nil(t, readMessages(req))
}
