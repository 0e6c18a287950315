package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// messagesCookie carries flash messages across a redirect.
const messagesCookie = "queryshelf_messages"

// maxMessages bounds the pending messages so the cookie stays well under
// browser size limits. The oldest are dropped first.
const maxMessages = 5

// Message levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Message is a one-shot notice shown on the next page the client loads.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// readMessages decodes the pending messages of r. A missing or corrupt
// cookie yields none.
func readMessages(r *http.Request) []Message {
	c, err := r.Cookie(messagesCookie)
	if err != nil {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}

// addMessage queues a message behind any already pending on r.
func addMessage(w http.ResponseWriter, r *http.Request, level, text string) {
	msgs := append(readMessages(r), Message{Level: level, Text: text})
	if len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     messagesCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeMessages returns the pending messages and clears the cookie.
func takeMessages(w http.ResponseWriter, r *http.Request) []Message {
	msgs := readMessages(r)
	if msgs == nil {
		return []Message{}
	}
	http.SetCookie(w, &http.Cookie{Name: messagesCookie, Value: "", Path: "/", MaxAge: -1})
	return msgs
}

func redirectWith(w http.ResponseWriter, r *http.Request, location, level, text string) {
	addMessage(w, r, level, text)
	http.Redirect(w, r, location, http.StatusFound)
}
