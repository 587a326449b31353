// Package flash carries one-shot user messages across a redirect in a cookie.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const cookieName = "flash"

// Add queues msg for the next page the client loads. Messages still pending
// in the request, or queued earlier on the same response, are kept.
func Add(w http.ResponseWriter, r *http.Request, msg string) {
	messages, queued := fromResponse(w)
	if !queued {
		messages = read(r)
	}
	messages = append(messages, msg)
	data, err := json.Marshal(messages)
	if err != nil {
		return
	}
	dropFromResponse(w)
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending messages and clears them. It never returns nil.
func Pop(w http.ResponseWriter, r *http.Request) []string {
	messages := read(r)
	if len(messages) > 0 {
		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return messages
}

func read(r *http.Request) []string {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return []string{}
	}
	return decode(cookie.Value)
}

// fromResponse returns the messages of the flash cookie already set on w,
// if any. A cleared cookie yields no messages.
func fromResponse(w http.ResponseWriter) ([]string, bool) {
	values := w.Header().Values("Set-Cookie")
	for i := len(values) - 1; i >= 0; i-- {
		cookie, err := http.ParseSetCookie(values[i])
		if err != nil || cookie.Name != cookieName {
			continue
		}
		return decode(cookie.Value), true
	}
	return nil, false
}

// dropFromResponse removes flash cookies set earlier on w.
func dropFromResponse(w http.ResponseWriter) {
	header := w.Header()
	var kept []string
	for _, v := range header.Values("Set-Cookie") {
		if cookie, err := http.ParseSetCookie(v); err == nil && cookie.Name == cookieName {
			continue
		}
		kept = append(kept, v)
	}
	header.Del("Set-Cookie")
	for _, v := range kept {
		header.Add("Set-Cookie", v)
	}
}

func decode(value string) []string {
	messages := []string{}
	if value == "" {
		return messages
	}
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return messages
	}
	if err := json.Unmarshal(data, &messages); err != nil {
		return []string{}
	}
	return messages
}
