package app_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/isdelr/microblog-be/internal/app"
	"github.com/isdelr/microblog-be/internal/auth"
	"github.com/isdelr/microblog-be/internal/config"
	"github.com/isdelr/microblog-be/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type author struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type post struct {
	ID     string `json:"id"`
	Body   string `json:"body"`
	Author author `json:"author"`
}

// view decodes every JSON page the server renders.
type view struct {
	Title   string            `json:"title"`
	Flashes []string          `json:"flashes"`
	Errors  map[string]string `json:"errors"`
	Error   string            `json:"error"`
	Posts   []post            `json:"posts"`
	Page    int               `json:"page"`
	HasNext bool              `json:"hasNext"`
	HasPrev bool              `json:"hasPrev"`
	NextURL *string           `json:"nextUrl"`
	PrevURL *string           `json:"prevUrl"`
	User    struct {
		Username       string `json:"username"`
		Email          string `json:"email"`
		AboutMe        string `json:"aboutMe"`
		FollowerCount  int    `json:"followerCount"`
		FollowingCount int    `json:"followingCount"`
	} `json:"user"`
	IsSelf      bool `json:"isSelf"`
	IsFollowing bool `json:"isFollowing"`
}

func (v view) bodies() []string {
	out := make([]string, len(v.Posts))
	for i, p := range v.Posts {
		out[i] = p.Body
	}
	return out
}

type server struct {
	*httptest.Server
}

func newServer(t *testing.T, perPage int) *server {
	t.Helper()

	cfg := config.Default()
	cfg.PostsPerPage = perPage
	a := app.New(cfg, testutil.NewSQLite(t))

	ctx, cancel := context.WithCancel(context.Background())
	go a.Hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-a.Hub.Done()
	})

	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)
	return &server{Server: srv}
}

// browser keeps cookies and stops at redirects so tests can inspect them.
type browser struct {
	t      *testing.T
	srv    *server
	client *http.Client
}

type response struct {
	status   int
	location string
	body     []byte
}

func (r response) view(t *testing.T) view {
	t.Helper()
	var v view
	require.NoError(t, json.Unmarshal(r.body, &v), "body: %s", r.body)
	return v
}

func (s *server) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:   t,
		srv: s,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return response{status: resp.StatusCode, location: resp.Header.Get("Location"), body: body}
}

func (b *browser) get(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.srv.URL+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) register(username string) {
	b.t.Helper()
	resp := b.post("/register", url.Values{
		"username":  {username},
		"email":     {username + "@example.com"},
		"password":  {"pw-" + username},
		"password2": {"pw-" + username},
	})
	require.Equal(b.t, http.StatusSeeOther, resp.status, "body: %s", resp.body)
}

func (b *browser) login(username string) {
	b.t.Helper()
	resp := b.post("/login", url.Values{"username": {username}, "password": {"pw-" + username}})
	require.Equal(b.t, http.StatusSeeOther, resp.status, "body: %s", resp.body)
	require.Equal(b.t, "/", resp.location)
}

// signUp registers and signs in a new user and discards the pending flashes.
func (s *server) signUp(t *testing.T, username string) *browser {
	t.Helper()
	b := s.browser(t)
	b.register(username)
	b.login(username)
	b.get("/")
	return b
}

func (b *browser) submit(body string) {
	b.t.Helper()
	resp := b.post("/", url.Values{"post": {body}})
	require.Equal(b.t, http.StatusSeeOther, resp.status, "body: %s", resp.body)
}

func (b *browser) cookie(name string) string {
	u, err := url.Parse(b.srv.URL)
	require.NoError(b.t, err)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	srv := newServer(t, 5)
	b := srv.browser(t)

	for _, path := range []string{"/", "/explore", "/user/susan", "/follow/susan", "/activity"} {
		resp := b.get(path)
		assert.Equal(t, http.StatusSeeOther, resp.status, path)
		assert.True(t, strings.HasPrefix(resp.location, "/login?next="), path)
	}

	login := b.get("/login").view(t)
	assert.Equal(t, "Sign In", login.Title)
	assert.Contains(t, login.Flashes, "Please log in to access this page.")
}

func TestBearerClientGetsUnauthorized(t *testing.T) {
	srv := newServer(t, 5)
	b := srv.browser(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/explore", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, b.do(req).status)
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newServer(t, 5)
	b := srv.browser(t)

	b.register("susan")
	page := b.get("/login").view(t)
	assert.Equal(t, []string{"Congratulations, you are now a registered user!"}, page.Flashes)

	page = b.get("/login").view(t)
	assert.Empty(t, page.Flashes, "flashes are shown once")

	resp := b.post("/login", url.Values{"username": {"susan"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/login", resp.location)
	assert.Equal(t, []string{"Invalid username or password"}, b.get("/login").view(t).Flashes)
	assert.Empty(t, b.cookie(auth.CookieName))

	b.login("susan")
	assert.NotEmpty(t, b.cookie(auth.CookieName))

	home := b.get("/")
	require.Equal(t, http.StatusOK, home.status)
	assert.Equal(t, "Home", home.view(t).Title)

	// Signed-in users skip the sign-in and registration pages.
	assert.Equal(t, "/", b.get("/login").location)
	assert.Equal(t, "/", b.get("/register").location)

	resp = b.get("/logout")
	assert.Equal(t, "/", resp.location)
	assert.Empty(t, b.cookie(auth.CookieName))
	assert.Equal(t, http.StatusSeeOther, b.get("/").status)
}

func TestLoginRedirectsToNext(t *testing.T) {
	srv := newServer(t, 5)
	b := srv.browser(t)
	b.register("susan")

	for next, want := range map[string]string{
		"/explore?page=2":    "/explore?page=2",
		"https://evil.test/": "/",
		"//evil.test":        "/",
	} {
		b.get("/logout")
		resp := b.post("/login?next="+url.QueryEscape(next), url.Values{"username": {"susan"}, "password": {"pw-susan"}})
		assert.Equal(t, want, resp.location, next)
	}
}

func TestRegisterValidation(t *testing.T) {
	srv := newServer(t, 5)
	b := srv.browser(t)
	b.register("susan")

	tests := []struct {
		name  string
		form  url.Values
		field string
		msg   string
	}{
		{
			name:  "password mismatch",
			form:  url.Values{"username": {"john"}, "email": {"john@example.com"}, "password": {"a"}, "password2": {"b"}},
			field: "password2",
			msg:   "Field must be equal to password.",
		},
		{
			name:  "bad email",
			form:  url.Values{"username": {"john"}, "email": {"not-an-email"}, "password": {"a"}, "password2": {"a"}},
			field: "email",
			msg:   "Invalid email address.",
		},
		{
			name:  "missing username",
			form:  url.Values{"email": {"john@example.com"}, "password": {"a"}, "password2": {"a"}},
			field: "username",
			msg:   "This field is required.",
		},
		{
			name:  "taken username",
			form:  url.Values{"username": {"susan"}, "email": {"john@example.com"}, "password": {"a"}, "password2": {"a"}},
			field: "username",
			msg:   "Please use a different username.",
		},
		{
			name:  "taken email",
			form:  url.Values{"username": {"john"}, "email": {"susan@example.com"}, "password": {"a"}, "password2": {"a"}},
			field: "email",
			msg:   "Please use a different email address.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := b.post("/register", tt.form)
			require.Equal(t, http.StatusUnprocessableEntity, resp.status)
			page := resp.view(t)
			assert.Equal(t, "Register", page.Title)
			assert.Equal(t, tt.msg, page.Errors[tt.field])
			assert.NotContains(t, string(resp.body), `"password":"a"`, "passwords are never echoed")
		})
	}
}

func TestPostAndHomeFeed(t *testing.T) {
	srv := newServer(t, 5)
	susan := srv.signUp(t, "susan")

	susan.submit("my first post")

	home := susan.get("/").view(t)
	assert.Equal(t, []string{"Your post is now live!"}, home.Flashes)
	require.Len(t, home.Posts, 1)
	assert.Equal(t, "my first post", home.Posts[0].Body)
	assert.Equal(t, "susan", home.Posts[0].Author.Username)
	assert.Contains(t, home.Posts[0].Author.Avatar, "s=36")

	resp := susan.post("/", url.Values{"post": {"   "}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.status)
	invalid := resp.view(t)
	assert.Equal(t, "This field is required.", invalid.Errors["post"])
	assert.Equal(t, []string{"my first post"}, invalid.bodies(), "the feed is shown with the errors")

	resp = susan.post("/index", url.Values{"post": {strings.Repeat("x", 141)}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Contains(t, resp.view(t).Errors, "post")
}

func TestFollowUnfollowChangesHomeFeed(t *testing.T) {
	srv := newServer(t, 5)
	alice := srv.signUp(t, "alice")
	bob := srv.signUp(t, "bob")

	resp := alice.get("/follow/bob")
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/user/bob", resp.location)

	profile := alice.get("/user/bob").view(t)
	assert.Equal(t, []string{"You are following bob!"}, profile.Flashes)
	assert.True(t, profile.IsFollowing)
	assert.Equal(t, 1, profile.User.FollowerCount)

	bob.submit("hello")
	assert.Contains(t, alice.get("/").view(t).bodies(), "hello")

	alice.get("/unfollow/bob")
	profile = alice.get("/user/bob").view(t)
	assert.Equal(t, []string{"You are not following bob."}, profile.Flashes)
	assert.False(t, profile.IsFollowing)
	assert.Zero(t, profile.User.FollowerCount)

	assert.NotContains(t, alice.get("/").view(t).bodies(), "hello")
	assert.Contains(t, alice.get("/explore").view(t).bodies(), "hello")
}

func TestFollowRules(t *testing.T) {
	srv := newServer(t, 5)
	susan := srv.signUp(t, "susan")

	resp := susan.get("/follow/susan")
	assert.Equal(t, "/user/susan", resp.location)
	assert.Equal(t, []string{"You cannot follow yourself!"}, susan.get("/user/susan").view(t).Flashes)

	resp = susan.get("/unfollow/susan")
	assert.Equal(t, "/user/susan", resp.location)
	assert.Equal(t, []string{"You cannot unfollow yourself!"}, susan.get("/user/susan").view(t).Flashes)

	resp = susan.get("/follow/nobody")
	assert.Equal(t, "/", resp.location)
	assert.Equal(t, []string{"User nobody not found."}, susan.get("/").view(t).Flashes)

	resp = susan.get("/unfollow/nobody")
	assert.Equal(t, "/", resp.location)
	assert.Equal(t, []string{"User nobody not found."}, susan.get("/").view(t).Flashes)
}

func TestProfile(t *testing.T) {
	srv := newServer(t, 2)
	susan := srv.signUp(t, "susan")
	john := srv.signUp(t, "john")

	for _, body := range []string{"one", "two", "three"} {
		susan.submit(body)
	}

	own := susan.get("/user/susan").view(t)
	assert.True(t, own.IsSelf)
	assert.Equal(t, "susan@example.com", own.User.Email)
	assert.Len(t, own.Posts, 2)
	require.NotNil(t, own.NextURL)
	assert.Equal(t, "/user/susan?page=2", *own.NextURL)
	assert.Nil(t, own.PrevURL)

	other := john.get("/user/susan").view(t)
	assert.False(t, other.IsSelf)
	assert.Empty(t, other.User.Email, "email is private")

	second := john.get("/user/susan?page=2").view(t)
	assert.Len(t, second.Posts, 1)
	assert.Nil(t, second.NextURL)
	require.NotNil(t, second.PrevURL)
	assert.Equal(t, "/user/susan?page=1", *second.PrevURL)

	resp := john.get("/user/susan?page=3")
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = john.get("/user/susan?page=2305843009213693953")
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = john.get("/user/unknown_name")
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "User unknown_name not found", resp.view(t).Error)
}

func TestExplorePastTheEnd(t *testing.T) {
	srv := newServer(t, 5)
	susan := srv.signUp(t, "susan")
	susan.submit("only post")

	first := susan.get("/explore").view(t)
	assert.Equal(t, "Explore", first.Title)
	assert.Equal(t, []string{"only post"}, first.bodies())

	resp := susan.get("/explore?page=2")
	require.Equal(t, http.StatusOK, resp.status)
	second := resp.view(t)
	assert.Empty(t, second.Posts)
	assert.False(t, second.HasNext)
	assert.Nil(t, second.NextURL)
	require.NotNil(t, second.PrevURL)
	assert.Equal(t, "/explore?page=1", *second.PrevURL)

	huge := susan.get("/explore?page=2305843009213693953")
	require.Equal(t, http.StatusOK, huge.status)
	assert.Empty(t, huge.view(t).Posts)

	bad := susan.get("/explore?page=abc").view(t)
	assert.Equal(t, 1, bad.Page, "malformed page numbers fall back to the first page")
}

func TestEditProfile(t *testing.T) {
	srv := newServer(t, 5)
	susan := srv.signUp(t, "susan")
	srv.signUp(t, "john")

	form := susan.get("/edit_profile")
	require.Equal(t, http.StatusOK, form.status)
	assert.Contains(t, string(form.body), `"username":"susan"`)

	resp := susan.post("/edit_profile", url.Values{"username": {"john"}, "about_me": {""}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "Please use a different username.", resp.view(t).Errors["username"])

	resp = susan.post("/edit_profile", url.Values{"username": {"sue"}, "about_me": {strings.Repeat("y", 141)}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Contains(t, resp.view(t).Errors, "about_me")

	resp = susan.post("/edit_profile", url.Values{"username": {"sue"}, "about_me": {"I like cats"}})
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/edit_profile", resp.location)
	assert.Equal(t, []string{"Your changes have been saved"}, susan.get("/edit_profile").view(t).Flashes)

	profile := susan.get("/user/sue").view(t)
	assert.Equal(t, "I like cats", profile.User.AboutMe)
	assert.True(t, profile.IsSelf, "the session survives a rename")
}

func TestActivity(t *testing.T) {
	srv := newServer(t, 5)
	susan := srv.signUp(t, "susan")
	susan.submit("hello")

	resp := susan.get("/activity?limit=500")
	require.Equal(t, http.StatusOK, resp.status)

	var events []struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(resp.body, &events))
	require.NotEmpty(t, events)
	assert.Equal(t, "post.create", events[0].Type)
}

func TestWebSocketReceivesFollowedPosts(t *testing.T) {
	srv := newServer(t, 5)
	alice := srv.signUp(t, "alice")
	bob := srv.signUp(t, "bob")
	alice.get("/follow/bob")

	header := http.Header{}
	header.Set("Cookie", auth.CookieName+"="+alice.cookie(auth.CookieName))
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	read := func() map[string]any {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	// The pong proves the connection is registered with the hub.
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	assert.Equal(t, "pong", read()["action"])

	bob.submit("live update")

	msg := read()
	assert.Equal(t, "post.created", msg["action"])
	payload, ok := msg["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "live update", payload["body"])

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "dance"}))
	assert.Equal(t, "error", read()["action"])
}
