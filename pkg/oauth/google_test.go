package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testProvider(t *testing.T, verified bool) *GoogleProvider {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"id":"g-1","email":"ada@example.com","verified_email":%t,"given_name":"Ada","family_name":"Lovelace"}`, verified)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGoogleProvider(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		StateSecret:  "state-key",
	})
	p.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	p.userInfoURL = srv.URL + "/userinfo"
	return p
}

func TestGoogleProvider_Authenticate(t *testing.T) {
	p := testProvider(t, true)

	authURL, state, err := p.AuthURL()
	require.NoError(t, err)
	assert.Contains(t, authURL, "state=")

	user, err := p.Authenticate(context.Background(), state, "code")
	require.NoError(t, err)
	assert.Equal(t, "g-1", user.ID)
	assert.Equal(t, "Ada", user.GivenName)
}

func TestGoogleProvider_RejectsUnverifiedEmail(t *testing.T) {
	p := testProvider(t, false)
	_, state, err := p.AuthURL()
	require.NoError(t, err)

	_, err = p.Authenticate(context.Background(), state, "code")
	assert.ErrorIs(t, err, ErrUnverifiedEmail)
}

func TestGoogleProvider_State(t *testing.T) {
	p := testProvider(t, true)
	_, state, err := p.AuthURL()
	require.NoError(t, err)

	assert.NoError(t, p.verifyState(state))
	assert.ErrorIs(t, p.verifyState(state+"x"), ErrInvalidState)
	assert.ErrorIs(t, p.verifyState("garbage"), ErrInvalidState)

	tampered := strings.Replace(state, ".", "X.", 1)
	assert.ErrorIs(t, p.verifyState(tampered), ErrInvalidState)

	p.now = func() time.Time { return time.Now().Add(stateTTL + time.Minute) }
	assert.ErrorIs(t, p.verifyState(state), ErrInvalidState)
}

func TestGoogleProvider_NotConfigured(t *testing.T) {
	p := NewGoogleProvider(Config{})
	_, _, err := p.AuthURL()
	assert.ErrorIs(t, err, ErrOAuthNotConfigured)
}
