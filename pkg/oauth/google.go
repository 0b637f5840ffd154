package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	ErrInvalidCode        = errors.New("invalid authorization code")
	ErrFailedToGetUser    = errors.New("failed to get user info from Google")
	ErrInvalidState       = errors.New("invalid state parameter")
	ErrOAuthNotConfigured = errors.New("Google sign-in is not configured")
	ErrUnverifiedEmail    = errors.New("Google account email is not verified")
)

const (
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateTTL           = 10 * time.Minute
)

// GoogleUser is the profile returned by Google's userinfo endpoint
type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// Config holds the Google client credentials and where to send the browser
// once sign-in finishes
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	SuccessURL   string
	ErrorURL     string
	// StateSecret signs the state parameter
	StateSecret string
}

// GoogleProvider signs patients in with their Google account. The state
// parameter is an HMAC-signed timestamp, so no server-side session is kept.
type GoogleProvider struct {
	oauth       *oauth2.Config
	cfg         Config
	userInfoURL string
	now         func() time.Time
}

// NewGoogleProvider creates a Google sign-in provider
func NewGoogleProvider(cfg Config) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		cfg:         cfg,
		userInfoURL: defaultUserInfoURL,
		now:         time.Now,
	}
}

// IsConfigured checks if client credentials are set
func (p *GoogleProvider) IsConfigured() bool {
	return p.cfg.ClientID != "" && p.cfg.ClientSecret != ""
}

// AuthURL returns the consent URL together with the state it embeds
func (p *GoogleProvider) AuthURL() (string, string, error) {
	if !p.IsConfigured() {
		return "", "", ErrOAuthNotConfigured
	}
	state, err := p.newState()
	if err != nil {
		return "", "", err
	}
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), state, nil
}

// Authenticate checks state, exchanges code and fetches the user's profile
func (p *GoogleProvider) Authenticate(ctx context.Context, state, code string) (*GoogleUser, error) {
	if !p.IsConfigured() {
		return nil, ErrOAuthNotConfigured
	}
	if err := p.verifyState(state); err != nil {
		return nil, err
	}

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}

	user, err := p.fetchUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if !user.VerifiedEmail {
		return nil, ErrUnverifiedEmail
	}
	return user, nil
}

func (p *GoogleProvider) fetchUser(ctx context.Context, token *oauth2.Token) (*GoogleUser, error) {
	client := p.oauth.Client(ctx, token)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToGetUser, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrFailedToGetUser, resp.StatusCode, string(body))
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToGetUser, err)
	}
	return &user, nil
}

// SuccessURL is where the browser lands after sign-in
func (p *GoogleProvider) SuccessURL() string {
	return p.cfg.SuccessURL
}

// ErrorURL is where the browser lands when sign-in fails
func (p *GoogleProvider) ErrorURL() string {
	return p.cfg.ErrorURL
}

// state is "<nonce>.<unix seconds>.<signature>"
func (p *GoogleProvider) newState() (string, error) {
	nonce := make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(nonce) + "." + strconv.FormatInt(p.now().Unix(), 10)
	return payload + "." + p.sign(payload), nil
}

func (p *GoogleProvider) verifyState(state string) error {
	i := strings.LastIndex(state, ".")
	if i < 0 {
		return ErrInvalidState
	}
	payload, sig := state[:i], state[i+1:]
	if !hmac.Equal([]byte(sig), []byte(p.sign(payload))) {
		return ErrInvalidState
	}

	parts := strings.SplitN(payload, ".", 2)
	if len(parts) != 2 {
		return ErrInvalidState
	}
	issued, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return ErrInvalidState
	}
	if p.now().Sub(time.Unix(issued, 0)) > stateTTL {
		return ErrInvalidState
	}
	return nil
}

func (p *GoogleProvider) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(p.cfg.StateSecret+p.cfg.ClientSecret))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
