package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultTokenFile is where AuthorizeOAuth's token is saved when
// GOOGLE_OAUTH_TOKEN_FILE is unset.
const DefaultTokenFile = "token.json"

var errNoOAuthClient = errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")

// OAuthConfigFromEnv reads the OAuth client from GOOGLE_OAUTH_CLIENT_JSON or
// GOOGLE_OAUTH_CLIENT_FILE.
func OAuthConfigFromEnv() (*oauth2.Config, error) {
	var (
		raw []byte
		err error
	)
	clientJSON := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	clientFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))
	switch {
	case clientJSON != "":
		raw = []byte(clientJSON)
	case clientFile != "":
		raw, err = os.ReadFile(clientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
	default:
		return nil, errNoOAuthClient
	}

	cfg, err := googleoauth.ConfigFromJSON(raw, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// TokenFile returns GOOGLE_OAUTH_TOKEN_FILE or DefaultTokenFile.
func TokenFile() string {
	if f := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")); f != "" {
		return f
	}
	return DefaultTokenFile
}

// tokenFromEnv reads the saved token from GOOGLE_OAUTH_TOKEN_JSON or the
// token file.
func tokenFromEnv() (*oauth2.Token, error) {
	raw := []byte(strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_JSON")))
	if len(raw) == 0 {
		var err error
		raw, err = os.ReadFile(TokenFile())
		if err != nil {
			return nil, fmt.Errorf("read oauth token: %w", err)
		}
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return &tok, nil
}

// oauthTokenSource returns a refreshing token source when an OAuth client is
// configured, or errNoOAuthClient.
func oauthTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tok, err := tokenFromEnv()
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}

// SaveToken writes tok as JSON readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// AuthorizeOAuth runs the installed-app flow: it prints the consent URL to
// out, waits for the redirect on http://localhost:<port>/callback and
// exchanges the code for a token. The OAuth client must list that redirect
// URI.
func AuthorizeOAuth(ctx context.Context, cfg *oauth2.Config, port string, out io.Writer) (*oauth2.Token, error) {
	cfg.RedirectURL = "http://localhost:" + port + "/callback"

	ln, err := net.Listen("tcp", "localhost:"+port)
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback: %w", err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		if e := r.URL.Query().Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("oauth error: %s", e):
			default:
			}
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	fmt.Fprintf(out, "Open this URL to authorize:\n%s\n", cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
