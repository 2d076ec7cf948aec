// Package provision creates accounts on remote backend chat servers by
// replaying the backend's own administrator login flow: fetch a CSRF token,
// log in with the stored admin credentials, confirm the admin role, then
// issue the user-creation call under the captured session cookies.
package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/models"
)

// Client talks to backend chat servers. One client serves all configured
// servers; every call takes the target server explicitly.
type Client struct {
	httpClient *resty.Client
}

// NewClient builds a provisioning client. Redirect following and the
// automatic cookie jar are disabled: the handshake forwards the login
// cookies by hand, and a redirect in the middle of it would drop them.
func NewClient() *Client {
	httpClient := resty.New().
		SetRedirectPolicy(resty.NoRedirectPolicy()).
		SetCookieJar(nil)

	return &Client{httpClient: httpClient}
}

// AdminSession is an authenticated administrator session on one backend
// server: the session cookies captured at login plus a CSRF token valid
// under them.
type AdminSession struct {
	Cookie    string
	CSRFToken string
}

// CreateUserRequest describes the account to provision.
type CreateUserRequest struct {
	Handle   string
	Name     string
	Password string
}

// fetchCSRFToken returns the token plus any session cookie the backend set
// on the token route itself. Some backends mint their session on this first
// GET and scope the token to it, so the cookie must travel with the login.
func (c *Client) fetchCSRFToken(ctx context.Context, baseURL, cookie string) (string, string, error) {
	req := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")
	if cookie != "" {
		req.SetHeader("Cookie", cookie)
	}

	resp, err := req.Get(strings.TrimRight(baseURL, "/") + "/csrf-token")
	if err != nil {
		return "", "", fmt.Errorf("%w: csrf token fetch: %w", ErrRemoteRequestFailed, err)
	}

	setCookie := extractSessionCookies(resp.Cookies())

	// Backends running with CSRF protection disabled still serve this route
	// but answer 403; create calls then use the literal token "disabled".
	if resp.StatusCode() == 403 || resp.StatusCode() == 404 {
		return "disabled", setCookie, nil
	}
	if resp.IsError() {
		return "", "", fmt.Errorf("%w: csrf token fetch status %d", ErrRemoteRequestFailed, resp.StatusCode())
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", "", fmt.Errorf("%w: error decoding csrf token: %w", ErrRemoteRequestFailed, err)
	}
	if body.Token == "" {
		return "disabled", setCookie, nil
	}

	return body.Token, setCookie, nil
}

// Login authenticates against the server with its stored administrator
// credentials and verifies the account actually holds the admin role. The
// returned session is required by CreateUser.
func (c *Client) Login(ctx context.Context, server models.Server) (AdminSession, error) {
	log := logger.FromContext(ctx)
	baseURL := strings.TrimRight(server.URL, "/")

	csrfToken, anonCookie, err := c.fetchCSRFToken(ctx, baseURL, "")
	if err != nil {
		return AdminSession{}, err
	}

	loginReq := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-CSRF-Token", csrfToken).
		SetBody(map[string]string{
			"handle":   server.AdminUsername,
			"password": server.AdminPassword,
		})
	if anonCookie != "" {
		loginReq.SetHeader("Cookie", anonCookie)
	}

	resp, err := loginReq.Post(baseURL + "/api/users/login")
	if err != nil {
		return AdminSession{}, fmt.Errorf("%w: login: %w", ErrRemoteRequestFailed, err)
	}
	if resp.IsError() {
		log.Warn().Str("server", server.Name).Int("status", resp.StatusCode()).Msg("backend rejected administrator login")
		return AdminSession{}, fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode())
	}

	// The session cookie may have been minted at the token route already; a
	// login response that sets none keeps it.
	cookie := extractSessionCookies(resp.Cookies())
	if cookie == "" {
		cookie = anonCookie
	}
	if cookie == "" {
		return AdminSession{}, ErrMissingSessionCookie
	}

	if err := c.verifyAdminRole(ctx, baseURL, cookie); err != nil {
		return AdminSession{}, err
	}

	// The pre-login token is tied to the anonymous session; the create call
	// needs one minted under the authenticated cookies.
	sessionToken, rotated, err := c.fetchCSRFToken(ctx, baseURL, cookie)
	if err != nil {
		return AdminSession{}, err
	}
	if rotated != "" {
		cookie = rotated
	}

	return AdminSession{Cookie: cookie, CSRFToken: sessionToken}, nil
}

func (c *Client) verifyAdminRole(ctx context.Context, baseURL, cookie string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("Cookie", cookie).
		Get(baseURL + "/api/users/me")
	if err != nil {
		return fmt.Errorf("%w: role check: %w", ErrRemoteRequestFailed, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: role check status %d", ErrRemoteRequestFailed, resp.StatusCode())
	}

	var me struct {
		Admin bool `json:"admin"`
	}
	if err := json.Unmarshal(resp.Body(), &me); err != nil {
		return fmt.Errorf("%w: error decoding role check: %w", ErrRemoteRequestFailed, err)
	}
	if !me.Admin {
		return ErrNotAnAdministrator
	}

	return nil
}

// CreateUser provisions one account under the given administrator session.
func (c *Client) CreateUser(ctx context.Context, server models.Server, session AdminSession, user CreateUserRequest) error {
	baseURL := strings.TrimRight(server.URL, "/")

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Cookie", session.Cookie).
		SetHeader("X-CSRF-Token", session.CSRFToken).
		SetBody(map[string]string{
			"handle":   user.Handle,
			"name":     user.Name,
			"password": user.Password,
		}).
		Post(baseURL + "/api/users/create")
	if err != nil {
		return fmt.Errorf("%w: create user: %w", ErrRemoteRequestFailed, err)
	}

	if resp.StatusCode() == 409 {
		return ErrUserAlreadyExists
	}
	if resp.IsError() {
		return fmt.Errorf("%w: create user status %d", ErrRemoteRequestFailed, resp.StatusCode())
	}

	return nil
}

// ProvisionUser runs the full handshake against one server: administrator
// login, role check and account creation.
func (c *Client) ProvisionUser(ctx context.Context, server models.Server, user CreateUserRequest) error {
	session, err := c.Login(ctx, server)
	if err != nil {
		return err
	}

	return c.CreateUser(ctx, server, session, user)
}

// TestConnection verifies the stored administrator credentials against the
// server without creating anything. Used by the administrator panel before
// a server is saved or activated.
func (c *Client) TestConnection(ctx context.Context, server models.Server) error {
	_, err := c.Login(ctx, server)
	return err
}
