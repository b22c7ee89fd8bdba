// Package auth exchanges user credentials for an admin API key.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"dwcli/internal/gateway"
	"dwcli/internal/logging"
)

type Method string

const (
	MethodNormal Method = "normal"
	MethodMFA    Method = "mfa"
	MethodTOTP   Method = "totp"
	MethodLink   Method = "link"
)

const (
	sessionCookie = "Dynamicweb.Admin"

	loginPath  = "/Admin/Authentication/Login"
	tokenPath  = "/Admin/Authentication/Token"
	apiKeyPath = "/Admin/Api/ApiKeySave"

	apiKeyName        = "addin"
	apiKeyDescription = "Auto-generated ApiKey by DW CLI"
)

var (
	ErrUnsupportedMethod = errors.New("authentication method is not supported")
	ErrLoginFailed       = errors.New("login failed, check username and password")
)

// ParseMethod maps a flag value to a Method. An empty value is MethodNormal.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodNormal, nil
	case MethodNormal, MethodMFA, MethodTOTP, MethodLink:
		return m, nil
	default:
		return "", fmt.Errorf("unknown authentication method %q", s)
	}
}

type Credentials struct {
	Username string
	Password string
}

type Environment struct {
	Protocol string
	Host     string
	Insecure bool
}

func (e Environment) baseURL() string {
	protocol := e.Protocol
	if protocol == "" {
		protocol = "https"
	}
	return protocol + "://" + e.Host
}

type Authenticator struct {
	logger *logging.Logger
}

func New(logger *logging.Logger) *Authenticator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Authenticator{logger: logger}
}

// Authenticate logs in with method and returns a newly issued API key.
func (a *Authenticator) Authenticate(ctx context.Context, method Method, creds Credentials, env Environment) (string, error) {
	if env.Host == "" {
		return "", errors.New("host is not set, configure DW_HOST or pass --host")
	}

	switch method {
	case MethodNormal, "":
	case MethodMFA, MethodTOTP, MethodLink:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	default:
		return "", fmt.Errorf("unknown authentication method %q", method)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return "", fmt.Errorf("failed to create cookie jar: %w", err)
	}
	client := gateway.NewHTTPClient(env.Protocol, env.Insecure)
	client.Jar = jar

	s := &session{client: client, baseURL: env.baseURL(), logger: a.logger}
	if err := s.login(ctx, creds); err != nil {
		return "", err
	}
	token, err := s.token(ctx)
	if err != nil {
		return "", err
	}
	return s.apiKey(ctx, token)
}

type session struct {
	client  *http.Client
	baseURL string
	logger  *logging.Logger
}

func (s *session) login(ctx context.Context, creds Credentials) error {
	form := url.Values{
		"Username": {creds.Username},
		"Password": {creds.Password},
	}
	resp, err := s.postForm(ctx, loginPath, form, "")
	if err != nil {
		return err
	}
	resp.Body.Close()

	u, err := url.Parse(s.baseURL + loginPath)
	if err != nil {
		return err
	}
	for _, c := range s.client.Jar.Cookies(u) {
		if c.Name == sessionCookie && c.Value != "" {
			return nil
		}
	}
	return ErrLoginFailed
}

func (s *session) token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.send("token", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.Token == "" {
		return "", errors.New("token response did not contain a token")
	}
	return body.Token, nil
}

func (s *session) apiKey(ctx context.Context, token string) (string, error) {
	form := url.Values{
		"Name":        {apiKeyName},
		"Prefix":      {apiKeyName},
		"Description": {apiKeyDescription},
	}
	resp, err := s.postForm(ctx, apiKeyPath, form, token)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode api key response: %w", err)
	}
	if body.Message == "" {
		return "", errors.New("api key response did not contain a key")
	}
	return body.Message, nil
}

func (s *session) postForm(ctx context.Context, path string, form url.Values, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(strings.TrimPrefix(path, "/"), req)
}

func (s *session) send(op string, req *http.Request) (*http.Response, error) {
	s.logger.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("request")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Debug().Str("op", op).Str("body", string(body)).Msg("error response body")
		return nil, &gateway.RemoteError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}
	return resp, nil
}
