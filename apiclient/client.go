// Package apiclient talks to the invoicing API: sign-in, the item catalog,
// and invoice persistence with optimistic concurrency.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	// BaseURL including the API prefix, e.g. "https://host/api".
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored then.
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	logger  logrus.FieldLogger
}

func New(cfg Config, session *Session) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	if session == nil {
		session = NewSession()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		session: session,
		logger:  logger,
	}
}

func (c *Client) Session() *Session { return c.session }

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// SignupRequest registers a company together with its first user.
type SignupRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	CompanyName    string `json:"companyName"`
	Address        string `json:"address"`
	City           string `json:"city"`
	Zip            string `json:"zip"`
	Industry       string `json:"industry"`
	CurrencySymbol string `json:"currencySymbol"`
}

// Login exchanges credentials for a bearer token and stores it in the session.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.doJSON(ctx, false, http.MethodPost, "/Auth/Login", nil,
		loginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	c.session.set(out)
	return &out, nil
}

// Signup creates the company and user and signs in as that user. When
// logo is given it is uploaded afterwards; if that upload fails the
// account stays created and the result comes with a *PartialSuccessError.
func (c *Client) Signup(ctx context.Context, req SignupRequest, logo *Picture) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.doJSON(ctx, false, http.MethodPost, "/Auth/Signup", nil, req, &out); err != nil {
		return nil, err
	}
	c.session.set(out)
	if logo == nil {
		return &out, nil
	}
	if err := c.UploadCompanyLogo(ctx, *logo); err != nil {
		return &out, &PartialSuccessError{PrimaryKeyID: out.Company.CompanyID, Err: err}
	}
	return &out, nil
}

// UploadCompanyLogo replaces the signed-in user's company logo.
func (c *Client) UploadCompanyLogo(ctx context.Context, logo Picture) error {
	return c.postFile(ctx, "/Auth/UpdateCompanyLogo", nil, logo)
}

// CompanyLogoURL returns the public URL of a company's logo. No session is
// needed.
func (c *Client) CompanyLogoURL(ctx context.Context, companyID int) (string, error) {
	var out string
	err := c.doJSON(ctx, false, http.MethodGet, "/Auth/GetCompanyLogoUrl/"+strconv.Itoa(companyID), nil, nil, &out)
	return out, err
}

func (c *Client) CompanyLogoThumbnailURL(ctx context.Context, companyID int) (string, error) {
	var out string
	err := c.doJSON(ctx, false, http.MethodGet, "/Auth/GetCompanyLogoThumbnailUrl/"+strconv.Itoa(companyID), nil, nil, &out)
	return out, err
}

// Logout revokes the token on the server and empties the session. The
// session is emptied even when the server could not be reached.
func (c *Client) Logout(ctx context.Context) error {
	defer c.session.Logout()
	if _, ok := c.session.Token(); !ok {
		return nil
	}
	return c.doJSON(ctx, true, http.MethodPost, "/Auth/Logout", nil, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, auth bool, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, auth, method, path, query, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// postFile sends fields and pic as a multipart form, the image in field File.
func (c *Client) postFile(ctx context.Context, path string, fields map[string]string, pic Picture) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("File", pic.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, pic.Data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, true, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, nil)
}

func (c *Client) newRequest(ctx context.Context, auth bool, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		token, ok := c.session.Token()
		if !ok {
			return nil, &SaveError{Kind: Unauthenticated, Err: ErrUnauthenticated}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send performs req and decodes a 2xx body into out. Any other outcome is
// returned as a *SaveError.
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
		}).Warn("api request failed: " + err.Error())
		return &SaveError{Kind: NetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &SaveError{Kind: NetworkFailure, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := classify(resp.StatusCode, body)
		c.logger.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
			"status": resp.StatusCode,
			"kind":   se.Kind.String(),
		}).Warn(se.Error())
		return se
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	switch o := out.(type) {
	case *string:
		*o = strings.TrimSpace(string(body))
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func classify(status int, body []byte) *SaveError {
	msg := serverMessage(body)
	se := &SaveError{Status: status, Message: msg}
	switch {
	case status == http.StatusConflict:
		se.Kind = Conflict
		se.Err = ErrConflict
	case status == http.StatusNotFound:
		se.Kind = NotFound
		se.Err = ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		se.Kind = Unauthenticated
		se.Err = ErrUnauthenticated
	case status >= 500, status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		se.Kind = NetworkFailure
		se.Err = ErrNetworkFailure
	default:
		se.Kind = ValidationRejected
		se.Err = ErrValidationRejected
	}
	if se.Message == "" {
		se.Message = http.StatusText(status)
	}
	return se
}

// serverMessage pulls the human message out of an error body. The server
// answers {"error": "..."}; anything else is used as plain text.
func serverMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}
