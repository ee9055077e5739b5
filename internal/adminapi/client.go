package adminapi

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running daemon's admin API, keeping the admin
// session cookie in an in-memory jar.
type Client struct {
	baseURL *url.URL
	hc      *http.Client
}

type ClientOptions struct {
	Addr     string
	Insecure bool
	Timeout  time.Duration
}

func NewClient(opt ClientOptions) (*Client, error) {
	if opt.Addr == "" {
		return nil, errors.New("addr is required")
	}
	u, err := url.Parse(opt.Addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Host == "" {
		return nil, errors.New("invalid addr")
	}

	jar, _ := cookiejar.New(nil)
	t := &http.Transport{}
	if strings.EqualFold(u.Scheme, "https") {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: opt.Insecure} //nolint:gosec
	}

	timeout := opt.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	hc := &http.Client{Transport: t, Jar: jar, Timeout: timeout}
	return &Client{baseURL: u, hc: hc}, nil
}

func (c *Client) LoginAdmin(password string) error {
	var req struct {
		Password string `json:"password"`
	}
	req.Password = password
	return c.doJSON("POST", "/api/admin/login", req, nil)
}

func (c *Client) LogoutAdmin() error {
	return c.doJSON("POST", "/api/admin/logout", map[string]string{}, nil)
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Tokens    int64  `json:"tokens"`
	CreatedAt int64  `json:"created_at"`
}

func (c *Client) ListUsers() ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.doJSON("GET", "/api/admin/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *Client) CreateUser(username, password string) (int64, error) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	req.Username = username
	req.Password = password

	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.doJSON("POST", "/api/admin/users", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *Client) SetUserPassword(id int64, password string) error {
	var req struct {
		Password string `json:"password"`
	}
	req.Password = password
	return c.doJSON("POST", "/api/admin/users/"+itoa(id)+"/password", req, nil)
}

func (c *Client) doJSON(method, path string, body any, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequest(method, u.String(), buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&er)
		if er.Error != "" {
			return errors.New(er.Error)
		}
		return errors.New(resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
