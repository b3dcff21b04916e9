// Package api is the calling side of the remote REST surface: portfolio,
// user profiles, image upload, and the wallet-signature login exchange, plus
// the JSON-RPC balance read. All durable state lives behind these endpoints;
// the client never caches beyond the session store.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ahitposter/Brovado/internal/models"
)

const maxErrorBodyBytes int64 = 64 << 10

type Client struct {
	baseURL    *url.URL
	rpcURL     string
	httpClient *http.Client
	token      string
}

func New(baseURL, rpcURL string, timeout time.Duration) (*Client, error) {
	raw := strings.TrimSpace(baseURL)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}

	return &Client{
		baseURL: parsed,
		rpcURL:  rpcURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetToken switches the bearer token used for every subsequent call; called
// on identity change.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) apiURL(p string) string {
	u := *c.baseURL
	u.Path = path.Join(strings.TrimSuffix(u.Path, "/"), p)
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, p string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL(p), body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	return req, nil
}

func readBodyLimited(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	return strings.TrimSpace(string(data))
}

func (c *Client) do(req *http.Request, what string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyLimited(resp.Body)
		if body == "" {
			body = resp.Status
		}
		return fmt.Errorf("%s failed (%s): %s", what, resp.Status, body)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s failed: %w", what, err)
	}
	return nil
}

// Holdings fetches the portfolio snapshot for one address.
func (c *Client) Holdings(ctx context.Context, address string) ([]models.Holding, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/portfolio/"+address, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Holdings []models.Holding `json:"holdings"`
	}
	if err := c.do(req, "holdings fetch", &payload); err != nil {
		return nil, err
	}
	return payload.Holdings, nil
}

// User fetches the profile record shown in the chat header.
func (c *Client) User(ctx context.Context, address string) (models.UserProfile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/"+address, nil)
	if err != nil {
		return models.UserProfile{}, err
	}

	var profile models.UserProfile
	if err := c.do(req, "profile fetch", &profile); err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}

// UploadImage pushes one staged attachment and returns the storage path the
// send payload references. An empty path in the response is a failure: the
// caller must abort the send.
func (c *Client) UploadImage(ctx context.Context, att models.Attachment) (string, error) {
	data, contentType, err := decodeDataURL(att.Data)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="image"; filename="%s"`, att.Name)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/images", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var payload struct {
		ImagePath string `json:"imagePath"`
	}
	if err := c.do(req, "image upload", &payload); err != nil {
		return "", err
	}
	if payload.ImagePath == "" {
		return "", fmt.Errorf("image upload failed: empty path in response")
	}
	return payload.ImagePath, nil
}

// ExchangeSignature trades a wallet signature challenge response for a
// bearer token. The signature itself is produced outside this client.
func (c *Client) ExchangeSignature(ctx context.Context, address, signature string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"address":   address,
		"signature": signature,
	})
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/signature", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var payload struct {
		Token string `json:"token"`
	}
	if err := c.do(req, "login", &payload); err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", fmt.Errorf("login failed: no token in response")
	}
	return payload.Token, nil
}

// decodeDataURL splits a data URL into raw bytes and its content type.
func decodeDataURL(dataURL string) ([]byte, string, error) {
	rest, found := strings.CutPrefix(dataURL, "data:")
	if !found {
		return nil, "", fmt.Errorf("not a data url")
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", fmt.Errorf("malformed data url")
	}

	contentType := "application/octet-stream"
	if ct, _, ok := strings.Cut(meta, ";"); ok && ct != "" {
		contentType = ct
	} else if meta != "" && !strings.Contains(meta, ";") {
		contentType = meta
	}

	if !strings.Contains(meta, "base64") {
		return nil, "", fmt.Errorf("data url is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode data url: %w", err)
	}
	return data, contentType, nil
}
