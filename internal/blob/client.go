package blob

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Bucket groups uploads of one kind under their own folder.
type Bucket string

const (
	Photographs Bucket = "photographs"
	Signatures  Bucket = "signatures"
)

// ParseBucket accepts only the known buckets.
func ParseBucket(s string) (Bucket, error) {
	switch b := Bucket(strings.ToLower(strings.TrimSpace(s))); b {
	case Photographs, Signatures:
		return b, nil
	}
	return "", fmt.Errorf("unknown bucket %q", s)
}

var (
	// ErrNotConfigured is returned by uploads when no Cloudinary credentials are set.
	ErrNotConfigured = errors.New("image storage not configured")
	// ErrForeignURL is returned by Fetch for URLs outside this cloud's delivery host.
	ErrForeignURL = errors.New("blob: url is not a stored upload")
)

const (
	defaultBaseURL     = "https://api.cloudinary.com"
	defaultDeliveryURL = "https://res.cloudinary.com"
	maxFetchBytes      = 10 << 20
)

// Client uploads images to Cloudinary using their REST API.
type Client struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	BaseURL   string
	// DeliveryURL is where uploads are served from; Fetch reads nothing else.
	DeliveryURL string
	HTTP        *http.Client
	now         func() time.Time
}

// New creates a Cloudinary client.
func New(cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		BaseURL:     defaultBaseURL,
		DeliveryURL: defaultDeliveryURL,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
		now:         time.Now,
	}
}

// UploadResult holds the response from Cloudinary after a successful upload.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
}

// Upload stores data under bucket with a stable public id derived from name, replacing
// any earlier upload with the same name.
func (c *Client) Upload(ctx context.Context, bucket Bucket, name string, data []byte) (*UploadResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("blob: empty upload for %s/%s", bucket, name)
	}
	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
		"api_key":   c.APIKey,
		"folder":    c.folder(bucket),
		"public_id": strings.TrimSuffix(name, path.Ext(name)),
		"overwrite": "true",
	}
	params["signature"] = c.sign(params)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_ = w.WriteField(k, params[k])
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("blob: create form file failed: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("blob: write file failed: %w", err)
	}
	w.Close()

	url := fmt.Sprintf("%s/v1_1/%s/image/upload", strings.TrimRight(c.BaseURL, "/"), c.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("blob: create request failed: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blob: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("blob: upload failed (%d): %s", resp.StatusCode, string(body))
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("blob: decode response failed: %w", err)
	}
	return &result, nil
}

// Configured reports whether uploads can be signed.
func (c *Client) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// UploadFile uploads data and returns its public URL.
func (c *Client) UploadFile(ctx context.Context, bucket Bucket, name string, data []byte) (string, error) {
	res, err := c.Upload(ctx, bucket, name, data)
	if err != nil {
		return "", err
	}
	return res.SecureURL, nil
}

// Fetch downloads a previously uploaded file. Only URLs under
// <DeliveryURL>/<CloudName>/ are read, redirects included.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !c.delivered(url) {
		return nil, fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("blob: create request failed: %w", err)
	}
	hc := *c.HTTP
	hc.CheckRedirect = func(r *http.Request, via []*http.Request) error {
		if len(via) >= 5 || !c.delivered(r.URL.String()) {
			return fmt.Errorf("%w: redirect to %s", ErrForeignURL, r.URL.Redacted())
		}
		return nil
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blob: fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blob: fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("blob: read body failed: %w", err)
	}
	if len(data) > maxFetchBytes {
		return nil, fmt.Errorf("blob: %s exceeds %d bytes", url, maxFetchBytes)
	}
	return data, nil
}

func (c *Client) delivered(raw string) bool {
	if c.CloudName == "" {
		return false
	}
	base, err := url.Parse(c.DeliveryURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.User != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) &&
		strings.EqualFold(u.Host, base.Host) &&
		strings.HasPrefix(u.Path, "/"+c.CloudName+"/")
}

func (c *Client) folder(bucket Bucket) string {
	if c.Folder == "" {
		return string(bucket)
	}
	return c.Folder + "/" + string(bucket)
}

// sign computes the Cloudinary API signature from the given params.
// api_key, file and resource_type are never signed.
func (c *Client) sign(params map[string]string) string {
	excludeKeys := map[string]bool{"api_key": true, "file": true, "resource_type": true}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if !excludeKeys[k] && v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)

	payload := strings.Join(pairs, "&") + c.APISecret
	h := sha1.New()
	h.Write([]byte(payload))
	return fmt.Sprintf("%x", h.Sum(nil))
}
