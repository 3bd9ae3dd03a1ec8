package blob

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New("demo", "key", "secret", "preboard")
	c.BaseURL = srv.URL
	c.DeliveryURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c, srv
}

func TestUploadFileSignsAndReturnsSecureURL(t *testing.T) {
	var got map[string]string
	var file []byte
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1_1/demo/image/upload", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		got = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			got[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		file, _ = io.ReadAll(f)
		fmt.Fprint(w, `{"public_id":"preboard/photographs/s-1","secure_url":"https://res.example/p.jpg"}`)
	})

	url, err := c.UploadFile(context.Background(), Photographs, "s-1.jpg", []byte("jpegdata"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/p.jpg", url)
	assert.Equal(t, []byte("jpegdata"), file)
	assert.Equal(t, "preboard/photographs", got["folder"])
	assert.Equal(t, "s-1", got["public_id"])
	assert.Equal(t, "key", got["api_key"])

	payload := "folder=preboard/photographs&overwrite=true&public_id=s-1&timestamp=1700000000secret"
	assert.Equal(t, fmt.Sprintf("%x", sha1.Sum([]byte(payload))), got["signature"])
}

func TestUploadFailureCarriesStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	})
	_, err := c.UploadFile(context.Background(), Signatures, "s-1.png", []byte("png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestUploadRejectsEmptyData(t *testing.T) {
	c := New("demo", "key", "secret", "")
	_, err := c.UploadFile(context.Background(), Signatures, "s-1.png", nil)
	assert.Error(t, err)
}

func TestFetch(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/demo/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("image-bytes"))
	})

	data, err := c.Fetch(context.Background(), srv.URL+"/demo/image/upload/p.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)

	_, err = c.Fetch(context.Background(), srv.URL+"/demo/missing")
	assert.Error(t, err)
}

func TestFetchStaysOnDeliveryHost(t *testing.T) {
	var internalHits int
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		internalHits++
		_, _ = w.Write([]byte("secret"))
	}))
	t.Cleanup(internal.Close)

	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internal.URL+"/demo/p.jpg", http.StatusFound)
	})

	for _, u := range []string{
		internal.URL + "/demo/p.jpg",
		srv.URL + "/other-cloud/p.jpg",
		"file:///etc/passwd",
		"not a url",
	} {
		_, err := c.Fetch(context.Background(), u)
		assert.ErrorIs(t, err, ErrForeignURL, u)
	}

	_, err := c.Fetch(context.Background(), srv.URL+"/demo/p.jpg")
	assert.ErrorIs(t, err, ErrForeignURL)
	assert.Zero(t, internalHits)

	c.CloudName = ""
	_, err = c.Fetch(context.Background(), srv.URL+"/demo/p.jpg")
	assert.ErrorIs(t, err, ErrForeignURL)
}

func TestDefaultDeliveryHost(t *testing.T) {
	c := New("demo", "", "", "")
	assert.True(t, c.delivered("https://res.cloudinary.com/demo/image/upload/v1/preboard/photographs/s-1.jpg"))
	assert.False(t, c.delivered("http://res.cloudinary.com/demo/image/upload/s-1.jpg"))
	assert.False(t, c.delivered("https://res.cloudinary.com.evil.test/demo/s-1.jpg"))
	assert.False(t, c.delivered("https://169.254.169.254/demo/latest"))
}

func TestParseBucket(t *testing.T) {
	b, err := ParseBucket(" Signatures ")
	require.NoError(t, err)
	assert.Equal(t, Signatures, b)

	_, err = ParseBucket("avatars")
	assert.Error(t, err)
}

func TestUploadWithoutCredentials(t *testing.T) {
	c := New("", "", "", "")
	_, err := c.UploadFile(context.Background(), Photographs, "s-1.jpg", []byte("x"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}
