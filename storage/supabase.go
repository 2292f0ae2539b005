package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Supabase talks to the Supabase Storage REST API.
type Supabase struct {
	BaseURL    string // project URL, e.g. https://xyz.supabase.co
	ServiceKey string
	Bucket     string
	HTTPClient *http.Client
}

// NewSupabase returns a client for bucket. An empty bucket means DefaultBucket.
func NewSupabase(baseURL, serviceKey, bucket string) *Supabase {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Supabase{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		Bucket:     bucket,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Supabase) client() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}

func (s *Supabase) objectURL(prefix, key string) string {
	return s.BaseURL + "/storage/v1/object/" + prefix + url.PathEscape(s.Bucket) + "/" + escapeKey(key)
}

func escapeKey(key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// Put uploads data with upsert enabled so re-imports overwrite.
func (s *Supabase) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL("", key), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("storage: build upload request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age=3600")
	req.Header.Set("x-upsert", "true")

	if err := s.do(req); err != nil {
		return "", fmt.Errorf("storage: upload %s: %w", key, err)
	}
	return s.URL(key), nil
}

func (s *Supabase) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL("", key), nil)
	if err != nil {
		return fmt.Errorf("storage: build delete request: %w", err)
	}
	s.authorize(req)
	if err := s.do(req); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// URL returns the public object URL; the bucket must be public.
func (s *Supabase) URL(key string) string {
	return s.objectURL("public/", key)
}

func (s *Supabase) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.ServiceKey)
	req.Header.Set("apikey", s.ServiceKey)
}

func (s *Supabase) do(req *http.Request) error {
	resp, err := s.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
