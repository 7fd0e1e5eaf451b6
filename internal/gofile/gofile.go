// Package gofile uploads a local file to the GoFile public host and
// returns the durable download-page link.
package gofile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ErrUpload wraps every publication failure: transport errors, non-2xx
// responses and "ok"-less service statuses alike.
var ErrUpload = errors.New("upload failed")

type Client struct {
	httpClient *http.Client
	uploadURL  string
	logger     *zap.Logger
}

func NewClient(uploadURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		// Uploads of large audio files are slow; give them room.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		uploadURL:  uploadURL,
		logger:     logger,
	}
}

type uploadResponse struct {
	Status string `json:"status"`
	Data   struct {
		DownloadPage string `json:"downloadPage"`
		Error        string `json:"error"`
	} `json:"data"`
}

// Upload streams the file as multipart field "file" and returns the
// download page URL. The service's own status field is authoritative:
// an HTTP 200 with status != "ok" is still a failure, and the service's
// error text is surfaced when present.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrUpload, path, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, pr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrUpload, resp.StatusCode)
	}

	var body uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUpload, err)
	}

	if body.Status != "ok" {
		reason := body.Data.Error
		if reason == "" {
			reason = "unknown error"
		}
		return "", fmt.Errorf("%w: service reported: %s", ErrUpload, reason)
	}
	if body.Data.DownloadPage == "" {
		return "", fmt.Errorf("%w: service returned no download page", ErrUpload)
	}

	c.logger.Info("file published", zap.String("file", filepath.Base(path)), zap.String("link", body.Data.DownloadPage))
	return body.Data.DownloadPage, nil
}
