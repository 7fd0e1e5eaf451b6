package dab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// TrackID is string-comparable regardless of whether the API serialises
// the id as a JSON number or a JSON string.
type TrackID string

func (t *TrackID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*t = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*t = TrackID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = TrackID(n.String())
	return nil
}

func (t TrackID) String() string { return string(t) }

// Track is one catalog search result.
type Track struct {
	ID         TrackID `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	AlbumTitle string  `json:"albumTitle"`
	AlbumCover string  `json:"albumCover"`

	AudioQuality struct {
		SamplingRate int  `json:"maximumSampleRate"`
		BitDepth     int  `json:"maximumBitDepth"`
		IsHiRes      bool `json:"isHiRes"`
	} `json:"audioQuality"`
}

// Search runs GET /search?q= and returns the catalog's track list.
func (c *Client) Search(ctx context.Context, query string) ([]Track, error) {
	var result struct {
		Tracks []Track `json:"tracks"`
	}
	if err := c.getJSON(ctx, "/search?q="+url.QueryEscape(query), &result); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return result.Tracks, nil
}

// StreamURL resolves a time-limited playback URL for a track. A well-formed
// response without a URL yields ErrNoStreamURL, not a transport error.
func (c *Client) StreamURL(ctx context.Context, trackID string) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, "/stream?trackId="+url.QueryEscape(trackID), &result); err != nil {
		return "", fmt.Errorf("stream %s: %w", trackID, err)
	}
	if result.URL == "" {
		return "", ErrNoStreamURL
	}
	return result.URL, nil
}

// Lyrics fetches the lyrics text for a track. An empty string with a nil
// error means the catalog has no lyrics for it.
func (c *Client) Lyrics(ctx context.Context, trackID string) (string, error) {
	var result struct {
		Lyrics string `json:"lyrics"`
	}
	if err := c.getJSON(ctx, "/lyrics/"+url.PathEscape(trackID), &result); err != nil {
		return "", fmt.Errorf("lyrics %s: %w", trackID, err)
	}
	return result.Lyrics, nil
}
