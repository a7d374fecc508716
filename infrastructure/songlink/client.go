package songlink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"cogbot/domain/entities"
	"cogbot/domain/services"

	"github.com/kkdai/youtube/v2"
	log "github.com/sirupsen/logrus"
)

// MaxResponseBytes caps the size of an accepted API response body
const MaxResponseBytes = 512000

var (
	// ErrRateLimited is returned when the API answers 429
	ErrRateLimited = errors.New("songlink rate limited")

	// ErrServer is returned for 5xx responses, timeouts and network failures
	ErrServer = errors.New("songlink server error")

	// ErrPermanent is returned when retrying the same URL cannot succeed
	ErrPermanent = errors.New("songlink permanent error")
)

// VideoLookup fetches YouTube video metadata
type VideoLookup interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
}

// Client resolves music links through the SongLink API
type Client struct {
	apiURL     string
	httpClient *http.Client
	videos     VideoLookup
}

// NewClient creates a SongLink client
func NewClient(apiURL string, timeout time.Duration) *Client {
	return &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
		videos:     &youtube.Client{},
	}
}

type apiEntity struct {
	Title           string `json:"title"`
	ArtistName      string `json:"artistName"`
	ThumbnailURL    string `json:"thumbnailUrl"`
	ThumbnailURLRaw string `json:"thumbnailUrlRaw"`
}

type apiResponse struct {
	EntityUniqueID     string          `json:"entityUniqueId"`
	PageURL            string          `json:"pageUrl"`
	URL                string          `json:"url"`
	EntitiesByUniqueID orderedEntities `json:"entitiesByUniqueId"`
}

type entityEntry struct {
	id     string
	entity apiEntity
	// empty marks a value that is not an object or has no fields
	empty bool
}

// orderedEntities keeps entitiesByUniqueId in document order
type orderedEntities []entityEntry

func (o *orderedEntities) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("entitiesByUniqueId: expected object, got %v", tok)
	}

	var entries orderedEntities
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		entry := entityEntry{id: key}
		var fields map[string]json.RawMessage
		if json.Unmarshal(raw, &fields) != nil || len(fields) == 0 {
			entry.empty = true
		} else if json.Unmarshal(raw, &entry.entity) != nil {
			entry.empty = true
		}
		entries = append(entries, entry)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = entries
	return nil
}

func (o orderedEntities) lookup(id string) (entityEntry, bool) {
	for _, entry := range o {
		if entry.id == id {
			return entry, true
		}
	}
	return entityEntry{}, false
}

// Resolve converts a music link into a SongLink page with track metadata
func (c *Client) Resolve(ctx context.Context, sourceURL string) (*entities.SongInfo, error) {
	resp, err := c.fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	pageURL := resp.PageURL
	if pageURL == "" {
		pageURL = resp.URL
	}
	if pageURL == "" {
		return nil, fmt.Errorf("%w: response has no page url", ErrPermanent)
	}

	info := &entities.SongInfo{SourceURL: sourceURL, PageURL: pageURL}

	if entity, ok := selectEntity(resp); ok {
		info.Title = entity.Title
		info.Artist = entity.ArtistName
		info.ThumbnailURL = entity.ThumbnailURL
		if info.ThumbnailURL == "" {
			info.ThumbnailURL = entity.ThumbnailURLRaw
		}
		return info, nil
	}

	if services.IsYouTubeURL(sourceURL) && c.videos != nil {
		c.fillFromVideo(ctx, info)
	}
	return info, nil
}

// fetch performs the API request and classifies failures
func (c *Client) fetch(ctx context.Context, sourceURL string) (*apiResponse, error) {
	endpoint, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid api url: %v", ErrPermanent, err)
	}
	query := endpoint.Query()
	query.Set("url", sourceURL)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServer, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrPermanent, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServer, err)
	}
	if len(body) > MaxResponseBytes {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrPermanent, MaxResponseBytes)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrPermanent, err)
	}
	return &parsed, nil
}

// selectEntity picks the entity the API resolved the link to, even when it lacks a
// title or artist. Otherwise it takes the first entity in response order that has both.
func selectEntity(resp *apiResponse) (apiEntity, bool) {
	if resp.EntityUniqueID != "" {
		if entry, ok := resp.EntitiesByUniqueID.lookup(resp.EntityUniqueID); ok && !entry.empty {
			return entry.entity, true
		}
	}
	for _, entry := range resp.EntitiesByUniqueID {
		if !entry.empty && entry.entity.Title != "" && entry.entity.ArtistName != "" {
			return entry.entity, true
		}
	}
	return apiEntity{}, false
}

func (c *Client) fillFromVideo(ctx context.Context, info *entities.SongInfo) {
	video, err := c.videos.GetVideoContext(ctx, info.SourceURL)
	if err != nil {
		log.WithError(err).WithField("url", info.SourceURL).Debug("YouTube metadata fallback failed")
		return
	}

	info.Title = video.Title
	info.Artist = video.Author
	if len(video.Thumbnails) > 0 {
		best := video.Thumbnails[0]
		for _, thumb := range video.Thumbnails[1:] {
			if thumb.Width > best.Width {
				best = thumb
			}
		}
		info.ThumbnailURL = best.URL
	}
}
