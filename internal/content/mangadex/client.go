package mangadex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"mangadrop/internal/config"
	"mangadrop/internal/content"
	"mangadrop/internal/logging"
	"mangadrop/internal/services"
)

// HTTPDoer issues HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements content.Resolver against the MangaDex API.
type Client struct {
	baseURL    string
	uploadsURL string
	language   string
	userAgent  string
	http       HTTPDoer
	cache      *cache.Cache
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "mangadex")
	}
}

// New constructs a client from the [mangadex] and [fetch] sections.
func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.MangaDex.BaseURL, "/"),
		uploadsURL: strings.TrimRight(cfg.MangaDex.UploadsURL, "/"),
		language:   cfg.MangaDex.Language,
		userAgent:  cfg.Fetch.UserAgent,
		http:       &http.Client{Timeout: cfg.MangaDexTimeout()},
		logger:     logging.NewNop(),
	}
	if ttl := cfg.MangaDexCacheTTL(); ttl > 0 {
		c.cache = cache.New(ttl, 2*ttl)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ content.Resolver = (*Client)(nil)

// Series resolves a series, its volumes, chapters, and covers.
func (c *Client) Series(ctx context.Context, id string) (content.Series, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return content.Series{}, services.Wrap(services.ErrContentNotFound, "mangadex", "series", "series id is empty", nil)
	}
	if c.cache != nil {
		if cached, ok := c.cache.Get(id); ok {
			c.logger.Debug("series cache hit", logging.String("series_id", id))
			return cached.(content.Series), nil
		}
	}

	series, err := c.fetchSeries(ctx, id)
	if err != nil {
		return content.Series{}, err
	}
	if c.cache != nil {
		c.cache.Set(id, series, cache.DefaultExpiration)
	}
	c.logger.Info("series resolved",
		logging.String(logging.FieldEventType, "series_resolved"),
		logging.String("series", series.Title),
		logging.Int("volumes", len(series.Volumes)),
	)
	return series, nil
}

func (c *Client) fetchSeries(ctx context.Context, id string) (content.Series, error) {
	var manga mangaResponse
	if err := c.getJSON(ctx, "/manga/"+url.PathEscape(id), nil, &manga); err != nil {
		return content.Series{}, err
	}
	attrs := manga.Data.Attributes
	title := attrs.Title.pick(c.language)
	if title == "" {
		return content.Series{}, services.Wrap(services.ErrContentNotFound, "mangadex", "series", id+" has no title", nil)
	}

	series := content.Series{
		ID:          id,
		Title:       title,
		Description: attrs.Description.pick(c.language),
		Status:      attrs.Status,
	}
	if attrs.PublicationDemographic != nil {
		series.Demographic = *attrs.PublicationDemographic
	}
	if attrs.Year != nil {
		series.Year = strconv.Itoa(*attrs.Year)
	}
	for _, tag := range attrs.Tags {
		if name := tag.Attributes.Name.pick(c.language); name != "" {
			series.Tags = append(series.Tags, name)
		}
	}

	for _, rel := range manga.Data.Relationships {
		if rel.Type != "cover_art" {
			continue
		}
		var cover coverResponse
		if err := c.getJSON(ctx, "/cover/"+url.PathEscape(rel.ID), nil, &cover); err != nil {
			return content.Series{}, err
		}
		if cover.Data.Attributes.FileName != "" {
			series.CoverURL = c.coverURL(id, cover.Data.Attributes.FileName)
		}
		break
	}

	volumeCovers, err := c.volumeCovers(ctx, id)
	if err != nil {
		return content.Series{}, err
	}

	query := url.Values{}
	query.Add("translatedLanguage[]", c.language)
	var aggregate aggregateResponse
	if err := c.getJSON(ctx, "/manga/"+url.PathEscape(id)+"/aggregate", query, &aggregate); err != nil {
		return content.Series{}, err
	}

	for key, vol := range aggregate.Volumes {
		volumeTitle := key
		if volumeTitle == "none" {
			volumeTitle = content.UngroupedVolume
		}
		volume := content.Volume{Title: volumeTitle, SeriesTitle: title}
		if file, ok := volumeCovers[key]; ok {
			volume.Cover = content.Cover{URL: c.coverURL(id, file), Found: true}
		} else {
			volume.Cover = content.Cover{URL: series.CoverURL}
		}
		for chapterKey, ch := range vol.Chapters {
			chapterTitle := ch.Chapter
			if chapterTitle == "" {
				chapterTitle = chapterKey
			}
			if ch.ID == "" {
				continue
			}
			volume.Chapters = append(volume.Chapters, content.Chapter{
				ID:          ch.ID,
				Title:       chapterTitle,
				VolumeTitle: volumeTitle,
				SeriesTitle: title,
			})
		}
		content.SortChapters(volume.Chapters)
		series.Volumes = append(series.Volumes, volume)
	}
	content.SortVolumes(series.Volumes)
	return series, nil
}

// volumeCovers maps volume keys to cover file names, keeping the most
// recently listed cover per volume.
func (c *Client) volumeCovers(ctx context.Context, id string) (map[string]string, error) {
	query := url.Values{}
	query.Set("limit", "100")
	query.Add("manga[]", id)
	query.Set("order[createdAt]", "asc")
	query.Set("order[updatedAt]", "asc")
	query.Set("order[volume]", "asc")
	var list coverListResponse
	if err := c.getJSON(ctx, "/cover", query, &list); err != nil {
		return nil, err
	}
	covers := make(map[string]string, len(list.Data))
	for _, cover := range list.Data {
		if cover.Attributes.Volume == nil || cover.Attributes.FileName == "" {
			continue
		}
		covers[*cover.Attributes.Volume] = cover.Attributes.FileName
	}
	return covers, nil
}

// PageURLs returns the data-saver page URLs of a chapter in reading order.
func (c *Client) PageURLs(ctx context.Context, chapterID string) ([]string, error) {
	chapterID = strings.TrimSpace(chapterID)
	if chapterID == "" {
		return nil, services.Wrap(services.ErrContentNotFound, "mangadex", "pages", "chapter id is empty", nil)
	}
	var home atHomeResponse
	if err := c.getJSON(ctx, "/at-home/server/"+url.PathEscape(chapterID), nil, &home); err != nil {
		return nil, err
	}
	if home.BaseURL == "" || home.Chapter.Hash == "" || len(home.Chapter.DataSaver) == 0 {
		return nil, services.Wrap(services.ErrContentNotFound, "mangadex", "pages", chapterID+" has no pages", nil)
	}
	base := strings.TrimRight(home.BaseURL, "/")
	urls := make([]string, 0, len(home.Chapter.DataSaver))
	for _, file := range home.Chapter.DataSaver {
		urls = append(urls, fmt.Sprintf("%s/data-saver/%s/%s", base, home.Chapter.Hash, file))
	}
	return urls, nil
}

func (c *Client) coverURL(seriesID, fileName string) string {
	return fmt.Sprintf("%s/covers/%s/%s", c.uploadsURL, seriesID, fileName)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrFetch, "mangadex", "build request", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrFetch, "mangadex", "request", path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("mangadex request",
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
	)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return services.Wrap(services.ErrFetch, "mangadex", "read body", path, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrContentNotFound, "mangadex", "request", path+" not found", nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return services.Wrap(services.ErrFetch, "mangadex", "request", fmt.Sprintf("%s returned %s", path, resp.Status), nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrFetch, "mangadex", "decode", path, err)
	}
	var envelope struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Result == "error" {
		return services.Wrap(services.ErrContentNotFound, "mangadex", "request", path+" returned an error result", nil)
	}
	return nil
}
