package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"watchquest/api/internal/store"
)

const fallbackPoster = "https://placehold.co/300x450?text=No+Poster"

// Client talks to the OMDb metadata provider. All lookups degrade at the
// caller: a failed call means "no additional data", never a fatal error.
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	client     *http.Client
}

func NewClient(baseURL, apiKey string, maxResults int) *Client {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxResults: maxResults,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type searchResponse struct {
	Search []struct {
		Title  string `json:"Title"`
		Year   string `json:"Year"`
		ImdbID string `json:"imdbID"`
		Type   string `json:"Type"`
		Poster string `json:"Poster"`
	} `json:"Search"`
	Response string `json:"Response"`
}

type detailResponse struct {
	Title        string `json:"Title"`
	Year         string `json:"Year"`
	Runtime      string `json:"Runtime"`
	Poster       string `json:"Poster"`
	ImdbRating   string `json:"imdbRating"`
	Plot         string `json:"Plot"`
	ImdbID       string `json:"imdbID"`
	Type         string `json:"Type"`
	TotalSeasons string `json:"totalSeasons"`
	Response     string `json:"Response"`
}

type seasonResponse struct {
	Episodes []struct {
		Episode    string `json:"Episode"`
		ImdbRating string `json:"imdbRating"`
	} `json:"Episodes"`
	Response string `json:"Response"`
}

// Search resolves a free-text query: a title search followed by a detail
// lookup for each of the top matches.
func (c *Client) Search(ctx context.Context, query string) ([]store.Media, error) {
	var res searchResponse
	if err := c.get(ctx, url.Values{"s": {query}}, &res); err != nil {
		return nil, err
	}
	if res.Response != "True" {
		return nil, nil
	}

	matches := res.Search
	if len(matches) > c.maxResults {
		matches = matches[:c.maxResults]
	}
	results := make([]store.Media, 0, len(matches))
	for _, match := range matches {
		var detail detailResponse
		if err := c.get(ctx, url.Values{"i": {match.ImdbID}}, &detail); err != nil {
			return results, err
		}
		if detail.Response != "True" {
			continue
		}
		results = append(results, normalizeDetail(detail))
	}
	return results, nil
}

// SeasonEpisodes fetches the episode list for one season of a series.
func (c *Client) SeasonEpisodes(ctx context.Context, mediaID string, season int) ([]store.Episode, error) {
	var res seasonResponse
	err := c.get(ctx, url.Values{"i": {mediaID}, "Season": {strconv.Itoa(season)}}, &res)
	if err != nil {
		return nil, err
	}
	if res.Response != "True" {
		return nil, nil
	}

	episodes := make([]store.Episode, 0, len(res.Episodes))
	for _, ep := range res.Episodes {
		number, _ := strconv.Atoi(ep.Episode)
		if number <= 0 {
			continue
		}
		episode := store.Episode{EpisodeNumber: number}
		if rating, err := strconv.ParseFloat(ep.ImdbRating, 64); err == nil {
			episode.Rating = &rating
		}
		episodes = append(episodes, episode)
	}
	return episodes, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse provider url: %w", err)
	}
	params.Set("apikey", c.apiKey)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// normalizeDetail maps a provider detail record to the catalog schema,
// tolerating the provider's quirks: "N/A" runtimes, year ranges for ongoing
// series, and unknown season counts.
func normalizeDetail(d detailResponse) store.Media {
	isSeries := d.Type == "series" || d.Type == "episode"

	media := store.Media{
		ID:          d.ImdbID,
		Title:       d.Title,
		Year:        firstYear(d.Year),
		Poster:      d.Poster,
		Synopsis:    d.Plot,
		AvailableOn: []string{},
		Type:        store.MediaMovie,
	}
	if media.Poster == "N/A" || media.Poster == "" {
		media.Poster = fallbackPoster
	}
	if media.Synopsis == "N/A" {
		media.Synopsis = "No description available."
	}
	if rating, err := strconv.ParseFloat(d.ImdbRating, 64); err == nil {
		media.Rating = rating
	}

	if !isSeries {
		media.Duration = d.Runtime
		if media.Duration == "N/A" || media.Duration == "" {
			media.Duration = "?? min"
		}
		return media
	}

	media.Type = store.MediaSeries
	seasons, err := strconv.Atoi(d.TotalSeasons)
	if err != nil || seasons < 1 {
		seasons = 1
	}
	media.TotalSeasons = seasons
	media.Duration = fmt.Sprintf("%d Seasons", seasons)
	// Season skeleton only: episode lists resolve lazily per season.
	media.SeasonsData = make([]store.Season, seasons)
	for i := range media.SeasonsData {
		media.SeasonsData[i] = store.Season{SeasonNumber: i + 1}
	}
	return media
}

// firstYear extracts the first four-digit year from strings like "1988",
// "2019–" or "2019–2023".
func firstYear(s string) int {
	for i := 0; i+4 <= len(s); i++ {
		if year, err := strconv.Atoi(s[i : i+4]); err == nil {
			return year
		}
	}
	return time.Now().Year()
}
