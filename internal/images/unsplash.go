package images

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quiz-portal/internal/metrics"

	"github.com/sirupsen/logrus"
)

const (
	DefaultCount     = 12
	DefaultUTMSource = "quiz_portal"
)

// Image is an attributable photo descriptor.
type Image struct {
	ID                   string `json:"id"`
	URL                  string `json:"url"`
	RawURL               string `json:"rawUrl"`
	Photographer         string `json:"photographer"`
	PhotographerProfile  string `json:"photographerProfile"`
	PhotographerUsername string `json:"photographerUsername"`
	Alt                  string `json:"alt"`
	DownloadLocation     string `json:"downloadLocation,omitempty"`
}

// Client wraps the Unsplash photo search API.
type Client struct {
	baseURL    string
	accessKey  string
	utmSource  string
	httpClient *http.Client
	log        *logrus.Entry
	metrics    *metrics.Metrics
}

func NewClient(baseURL, accessKey, utmSource string, log *logrus.Entry, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accessKey:  accessKey,
		utmSource:  utmSource,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.WithField("component", "unsplash"),
		metrics:    m,
	}
}

type searchResponse struct {
	Results []struct {
		ID             string `json:"id"`
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Raw string `json:"raw"`
		} `json:"urls"`
		User struct {
			Name     string `json:"name"`
			Username string `json:"username"`
			Links    struct {
				HTML string `json:"html"`
			} `json:"links"`
		} `json:"user"`
		Links struct {
			DownloadLocation string `json:"download_location"`
		} `json:"links"`
	} `json:"results"`
}

// Search returns up to count images for query. Errors are logged and yield an
// empty result so the editing UI never blocks on the image service.
func (c *Client) Search(ctx context.Context, query string, count int) []Image {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Image{}
	}
	if count <= 0 {
		count = DefaultCount
	}

	images, err := c.search(ctx, query, count)
	c.metrics.ObserveExternal("unsplash_search", err)
	if err != nil {
		c.log.WithError(err).WithField("query", query).Warn("image search failed")
		return []Image{}
	}
	return images
}

func (c *Client) search(ctx context.Context, query string, count int) ([]Image, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(count))
	params.Set("client_id", c.accessKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Version", "v1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unsplash returned %s", resp.Status)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode unsplash response: %w", err)
	}

	out := make([]Image, 0, len(body.Results))
	for _, p := range body.Results {
		if len(out) == count {
			break
		}
		alt := p.AltDescription
		if alt == "" {
			alt = "Unsplash image"
		}
		out = append(out, Image{
			ID:                   p.ID,
			URL:                  FormattedURL(p.URLs.Raw, 400, 225),
			RawURL:               p.URLs.Raw,
			Photographer:         p.User.Name,
			PhotographerProfile:  p.User.Links.HTML,
			PhotographerUsername: p.User.Username,
			Alt:                  alt,
			DownloadLocation:     p.Links.DownloadLocation,
		})
	}
	return out, nil
}

// ProfileURL is the Unsplash profile page of username.
func ProfileURL(username string) string {
	return "https://unsplash.com/@" + url.PathEscape(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// FormattedURL appends sizing parameters to a raw image URL.
func FormattedURL(raw string, width, height int) string {
	sep := "&"
	if !strings.Contains(raw, "?") {
		sep = "?"
	}
	return fmt.Sprintf("%s%sw=%d&h=%d&fit=crop", raw, sep, width, height)
}

// AttributionMarkup credits the photographer and Unsplash with referral links,
// as the Unsplash API guidelines require.
func (c *Client) AttributionMarkup(img Image) template.HTML {
	return Attribution(img, c.utmSource)
}

// Attribution builds the attribution markup for utmSource.
func Attribution(img Image, utmSource string) template.HTML {
	utm := "utm_source=" + url.QueryEscape(utmSource) + "&utm_medium=referral"
	profile := img.PhotographerProfile
	if profile != "" {
		if strings.Contains(profile, "?") {
			profile += "&" + utm
		} else {
			profile += "?" + utm
		}
	}
	return template.HTML(fmt.Sprintf(
		`Photo by <a href="%s" target="_blank" rel="noopener noreferrer">%s</a> on <a href="https://unsplash.com/?%s" target="_blank" rel="noopener noreferrer">Unsplash</a>`,
		EscapeHTML(profile), EscapeHTML(img.Photographer), EscapeHTML(utm),
	))
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes the five HTML-special characters.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
