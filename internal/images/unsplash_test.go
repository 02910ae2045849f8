package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quiz-portal/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const photosJSON = `{"results":[
 {"id":"p1","alt_description":"fjord","urls":{"raw":"https://images.unsplash.com/photo-1?ixid=abc"},
  "user":{"name":"Kari <Nordmann>","username":"kari","links":{"html":"https://unsplash.com/@kari"}},
  "links":{"download_location":"https://api.unsplash.com/photos/p1/download"}},
 {"id":"p2","alt_description":"","urls":{"raw":"https://images.unsplash.com/photo-2?ixid=def"},
  "user":{"name":"Ola","username":"ola","links":{"html":"https://unsplash.com/@ola"}},
  "links":{}}
]}`

func TestSearchMapsDescriptors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/photos", r.URL.Path)
		assert.Equal(t, "oslo", r.URL.Query().Get("query"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		assert.Equal(t, "key", r.URL.Query().Get("client_id"))
		_, _ = w.Write([]byte(photosJSON))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "quiz_portal", logging.Discard(), nil)
	got := client.Search(context.Background(), "oslo", 2)
	require.Len(t, got, 2)

	assert.Equal(t, "https://images.unsplash.com/photo-1?ixid=abc&w=400&h=225&fit=crop", got[0].URL)
	assert.Equal(t, "https://images.unsplash.com/photo-1?ixid=abc", got[0].RawURL)
	assert.Equal(t, "kari", got[0].PhotographerUsername)
	assert.Equal(t, "Unsplash image", got[1].Alt)
}

func TestSearchBlankQueryAndFailures(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "quiz_portal", logging.Discard(), nil)
	assert.Empty(t, client.Search(context.Background(), "   ", 5))
	assert.False(t, hit)

	assert.Empty(t, client.Search(context.Background(), "oslo", 5))
	assert.True(t, hit)
}

func TestAttributionEscapesAndCredits(t *testing.T) {
	html := string(Attribution(Image{
		Photographer:        "Kari <Nordmann>",
		PhotographerProfile: "https://unsplash.com/@kari",
	}, "quiz_portal"))

	assert.True(t, strings.HasPrefix(html, "Photo by "))
	assert.Contains(t, html, "Kari &lt;Nordmann&gt;")
	assert.Contains(t, html, `https://unsplash.com/@kari?utm_source=quiz_portal&amp;utm_medium=referral`)
	assert.Contains(t, html, ">Unsplash</a>")
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;&quot;Tom&quot; &amp; &#039;Jerry&#039;&lt;/b&gt;", EscapeHTML(`<b>"Tom" & 'Jerry'</b>`))
}
