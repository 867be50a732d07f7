package arr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatarr/chatarr/internal/config"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// testClient builds a client of the given media type pointed at the
// test server.
func testClient(t *testing.T, mediaType MediaType, srv *httptest.Server, arrCfg config.Arr) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	inst := config.Instance{
		Label:  "main",
		Server: config.Server{Addr: u.Hostname(), Port: port},
		APIKey: "testkey",
	}
	client, err := NewClient(mediaType, inst, arrCfg, testLogger())
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAddressAndKey(t *testing.T) {
	_, err := NewClient(MediaTypeMovie, config.Instance{APIKey: "k"}, config.Arr{}, testLogger())
	assert.Error(t, err)

	_, err = NewClient(MediaTypeMovie, config.Instance{Server: config.Server{Addr: "localhost", Port: 7878}}, config.Arr{}, testLogger())
	assert.Error(t, err)
}

func TestSearchNormalizesMovies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/movie/lookup", r.URL.Path)
		assert.Equal(t, "testkey", r.URL.Query().Get("apikey"))
		assert.Equal(t, "dune", r.URL.Query().Get("term"))

		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"title": "Dune", "overview": "Sand.", "year": 2021, "tmdbId": 438631, "remotePoster": "http://img/dune.jpg"},
			{"title": "Dune Club", "year": 2020, "tmdbId": 1}, // no overview
			{"title": "Unreleased Dune", "overview": "x", "year": 0, "tmdbId": 2},
			{"overview": "no title", "year": 1999, "tmdbId": 3},
		})
	}))
	defer srv.Close()

	client := testClient(t, MediaTypeMovie, srv, config.Arr{})
	results, err := client.Search(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "438631", results[0].ExternalID)
	assert.Equal(t, "Dune", results[0].Title)
	assert.Equal(t, 2021, results[0].Year)
	assert.Equal(t, "http://img/dune.jpg", results[0].Poster)
}

func TestSearchEmptyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := testClient(t, MediaTypeMovie, srv, config.Arr{})
	results, err := client.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchFailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := testClient(t, MediaTypeSeries, srv, config.Arr{})
	_, err := client.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestNormalizeSeriesDropRules(t *testing.T) {
	stats := &struct {
		SeasonCount int `json:"seasonCount"`
	}{SeasonCount: 4}

	raw := []rawSeries{
		{Title: "Good", Year: 2020, TvdbID: 1, RemotePoster: "http://p", Statistics: stats},
		{Title: "No poster", Year: 2020, TvdbID: 2, Statistics: stats},
		{Title: "No stats", Year: 2020, TvdbID: 3, RemotePoster: "http://p"},
		{Title: "No id", Year: 2020, RemotePoster: "http://p", Statistics: stats},
	}

	results := normalizeSeries(raw)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ExternalID)
	assert.Equal(t, 4, results[0].SeasonCount)
}

func TestNormalizeArtistsDropRules(t *testing.T) {
	stats := &struct {
		AlbumCount int `json:"albumCount"`
	}{AlbumCount: 9}

	raw := []rawArtist{
		{ArtistName: "Good", ForeignArtistID: "aa-bb", ArtistType: "Person", Statistics: stats},
		{ArtistName: "No id", ArtistType: "Person", Statistics: stats},
		{ArtistName: "No type", ForeignArtistID: "cc-dd", Statistics: stats},
	}

	results := normalizeArtists(raw)
	require.Len(t, results, 1)
	assert.Equal(t, "aa-bb", results[0].ExternalID)
	assert.Equal(t, 9, results[0].AlbumCount)
}

func TestAddMovieSendsPayloadAndNeeds201(t *testing.T) {
	var addBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v3/movie/lookup/tmdb":
			assert.Equal(t, "42", r.URL.Query().Get("tmdbId"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"tmdbId": 42, "year": 2021, "title": "Dune",
				"titleSlug": "dune-42", "images": []interface{}{},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v3/movie":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&addBody))
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	arrCfg := config.Arr{Search: true, MinimumAvailability: "announced"}
	client := testClient(t, MediaTypeMovie, srv, arrCfg)

	err := client.Add(context.Background(), AddRequest{
		ExternalID:       "42",
		Path:             "/movies",
		QualityProfileID: 6,
		TagIDs:           []int64{3},
	})
	require.NoError(t, err)

	assert.Equal(t, float64(42), addBody["tmdbId"])
	assert.Equal(t, "dune-42", addBody["titleSlug"])
	assert.Equal(t, "/movies", addBody["rootFolderPath"])
	assert.Equal(t, float64(6), addBody["qualityProfileId"])
	assert.Equal(t, "announced", addBody["minimumAvailability"])
	addOptions, ok := addBody["addOptions"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, addOptions["searchForMovie"])
}

func TestAddFailsOnNon201(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/movie/lookup/tmdb" {
			json.NewEncoder(w).Encode(map[string]interface{}{"tmdbId": 42, "title": "Dune"})
			return
		}
		// 200 is not success for an add.
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := testClient(t, MediaTypeMovie, srv, config.Arr{})
	err := client.Add(context.Background(), AddRequest{ExternalID: "42"})
	assert.Error(t, err)
}

func TestRemoveResolvesDatabaseID(t *testing.T) {
	var deletePath, deleteFiles string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "/api/v3/movie", r.URL.Path)
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": 5, "title": "Other", "tmdbId": 7},
				{"id": 9, "title": "Dune", "tmdbId": 42},
			})
		case http.MethodDelete:
			deletePath = r.URL.Path
			deleteFiles = r.URL.Query().Get("deleteFiles")
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	client := testClient(t, MediaTypeMovie, srv, config.Arr{})
	require.NoError(t, client.Remove(context.Background(), "42"))
	assert.Equal(t, "/api/v3/movie/9", deletePath)
	assert.Equal(t, "true", deleteFiles)
}

func TestRemoveUnknownIDFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := testClient(t, MediaTypeMovie, srv, config.Arr{})
	assert.Error(t, client.Remove(context.Background(), "42"))
}

func TestInLibrary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/artist", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 1, "artistName": "Oko", "foreignArtistId": "aa-bb"},
		})
	}))
	defer srv.Close()

	client := testClient(t, MediaTypeMusic, srv, config.Arr{})

	in, err := client.InLibrary(context.Background(), "aa-bb")
	require.NoError(t, err)
	assert.True(t, in)

	in, err = client.InLibrary(context.Background(), "zz-zz")
	require.NoError(t, err)
	assert.False(t, in)
}

func TestRootFoldersFiltersExcluded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"path": "/movies", "freeSpace": 100},
			{"path": "/archive", "freeSpace": 5},
		})
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	inst := config.Instance{
		Label:               "main",
		Server:              config.Server{Addr: u.Hostname(), Port: port},
		APIKey:              "testkey",
		ExcludedRootFolders: []string{"/archive"},
	}
	client, err := NewClient(MediaTypeMovie, inst, config.Arr{}, testLogger())
	require.NoError(t, err)

	folders, err := client.RootFolders(context.Background())
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "/movies", folders[0].Path)
	assert.Equal(t, int64(100), folders[0].FreeSpace)
}

func TestQualityProfilesFiltersExcluded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 1, "name": "Any"},
			{"id": 2, "name": "Ultra-HD"},
		})
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	inst := config.Instance{
		Label:                   "main",
		Server:                  config.Server{Addr: u.Hostname(), Port: port},
		APIKey:                  "testkey",
		ExcludedQualityProfiles: []string{"Ultra-HD"},
	}
	client, err := NewClient(MediaTypeSeries, inst, config.Arr{}, testLogger())
	require.NoError(t, err)

	profiles, err := client.QualityProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Any", profiles[0].Name)
}

func TestSeasonsLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/series/lookup", r.URL.Path)
		assert.Equal(t, "tvdb:81189", r.URL.Query().Get("term"))
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"seasons": []map[string]interface{}{
				{"seasonNumber": 0, "monitored": false},
				{"seasonNumber": 1, "monitored": true},
			}},
		})
	}))
	defer srv.Close()

	client := testClient(t, MediaTypeSeries, srv, config.Arr{})
	seasons, err := client.Seasons(context.Background(), "81189")
	require.NoError(t, err)
	require.Len(t, seasons, 2)
	assert.Equal(t, 1, seasons[1].SeasonNumber)
}

func TestCreateTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "12345", body["label"])
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 11, "label": "12345"})
	}))
	defer srv.Close()

	client := testClient(t, MediaTypeMovie, srv, config.Arr{})
	id, err := client.CreateTag(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
}

func TestRegistryRouting(t *testing.T) {
	cfg := &config.Config{
		Radarr: config.Arr{Instances: []config.Instance{
			{Label: "main", Server: config.Server{Addr: "localhost", Port: 7878}, APIKey: "a"},
			{Label: "kids", Server: config.Server{Addr: "localhost", Port: 7879}, APIKey: "b"},
		}},
		Lidarr: config.Arr{Instances: []config.Instance{
			{Label: "music", Server: config.Server{Addr: "localhost", Port: 8686}, APIKey: "c"},
		}},
	}

	registry, err := NewRegistry(cfg, testLogger())
	require.NoError(t, err)

	assert.True(t, registry.Has(MediaTypeMovie))
	assert.False(t, registry.Has(MediaTypeSeries))
	assert.Equal(t, []MediaType{MediaTypeMovie, MediaTypeMusic}, registry.Types())
	assert.Equal(t, []string{"main", "kids"}, registry.Labels(MediaTypeMovie))

	client, err := registry.Client(MediaTypeMovie, "kids")
	require.NoError(t, err)
	assert.Equal(t, "kids", client.Label())

	// The empty label selects the first configured instance.
	client, err = registry.Client(MediaTypeMovie, "")
	require.NoError(t, err)
	assert.Equal(t, "main", client.Label())

	_, err = registry.Client(MediaTypeSeries, "")
	assert.Error(t, err)

	assert.Len(t, registry.All(), 3)
}
