package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/zapwave/zapwave/internal/config"
	"github.com/zapwave/zapwave/internal/store"
	"github.com/zapwave/zapwave/pkg/catalog"
	"github.com/zapwave/zapwave/pkg/metrics"
	"github.com/zapwave/zapwave/pkg/ranking"
	"github.com/zapwave/zapwave/pkg/server"
)

type apiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Count int             `json:"count"`
	Error string          `json:"error"`
}

func seedStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	now := time.Now().UTC()

	tracks := []catalog.Track{
		{ID: "t1", ArtistID: "npub1", Title: "Hit", TotalSats: 50_000, ZapCount: 30, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "t2", ArtistID: "npub2", Title: "Sleeper", TotalSats: 100, ZapCount: 2, CreatedAt: now.Add(-40 * time.Hour)},
	}
	if err := s.UpsertTracks(ctx, tracks); err != nil {
		t.Fatalf("seed tracks: %v", err)
	}

	releases := []catalog.Release{
		{ID: "r-new", ArtistID: "npub1", Title: "New Album", ImageURL: "https://cdn/new.png",
			CreatedAt: now.Add(-24 * time.Hour), Tracks: []catalog.Track{tracks[0]}},
		{ID: "r-mid", ArtistID: "npub2", Title: "Mid EP", ImageURL: "https://cdn/mid.png",
			CreatedAt: now.Add(-48 * time.Hour), Tracks: []catalog.Track{tracks[1]}},
		{ID: "r-bare", ArtistID: "npub1", Title: "No Art", CreatedAt: now.Add(-72 * time.Hour)},
	}
	for i := range releases {
		if err := s.UpsertRelease(ctx, &releases[i]); err != nil {
			t.Fatalf("seed releases: %v", err)
		}
	}
	return s
}

func newTestServer(t *testing.T, s *store.SQLiteStore) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	engine := ranking.NewEngine(s, ranking.NewScorer(0, 0, 0),
		cfg.Chart.MaxPerArtist, cfg.Chart.Size, nil, nil)
	srv := httptest.NewServer(server.New(s, engine, nil, metrics.New(), cfg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string) (int, apiEnvelope) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode, env
}

func TestReleaseEndpoints(t *testing.T) {
	Convey("Given a seeded API server", t, func() {
		s := seedStore(t)
		srv := newTestServer(t, s)

		Convey("The comprehensive view returns every release", func() {
			status, env := getJSON(t, srv.URL+"/api/v1/releases")
			So(status, ShouldEqual, http.StatusOK)
			So(env.Count, ShouldEqual, 3)
		})

		Convey("The recent view hides the latest release and imageless ones", func() {
			status, env := getJSON(t, srv.URL+"/api/v1/releases/recent")
			So(status, ShouldEqual, http.StatusOK)
			So(env.Count, ShouldEqual, 1)

			var got []catalog.Release
			So(json.Unmarshal(env.Data, &got), ShouldBeNil)
			So(got[0].ID, ShouldEqual, "r-mid")
		})

		Convey("The artist filter narrows both views", func() {
			status, env := getJSON(t, srv.URL+"/api/v1/releases?artist=npub2")
			So(status, ShouldEqual, http.StatusOK)
			So(env.Count, ShouldEqual, 1)
		})

		Convey("The latest endpoint returns the newest release", func() {
			status, env := getJSON(t, srv.URL+"/api/v1/releases/latest")
			So(status, ShouldEqual, http.StatusOK)

			var got catalog.Release
			So(json.Unmarshal(env.Data, &got), ShouldBeNil)
			So(got.ID, ShouldEqual, "r-new")
		})
	})
}

func TestChartEndpoints(t *testing.T) {
	Convey("Given a seeded API server", t, func() {
		s := seedStore(t)
		srv := newTestServer(t, s)

		Convey("The chart is empty before a rebuild", func() {
			status, env := getJSON(t, srv.URL+"/api/v1/trending")
			So(status, ShouldEqual, http.StatusOK)
			So(env.Count, ShouldEqual, 0)
		})

		Convey("A rebuild populates the trending endpoint", func() {
			resp, err := http.Post(srv.URL+"/api/v1/chart/rebuild", "application/json", nil)
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			status, env := getJSON(t, srv.URL+"/api/v1/trending")
			So(status, ShouldEqual, http.StatusOK)
			So(env.Count, ShouldEqual, 2)

			var got []store.ChartEntry
			So(json.Unmarshal(env.Data, &got), ShouldBeNil)
			So(got[0].Track.ID, ShouldEqual, "t1")
		})
	})
}

func TestSplitsEndpoint(t *testing.T) {
	Convey("Given a seeded API server", t, func() {
		s := seedStore(t)
		srv := newTestServer(t, s)

		Convey("Valid splits are normalized and stored", func() {
			body := bytes.NewBufferString(`[{"name":"artist","address":"a@x.com","percent":3},
				{"name":"drummer","address":"b@x.com","percent":1}]`)
			req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/splits/npub1", body)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			status, env := getJSON(t, srv.URL+"/api/v1/splits/npub1")
			So(status, ShouldEqual, http.StatusOK)
			So(env.Count, ShouldEqual, 2)
		})

		Convey("Unpayable splits are rejected", func() {
			body := bytes.NewBufferString(`[{"name":"artist","address":"","percent":100}]`)
			req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/splits/npub1", body)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestFeedEndpoint(t *testing.T) {
	Convey("Given a seeded API server", t, func() {
		s := seedStore(t)
		srv := newTestServer(t, s)

		Convey("The feed renders RSS for the catalog", func() {
			resp, err := http.Get(srv.URL + "/feed.xml")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("Content-Type"), ShouldStartWith, "application/rss+xml")

			var buf bytes.Buffer
			_, err = buf.ReadFrom(resp.Body)
			So(err, ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, `<rss version="2.0">`)
			So(buf.String(), ShouldContainSubstring, "New Album")
		})
	})
}
