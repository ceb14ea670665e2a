package mangadex_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"mangadrop/internal/content"
	"mangadrop/internal/content/mangadex"
	"mangadrop/internal/services"
	"mangadrop/internal/testsupport"
)

const mangaBody = `{
  "result": "ok",
  "data": {
    "id": "m1",
    "attributes": {
      "title": {"en": "Blue: Period"},
      "description": {"en": "An art student."},
      "publicationDemographic": "seinen",
      "status": "ongoing",
      "year": 2017,
      "tags": [{"attributes": {"name": {"en": "Drama"}}}, {"attributes": {"name": {"en": "School Life"}}}]
    },
    "relationships": [
      {"id": "a1", "type": "author"},
      {"id": "c-main", "type": "cover_art"}
    ]
  }
}`

const aggregateBody = `{
  "result": "ok",
  "volumes": {
    "2": {"volume": "2", "chapters": {"10": {"chapter": "10", "id": "ch-10"}, "9": {"chapter": "9", "id": "ch-9"}}},
    "1": {"volume": "1", "chapters": {"1": {"chapter": "1", "id": "ch-1"}}},
    "none": {"volume": "none", "chapters": [{"chapter": "50", "id": "ch-50"}]}
  }
}`

type fakeAPI struct {
	mangaHits atomic.Int32
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/manga/m1", func(w http.ResponseWriter, r *http.Request) {
		f.mangaHits.Add(1)
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Errorf("expected user agent header")
		}
		_, _ = w.Write([]byte(mangaBody))
	})
	mux.HandleFunc("/manga/m1/aggregate", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("translatedLanguage[]"); got != "en" {
			t.Errorf("translatedLanguage = %q", got)
		}
		_, _ = w.Write([]byte(aggregateBody))
	})
	mux.HandleFunc("/cover/c-main", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"ok","data":{"id":"c-main","attributes":{"fileName":"main.jpg","volume":null}}}`))
	})
	mux.HandleFunc("/cover", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("manga[]") != "m1" {
			_, _ = w.Write([]byte(`{"result":"ok","data":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":"ok","data":[{"id":"v1","attributes":{"fileName":"vol1.jpg","volume":"1"}}]}`))
	})
	mux.HandleFunc("/manga/empty", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"ok","data":{"id":"empty","attributes":{"title":{"ja-ro":"Kara"}},"relationships":[]}}`))
	})
	mux.HandleFunc("/manga/empty/aggregate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"ok","volumes":[]}`))
	})
	mux.HandleFunc("/manga/gone", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"error","errors":[{"status":404}]}`))
	})
	mux.HandleFunc("/at-home/server/ch-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"ok","baseUrl":"https://node.example/","chapter":{"hash":"abc","data":["x1.png"],"dataSaver":["p1.jpg","p2.jpg"]}}`))
	})
	mux.HandleFunc("/at-home/server/ch-empty", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"ok","baseUrl":"https://node.example","chapter":{"hash":"abc","dataSaver":[]}}`))
	})
	return mux
}

func newClient(t *testing.T) (*mangadex.Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)
	cfg := testsupport.NewConfig(t, testsupport.WithMangaDex(server.URL))
	return mangadex.New(cfg, mangadex.WithHTTPClient(server.Client())), api
}

func TestSeriesResolvesVolumesAndCovers(t *testing.T) {
	client, _ := newClient(t)
	series, err := client.Series(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if series.Title != "Blue: Period" || series.Demographic != "seinen" || series.Year != "2017" {
		t.Fatalf("unexpected series metadata: %+v", series)
	}
	if strings.Join(series.Tags, ",") != "Drama,School Life" {
		t.Fatalf("tags = %v", series.Tags)
	}
	if !strings.HasSuffix(series.CoverURL, "/covers/m1/main.jpg") {
		t.Fatalf("cover url = %q", series.CoverURL)
	}

	var titles []string
	for _, v := range series.Volumes {
		titles = append(titles, v.Title)
	}
	if got := strings.Join(titles, ","); got != content.UngroupedVolume+",1,2" {
		t.Fatalf("volume order = %s", got)
	}

	vol1, _ := series.FindVolume("1")
	if !vol1.Cover.Found || !strings.HasSuffix(vol1.Cover.URL, "/covers/m1/vol1.jpg") {
		t.Fatalf("volume 1 cover = %+v", vol1.Cover)
	}
	vol2, _ := series.FindVolume("2")
	if vol2.Cover.Found || vol2.Cover.URL != series.CoverURL {
		t.Fatalf("volume 2 should fall back to series cover, got %+v", vol2.Cover)
	}
	if len(vol2.Chapters) != 2 || vol2.Chapters[0].Title != "9" || vol2.Chapters[1].ID != "ch-10" {
		t.Fatalf("volume 2 chapters = %+v", vol2.Chapters)
	}
	if vol2.Chapters[0].SeriesTitle != "Blue: Period" || vol2.Chapters[0].VolumeTitle != "2" {
		t.Fatalf("chapter context missing: %+v", vol2.Chapters[0])
	}
	ungrouped, ok := series.FindChapter(content.UngroupedVolume, "50")
	if !ok || ungrouped.ID != "ch-50" {
		t.Fatalf("ungrouped chapter = %+v ok=%v", ungrouped, ok)
	}
}

func TestSeriesIsCached(t *testing.T) {
	client, api := newClient(t)
	for i := 0; i < 2; i++ {
		if _, err := client.Series(context.Background(), "m1"); err != nil {
			t.Fatalf("Series: %v", err)
		}
	}
	if hits := api.mangaHits.Load(); hits != 1 {
		t.Fatalf("expected one manga request, got %d", hits)
	}
}

func TestSeriesWithoutVolumes(t *testing.T) {
	client, _ := newClient(t)
	series, err := client.Series(context.Background(), "empty")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if series.Title != "Kara" {
		t.Fatalf("expected fallback title, got %q", series.Title)
	}
	if len(series.Volumes) != 0 {
		t.Fatalf("expected no volumes, got %d", len(series.Volumes))
	}
}

func TestSeriesNotFound(t *testing.T) {
	client, _ := newClient(t)
	for _, id := range []string{"gone", "missing", " "} {
		_, err := client.Series(context.Background(), id)
		if !errors.Is(err, services.ErrContentNotFound) {
			t.Fatalf("Series(%q) error = %v, want content not found", id, err)
		}
	}
}

func TestPageURLs(t *testing.T) {
	client, _ := newClient(t)
	urls, err := client.PageURLs(context.Background(), "ch-1")
	if err != nil {
		t.Fatalf("PageURLs: %v", err)
	}
	want := []string{
		"https://node.example/data-saver/abc/p1.jpg",
		"https://node.example/data-saver/abc/p2.jpg",
	}
	if strings.Join(urls, " ") != strings.Join(want, " ") {
		t.Fatalf("urls = %v, want %v", urls, want)
	}

	if _, err := client.PageURLs(context.Background(), "ch-empty"); !errors.Is(err, services.ErrContentNotFound) {
		t.Fatalf("expected content not found for empty chapter, got %v", err)
	}
}
