package assistant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRESTWeatherCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather/current" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("location"); got != "Oslo" {
			t.Errorf("location = %q, want Oslo", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k1" {
			t.Errorf("auth header = %q", got)
		}
		w.Write([]byte(`{"location":"Oslo","summary":"clear","temp_c":4}`))
	}))
	defer srv.Close()

	w := &RESTWeather{Client: RESTClient{BaseURL: srv.URL, APIKey: "k1"}}
	report, err := w.Current(context.Background(), "Oslo")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if report.Summary != "clear" || report.TempC != 4 {
		t.Fatalf("report = %+v", report)
	}
}

func TestRESTNewsNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := &RESTNews{Client: RESTClient{BaseURL: srv.URL}}
	if _, err := n.Headlines(context.Background(), "", 3); err == nil {
		t.Fatal("5xx must surface as an error")
	}
}

func TestRESTVideoFinderEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	v := &RESTVideoFinder{Client: RESTClient{BaseURL: srv.URL}}
	if _, err := v.Find(context.Background(), "anything"); err == nil {
		t.Fatal("no results must surface as an error")
	}
}

func TestRESTVideoFinderFirstResultWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "lofi beats" {
			t.Errorf("q = %q", got)
		}
		w.Write([]byte(`{"results":[{"id":"v1","title":"First"},{"id":"v2","title":"Second"}]}`))
	}))
	defer srv.Close()

	v := &RESTVideoFinder{Client: RESTClient{BaseURL: srv.URL}}
	video, err := v.Find(context.Background(), "lofi beats")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if video.Title != "First" {
		t.Fatalf("video = %+v, want the first result", video)
	}
}
