package chatlib

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestBrowserGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			fmt.Fprint(w, `<html><body><input name="fkey" value="tok123"></body></html>`)
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"time":1700000000}`)
		case "/query":
			fmt.Fprint(w, r.URL.RawQuery)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	b := NewBrowser(nil, nil, nil)
	ctx := context.Background()

	t.Run("html page", func(t *testing.T) {
		page, err := b.Get(ctx, srv.URL+"/page", nil)
		if err != nil {
			t.Fatalf("get failed: %s", err.Error())
		}
		if page.Doc == nil {
			t.Fatal("page has no parsed document")
		}
		val, ok := b.Extract(page, "input[name='fkey']", "value")
		if !ok || val != "tok123" {
			t.Errorf("extract: got %q, %v", val, ok)
		}
	})

	t.Run("json body decoded", func(t *testing.T) {
		page, err := b.Get(ctx, srv.URL+"/json", nil)
		if err != nil {
			t.Fatalf("get failed: %s", err.Error())
		}
		obj, ok := page.JSON.(map[string]any)
		if !ok {
			t.Fatalf("JSON: got %T", page.JSON)
		}
		if obj["time"].(float64) != 1700000000 {
			t.Errorf("time: got %v", obj["time"])
		}
	})

	t.Run("query parameters appended", func(t *testing.T) {
		page, err := b.Get(ctx, srv.URL+"/query", url.Values{"l": {"42"}})
		if err != nil {
			t.Fatalf("get failed: %s", err.Error())
		}
		if page.Source != "l=42" {
			t.Errorf("query: got %q", page.Source)
		}
	})
}

func TestBrowserPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type: got %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %s", err.Error())
		}
		fmt.Fprint(w, r.PostForm.Get("text"))
	}))
	defer srv.Close()

	b := NewBrowser(nil, nil, nil)
	page, err := b.Post(context.Background(), srv.URL+"/", url.Values{"text": {"hello"}})
	if err != nil {
		t.Fatalf("post failed: %s", err.Error())
	}
	if page.Source != "hello" {
		t.Errorf("body: got %q", page.Source)
	}
}

func TestBrowserRedirects(t *testing.T) {
	t.Run("chain resolved to final page", func(t *testing.T) {
		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()
		mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "step", Value: "a", Path: "/"})
			http.Redirect(w, r, "/b", http.StatusFound)
		})
		mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
			// Absolute location this hop.
			http.SetCookie(w, &http.Cookie{Name: "step2", Value: "b", Path: "/"})
			http.Redirect(w, r, srv.URL+"/final", http.StatusFound)
		})
		mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, r.Header.Get("Cookie"))
		})

		b := NewBrowser(nil, nil, nil)
		page, err := b.Get(context.Background(), srv.URL+"/a", nil)
		if err != nil {
			t.Fatalf("get failed: %s", err.Error())
		}
		if got := page.Location.Path; got != "/final" {
			t.Errorf("final location: got %q", got)
		}
		// Cookies set on intermediate hops must reach the final request.
		if page.Source != "step=a; step2=b" {
			t.Errorf("cookies at final hop: got %q", page.Source)
		}
	})

	t.Run("loop fails with ErrTooManyRedirects", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/loop", http.StatusFound)
		}))
		defer srv.Close()

		b := NewBrowser(nil, nil, nil)
		_, err := b.Get(context.Background(), srv.URL+"/loop", nil)
		if !errors.Is(err, ErrTooManyRedirects) {
			t.Fatalf("error: got %v, want ErrTooManyRedirects", err)
		}
	})

	t.Run("exactly max redirects still resolves", func(t *testing.T) {
		var hops int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hops < maxRedirects {
				hops++
				http.Redirect(w, r, "/next", http.StatusFound)
				return
			}
			fmt.Fprint(w, "done")
		}))
		defer srv.Close()

		b := NewBrowser(nil, nil, nil)
		page, err := b.Get(context.Background(), srv.URL+"/", nil)
		if err != nil {
			t.Fatalf("get failed after %d hops: %s", hops, err.Error())
		}
		if page.Source != "done" {
			t.Errorf("body: got %q", page.Source)
		}
	})
}

func TestBrowserCookieThreading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/set":
			http.SetCookie(w, &http.Cookie{Name: "sess", Value: "v1", Path: "/"})
		case "/echo":
			fmt.Fprint(w, r.Header.Get("Cookie"))
		}
	}))
	defer srv.Close()

	b := NewBrowser(nil, nil, nil)
	ctx := context.Background()
	if _, err := b.Get(ctx, srv.URL+"/set", nil); err != nil {
		t.Fatalf("set failed: %s", err.Error())
	}
	page, err := b.Get(ctx, srv.URL+"/echo", nil)
	if err != nil {
		t.Fatalf("echo failed: %s", err.Error())
	}
	if page.Source != "sess=v1" {
		t.Errorf("cookie threading: got %q", page.Source)
	}
}

func TestBrowserFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="user-info"><a href="/users/123/someone">someone</a></div></body></html>`)
	}))
	defer srv.Close()

	b := NewBrowser(nil, nil, nil)
	ctx := context.Background()

	got, err := b.Fetch(ctx, srv.URL+"/", ".user-info a", "href")
	if err != nil {
		t.Fatalf("fetch failed: %s", err.Error())
	}
	if got != "/users/123/someone" {
		t.Errorf("href: got %q", got)
	}

	_, err = b.Fetch(ctx, srv.URL+"/", "input[name='fkey']", "value")
	if !errors.Is(err, ErrMissingToken) {
		t.Errorf("missing selector: got %v, want ErrMissingToken", err)
	}
}
