package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func catalogServer(t *testing.T, failSecondIndex bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/catalogue/page-1.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
<h3><a href="first_1/index.html">First</a></h3>
<h3><a href="second_2/index.html">Second</a></h3>
<ul class="pager"><li class="next"><a href="page-2.html">next</a></li></ul>
</body></html>`)
	})
	mux.HandleFunc("/catalogue/page-2.html", func(w http.ResponseWriter, _ *http.Request) {
		if failSecondIndex {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h3><a href="third_3/index.html">Third</a></h3></body></html>`)
	})
	titles := map[string]string{"first_1": "First", "second_2": "Second", "third_3": "Third"}
	for slug, title := range titles {
		mux.HandleFunc("/catalogue/"+slug+"/index.html", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body>
<ul class="breadcrumb"><li><a href="/">Home</a></li><li><a href="/b">Books</a></li><li><a href="/c">Fiction</a></li><li class="active">%s</li></ul>
<div class="item active"><img src="../../media/%s.jpg"/></div>
<h1>%s</h1><p class="price_color">£3.50</p>
<p class="instock availability">In stock</p>
<p class="star-rating Five"></p>
</body></html>`, title, slug, title)
		})
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunWritesDatasetAndSummary(t *testing.T) {
	server := catalogServer(t, false)
	output := filepath.Join(t.TempDir(), "data", "books.csv")

	var stderr bytes.Buffer
	code := run([]string{"-base-url", server.URL, "-output", output}, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr.String())
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want header + 3:\n%s", len(lines), data)
	}
	if lines[1] != "First,3.5,Five,In stock,Fiction,"+server.URL+"/media/first_1.jpg" {
		t.Fatalf("first row = %q", lines[1])
	}

	summary := stderr.String()
	if !strings.Contains(summary, "Pages crawled: 2") || !strings.Contains(summary, "Total items:   3") {
		t.Fatalf("summary missing counts:\n%s", summary)
	}
}

func TestRunIndexFailureExitsNormally(t *testing.T) {
	server := catalogServer(t, true)
	output := filepath.Join(t.TempDir(), "books.csv")

	var stderr bytes.Buffer
	code := run([]string{"-base-url", server.URL, "-output", output}, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr:\n%s", code, stderr.String())
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2", len(lines))
	}
	if !strings.Contains(stderr.String(), "Crawl stopped early (index_fetch)") {
		t.Fatalf("summary should report the abort:\n%s", stderr.String())
	}
}

func TestRunInvalidConfiguration(t *testing.T) {
	var stderr bytes.Buffer
	if code := run([]string{"-parallel", "0"}, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunUnwritableOutput(t *testing.T) {
	server := catalogServer(t, false)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed blocker: %v", err)
	}

	var stderr bytes.Buffer
	code := run([]string{"-base-url", server.URL, "-output", filepath.Join(blocker, "books.csv")}, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}
