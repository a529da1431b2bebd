package asset

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestLocalResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	res, err := Open(thisFile, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.IsRemote() {
		t.Fatal("expected a local resource")
	}
	if res.Name() != "resource_test.go" {
		t.Fatalf("expected name to be resource_test.go; got %s", res.Name())
	}
}

func TestHttpResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	thisDir := filepath.Dir(thisFile)

	server := httptest.NewServer(http.FileServer(http.Dir(thisDir)))
	defer server.Close()

	fetchUrl := server.URL + "/" + filepath.Base(thisFile)
	res, err := Open(fetchUrl, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	if !res.IsRemote() {
		t.Fatal("expected a remote resource")
	}

	fetchUrl = server.URL + "/file-not-found.foo"
	_, err = Open(fetchUrl, nil)
	if errors.Cause(err) != ErrFetch || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected a 404 fetch error; got %v", err)
	}
}

func TestRelativeResources(t *testing.T) {
	serverHits := 0
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHits++
		switch r.URL.Path {
		case "/scenes/teapot.obj", "/scenes/teapot.mtl":
			w.Write([]byte("OK"))
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	res1, err := Open(server.URL+"/scenes/teapot.obj", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res1.Close()
	res2, err := Open("teapot.mtl", res1)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Close()

	if serverHits != 2 {
		t.Fatalf("expected server to receive 2 requests; got %d", serverHits)
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	_, err := Open("gopher://digging.obj", nil)
	if errors.Cause(err) != ErrUnsupportedScheme {
		t.Fatalf("expected ErrUnsupportedScheme; got %v", err)
	}
}

func TestResourceConnectionRefusedError(t *testing.T) {
	_, err := Open("http://localhost:12345/foo.obj", nil)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected to get 'connection refused error'; got %v", err)
	}
}

func TestStreamResource(t *testing.T) {
	res := FromStream("embedded", strings.NewReader("payload"))
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" || res.Path() != "embedded" {
		t.Fatalf("unexpected stream resource %q at %s", data, res.Path())
	}
}
