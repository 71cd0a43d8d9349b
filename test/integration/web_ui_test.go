package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

// Smoke tests for the server-rendered web UI at /ui.

func uiURL(path string) string {
	return strings.TrimRight(testServer, "/") + "/ui" + path
}

func getPage(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("HTTP error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected text/html content type, got %s", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestWebUI_DashboardListsExpressions(t *testing.T) {
	id := uniqueID("ui_dash")
	createExpression(t, id, `"qty" * 2`, "")

	html := getPage(t, uiURL(""))
	if !strings.Contains(html, "<html") {
		t.Error("response does not contain <html tag")
	}
	if !strings.Contains(html, id) {
		t.Errorf("expected %s on dashboard", id)
	}
}

func TestWebUI_ExpressionHighlighted(t *testing.T) {
	id := uniqueID("ui_detail")
	createExpression(t, id, `upper("name") // shout`, "")

	html := getPage(t, uiURL("/expressions/"+id))
	for _, class := range []string{"tok-symbol", "tok-punctuation", "tok-string", "tok-comment"} {
		if !strings.Contains(html, `class="`+class+`"`) {
			t.Errorf("expected a %s token", class)
		}
	}
}

func TestWebUI_ExpressionNotFound(t *testing.T) {
	html := getPage(t, uiURL("/expressions/"+uniqueID("nope")))
	if !strings.Contains(html, "Not Found") {
		t.Error("expected not found page")
	}
}
