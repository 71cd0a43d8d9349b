package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lemonberrylabs/exprtk/pkg/api"
	grpcapi "github.com/lemonberrylabs/exprtk/pkg/api/grpc"
	"github.com/lemonberrylabs/exprtk/pkg/config"
	"github.com/lemonberrylabs/exprtk/pkg/store"
	"github.com/lemonberrylabs/exprtk/web"
)

// testServer is the base URL of the HTTP API under test, and grpcEndpoint
// the host:port of its gRPC service.
var (
	testServer   string
	grpcEndpoint string
)

// preloaded is the definitions file the in-process server loads on startup.
const preloaded = `
name: preloaded_margin
description: loaded from the expressions directory
expression: '"price" - "cost"'
`

// TestMain runs the suite against EXPRTK_URL and EXPRTK_GRPC_ADDR when set,
// otherwise against servers started in-process.
func TestMain(m *testing.M) {
	testServer = os.Getenv("EXPRTK_URL")
	grpcEndpoint = os.Getenv("EXPRTK_GRPC_ADDR")
	if testServer != "" {
		if !strings.HasPrefix(testServer, "http://") && !strings.HasPrefix(testServer, "https://") {
			testServer = "http://" + testServer
		}
		os.Exit(m.Run())
	}

	stop, err := startServers()
	if err != nil {
		log.Fatalf("starting servers: %v", err)
	}
	code := m.Run()
	stop()
	os.Exit(code)
}

func startServers() (func(), error) {
	dir, err := os.MkdirTemp("", "exprtk-integration")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "preloaded.yaml"), []byte(preloaded), 0o644); err != nil {
		return nil, err
	}

	cfg := config.Default()
	cfg.ExpressionsDir = dir

	s := store.New()
	srv := api.New(s, cfg)
	if err := srv.LoadDir(dir); err != nil {
		return nil, err
	}
	web.New(s, cfg).Register(srv.App())

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	go srv.Serve(httpLis)

	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	gs := grpcapi.New(s, cfg)
	go gs.ServeListener(grpcLis)

	testServer = "http://" + httpLis.Addr().String()
	grpcEndpoint = grpcLis.Addr().String()

	return func() {
		gs.GracefulStop()
		srv.Shutdown()
		os.RemoveAll(dir)
	}, nil
}

// apiURL builds a full URL for the given API path.
func apiURL(path string) string {
	return strings.TrimRight(testServer, "/") + "/v1/" + path
}

// doJSON sends body as JSON and decodes the JSON response.
func doJSON(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, apiURL(path), reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s HTTP error: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("%s %s: decode error: %v (body: %s)", method, path, err, raw)
	}
	return resp.StatusCode, result
}

// evalResult is the outcome of computing one expression over one row.
type evalResult struct {
	Status  int
	Value   interface{}
	Type    string
	Message string
	Body    map[string]interface{}
}

// evalExpr computes a single column named "result" over row.
func evalExpr(t *testing.T, row map[string]interface{}, expression string) evalResult {
	t.Helper()

	status, body := doJSON(t, "POST", "compute", map[string]interface{}{
		"expressions": []map[string]string{{"name": "result", "expression": expression}},
		"rows":        []map[string]interface{}{row},
	})
	er := evalResult{Status: status, Body: body}
	if status != http.StatusOK {
		if e, ok := body["error"].(map[string]interface{}); ok {
			er.Message, _ = e["message"].(string)
		}
		return er
	}

	rows, _ := body["rows"].([]interface{})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %v", body["rows"])
	}
	er.Value = rows[0].(map[string]interface{})["result"]

	columns, _ := body["columns"].([]interface{})
	for _, c := range columns {
		col := c.(map[string]interface{})
		if col["name"] == "result" {
			er.Type, _ = col["type"].(string)
		}
	}
	return er
}

func assertValue(t *testing.T, er evalResult, want interface{}, wantType string) {
	t.Helper()
	if er.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", er.Status, er.Message)
	}
	gotJSON, _ := json.Marshal(er.Value)
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Errorf("expected %s, got %s", wantJSON, gotJSON)
	}
	if wantType != "" && er.Type != wantType {
		t.Errorf("expected type %s, got %s", wantType, er.Type)
	}
}

func assertFailed(t *testing.T, er evalResult, status int, substr string) {
	t.Helper()
	if er.Status != status {
		t.Fatalf("expected status %d, got %d (body: %v)", status, er.Status, er.Body)
	}
	if !strings.Contains(er.Message, substr) {
		t.Errorf("expected error containing %q, got %q", substr, er.Message)
	}
}

// uniqueID returns a unique expression ID to avoid conflicts between tests.
func uniqueID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

// createExpression stores an expression via the API and registers its
// deletion.
func createExpression(t *testing.T, id, source, description string) map[string]interface{} {
	t.Helper()
	status, body := doJSON(t, "POST", "expressions?expressionId="+id, map[string]string{
		"source":      source,
		"description": description,
	})
	if status != http.StatusOK {
		t.Fatalf("createExpression failed with status %d: %v", status, body)
	}
	t.Cleanup(func() { deleteExpression(t, id) })
	return body
}

func deleteExpression(t *testing.T, id string) {
	t.Helper()
	req, _ := http.NewRequest("DELETE", apiURL("expressions/"+id), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
