package integration

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcapi "github.com/lemonberrylabs/exprtk/pkg/api/grpc"
)

func dialGRPC(t *testing.T) *grpc.ClientConn {
	t.Helper()
	if grpcEndpoint == "" {
		t.Skip("EXPRTK_GRPC_ADDR not set")
	}
	conn, err := grpc.NewClient(grpcEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func grpcContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("structpb.NewStruct: %v", err)
	}
	return s
}

// TestGRPC_TokenizeMatchesHTTP verifies both transports return the same
// tokens for the same source.
func TestGRPC_TokenizeMatchesHTTP(t *testing.T) {
	client := grpcapi.NewClient(dialGRPC(t))
	source := "var x := 'a' // note\nx"

	resp, err := client.Tokenize(grpcContext(t), mustStruct(t, map[string]interface{}{"source": source}))
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	grpcTokens := resp.GetFields()["tokens"].GetListValue().GetValues()

	status, body := doJSON(t, "POST", "tokenize", map[string]string{"source": source})
	if status != 200 {
		t.Fatalf("HTTP tokenize: %d", status)
	}
	httpTokens := body["tokens"].([]interface{})

	if len(grpcTokens) != len(httpTokens) {
		t.Fatalf("gRPC returned %d tokens, HTTP %d", len(grpcTokens), len(httpTokens))
	}
	for i, v := range grpcTokens {
		g := v.GetStructValue().AsMap()
		h := httpTokens[i].(map[string]interface{})
		for _, key := range []string{"kind", "text", "start", "end", "line", "column"} {
			if g[key] != h[key] {
				t.Errorf("token %d %s: gRPC %v, HTTP %v", i, key, g[key], h[key])
			}
		}
	}
}

func TestGRPC_TokenizeLexError(t *testing.T) {
	client := grpcapi.NewClient(dialGRPC(t))

	_, err := client.Tokenize(grpcContext(t), mustStruct(t, map[string]interface{}{"source": "1 # 2"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestGRPC_ValidateAndExpressions(t *testing.T) {
	client := grpcapi.NewClient(dialGRPC(t))
	ctx := grpcContext(t)

	resp, err := client.Validate(ctx, mustStruct(t, map[string]interface{}{
		"expressions": []interface{}{
			map[string]interface{}{"name": "ratio", "expression": `"a" / "b"`},
		},
		"schema": map[string]interface{}{"a": "int", "b": "int"},
	}))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !resp.GetFields()["valid"].GetBoolValue() {
		t.Errorf("expected valid, got %v", resp)
	}

	id := uniqueID("grpc")
	createExpression(t, id, `"a" / "b"`, "")

	got, err := client.GetExpression(ctx, mustStruct(t, map[string]interface{}{"name": id}))
	if err != nil {
		t.Fatalf("GetExpression: %v", err)
	}
	if got.GetFields()["source"].GetStringValue() != `"a" / "b"` {
		t.Errorf("unexpected source: %v", got.GetFields()["source"])
	}

	_, err = client.GetExpression(ctx, mustStruct(t, map[string]interface{}{"name": uniqueID("missing")}))
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}

	list, err := client.ListExpressions(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("ListExpressions: %v", err)
	}
	if len(list.GetFields()["expressions"].GetListValue().GetValues()) == 0 {
		t.Error("expected at least one expression")
	}
}

func TestGRPC_Health(t *testing.T) {
	resp, err := healthpb.NewHealthClient(dialGRPC(t)).Check(grpcContext(t), &healthpb.HealthCheckRequest{
		Service: grpcapi.ServiceName,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", resp.GetStatus())
	}
}
