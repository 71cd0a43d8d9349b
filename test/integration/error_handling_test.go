package integration

import (
	"net/http"
	"testing"
)

// Failures surface as structured errors: syntax and lexer errors carry a
// position, evaluation errors name their tag and the failing row.

func TestErrors_EvaluationTags(t *testing.T) {
	row := map[string]interface{}{"zero": 0, "name": "ada", "items": []int{1}}

	tests := []struct {
		name string
		expr string
		tag  string
	}{
		{"division by zero", `1 / "zero"`, "ZeroDivisionError"},
		{"modulo by zero", `1 % "zero"`, "ZeroDivisionError"},
		{"type mismatch", `"name" - 1`, "TypeError"},
		{"unknown column", `"nope" + 1`, "KeyError"},
		{"undeclared variable", `x + 1`, "KeyError"},
		{"redeclared variable", `var x := 1; var x := 2`, "ValueError"},
		{"index out of range", `"items"[5]`, "IndexError"},
		{"unknown function", `nope(1)`, "KeyError"},
		{"wrong arity", `upper()`, "ArgumentError"},
		{"bad conversion", `int("name")`, "ValueError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			er := evalExpr(t, row, tt.expr)
			assertFailed(t, er, http.StatusUnprocessableEntity, tt.tag)
			assertFailed(t, er, http.StatusUnprocessableEntity, "row 0")
		})
	}
}

func TestErrors_SyntaxPosition(t *testing.T) {
	er := evalExpr(t, map[string]interface{}{}, "1 +\n  * 2")
	assertFailed(t, er, http.StatusBadRequest, "")

	e := er.Body["error"].(map[string]interface{})
	if e["status"] != "INVALID_ARGUMENT" {
		t.Errorf("expected INVALID_ARGUMENT, got %v", e["status"])
	}
	pos, ok := e["position"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected position in error: %v", e)
	}
	if pos["line"] != 2.0 || pos["column"] != 3.0 {
		t.Errorf("expected line 2, column 3, got %v", pos)
	}
}

func TestErrors_LexerPosition(t *testing.T) {
	er := evalExpr(t, map[string]interface{}{}, "1 + 'unterminated")
	assertFailed(t, er, http.StatusBadRequest, "lexer error")

	pos := er.Body["error"].(map[string]interface{})["position"].(map[string]interface{})
	if pos["offset"] != 4.0 {
		t.Errorf("expected offset 4, got %v", pos["offset"])
	}
}

func TestErrors_ValidateReportsEachExpression(t *testing.T) {
	status, body := doJSON(t, "POST", "validate", map[string]interface{}{
		"expressions": []map[string]string{
			{"name": "ok", "expression": `"a" + 1`},
			{"name": "unknown_col", "expression": `"b" + 1`},
			{"name": "unknown_fn", "expression": `frob("a")`},
			{"name": "syntax", "expression": `"a" +`},
		},
		"schema": map[string]string{"a": "int"},
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if body["valid"] != false {
		t.Error("expected valid=false")
	}

	results := body["expressions"].([]interface{})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	ok := results[0].(map[string]interface{})
	if ok["type"] != "int" || ok["error"] != nil {
		t.Errorf("unexpected result for ok: %v", ok)
	}
	for _, r := range results[1:] {
		res := r.(map[string]interface{})
		if res["error"] == nil {
			t.Errorf("expected error for %v", res["name"])
		}
	}
	syntax := results[3].(map[string]interface{})["error"].(map[string]interface{})
	if syntax["position"] == nil {
		t.Error("expected position for syntax error")
	}
}

func TestErrors_BadRequestBody(t *testing.T) {
	status, body := doJSON(t, "POST", "compute", map[string]interface{}{
		"expressions": []map[string]string{{"name": "x", "expression": "1"}},
		"rows":        "not an array",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %v", status, body)
	}
}
