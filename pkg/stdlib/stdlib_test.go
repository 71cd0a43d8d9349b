package stdlib

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/lemonberrylabs/exprtk/pkg/types"
)

func call(t *testing.T, r *Registry, name string, args ...types.Value) types.Value {
	t.Helper()
	got, err := r.CallFunction(name, args)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	return got
}

func TestRegistryFunctions(t *testing.T) {
	r := NewRegistry()
	i, d, s := types.NewInt, types.NewDouble, types.NewString

	tests := []struct {
		name string
		fn   string
		args []types.Value
		want types.Value
	}{
		{"coalesce first non-null", "coalesce", []types.Value{types.Null, i(2), i(3)}, i(2)},
		{"coalesce all null", "coalesce", []types.Value{types.Null}, types.Null},
		{"is_null", "is_null", []types.Value{types.Null}, types.NewBool(true)},
		{"len runes", "len", []types.Value{s("héllo")}, i(5)},
		{"len list", "len", []types.Value{types.NewList([]types.Value{i(1), i(2)})}, i(2)},
		{"type", "type", []types.Value{d(1)}, s("double")},
		{"int from string", "int", []types.Value{s(" 42 ")}, i(42)},
		{"int from float string", "int", []types.Value{s("3.9")}, i(3)},
		{"int from double", "int", []types.Value{d(-2.7)}, i(-2)},
		{"float from int", "float", []types.Value{i(3)}, d(3)},
		{"string from int", "string", []types.Value{i(7)}, s("7")},
		{"bool from empty string", "bool", []types.Value{s("")}, types.NewBool(false)},

		{"abs int", "abs", []types.Value{i(-3)}, i(3)},
		{"abs double", "abs", []types.Value{d(-1.5)}, d(1.5)},
		{"floor", "floor", []types.Value{d(2.7)}, i(2)},
		{"floor negative", "floor", []types.Value{d(-2.1)}, i(-3)},
		{"ceil", "ceil", []types.Value{d(2.1)}, i(3)},
		{"round half away", "round", []types.Value{d(2.5)}, i(3)},
		{"round digits", "round", []types.Value{d(3.14159), i(2)}, d(3.14)},
		{"sqrt", "sqrt", []types.Value{i(16)}, d(4)},
		{"pow", "pow", []types.Value{i(2), i(3)}, d(8)},
		{"log10", "log10", []types.Value{i(1000)}, d(3)},
		{"max keeps type", "max", []types.Value{i(1), d(2.5), i(2)}, d(2.5)},
		{"min single", "min", []types.Value{i(4)}, i(4)},
		{"clamp low", "clamp", []types.Value{i(-5), i(0), i(10)}, i(0)},
		{"clamp inside", "clamp", []types.Value{d(5.5), i(0), i(10)}, d(5.5)},
		{"sign", "sign", []types.Value{d(-0.1)}, i(-1)},

		{"upper", "upper", []types.Value{s("abc")}, s("ABC")},
		{"lower", "lower", []types.Value{s("ABC")}, s("abc")},
		{"trim", "trim", []types.Value{s("  x  ")}, s("x")},
		{"length", "length", []types.Value{s("日本")}, i(2)},
		{"concat", "concat", []types.Value{s("a"), i(1), types.Null, d(2.5)}, s("a12.5")},
		{"substring", "substring", []types.Value{s("héllo"), i(1), i(3)}, s("él")},
		{"substring to end", "substring", []types.Value{s("hello"), i(3)}, s("lo")},
		{"substring clamped", "substring", []types.Value{s("hello"), i(-2), i(99)}, s("hello")},
		{"substring inverted", "substring", []types.Value{s("hello"), i(4), i(2)}, s("")},
		{"contains", "contains", []types.Value{s("hello"), s("ell")}, types.NewBool(true)},
		{"replace", "replace", []types.Value{s("a-b-c"), s("-"), s("+")}, s("a+b+c")},
		{"match partial", "match", []types.Value{s("order-123"), s(`\d+`)}, types.NewBool(true)},
		{"match_all partial fails", "match_all", []types.Value{s("order-123"), s(`\d+`)}, types.NewBool(false)},
		{"match_all", "match_all", []types.Value{s("123"), s(`\d+`)}, types.NewBool(true)},
		{"split", "split", []types.Value{s("a,b"), s(",")}, types.NewList([]types.Value{s("a"), s("b")})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := call(t, r, tt.fn, tt.args...)
			if got.Type() != tt.want.Type() || !got.Equal(tt.want) {
				t.Errorf("%s(%v) = %v (%s), want %v (%s)", tt.fn, tt.args, got, got.Type(), tt.want, tt.want.Type())
			}
		})
	}
}

func TestRegistryErrors(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		fn   string
		args []types.Value
		tag  string
	}{
		{"unknown function", "nope", nil, types.TagKeyError},
		{"too few args", "abs", nil, types.TagArgumentError},
		{"too many args", "upper", []types.Value{types.NewString("a"), types.NewString("b")}, types.TagArgumentError},
		{"variadic needs one", "max", nil, types.TagArgumentError},
		{"abs of string", "abs", []types.Value{types.NewString("x")}, types.TagTypeError},
		{"abs of min int", "abs", []types.Value{types.NewInt(math.MinInt64)}, types.TagValueError},
		{"floor beyond int range", "floor", []types.Value{types.NewDouble(math.Pow(2, 63))}, types.TagValueError},
		{"upper of int", "upper", []types.Value{types.NewInt(1)}, types.TagTypeError},
		{"int of bad string", "int", []types.Value{types.NewString("abc")}, types.TagValueError},
		{"int of NaN", "int", []types.Value{types.NewDouble(math.NaN())}, types.TagValueError},
		{"log of zero", "log", []types.Value{types.NewInt(0)}, types.TagValueError},
		{"sqrt of negative", "sqrt", []types.Value{types.NewInt(-1)}, types.TagValueError},
		{"clamp inverted bounds", "clamp", []types.Value{types.NewInt(1), types.NewInt(5), types.NewInt(0)}, types.TagValueError},
		{"bad regex", "match", []types.Value{types.NewString("a"), types.NewString("(")}, types.TagValueError},
		{"substring float bound", "substring", []types.Value{types.NewString("a"), types.NewDouble(1)}, types.TagTypeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CallFunction(tt.fn, tt.args)
			var evalErr *types.EvalError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected *types.EvalError, got %v", err)
			}
			if !evalErr.HasTag(tt.tag) {
				t.Errorf("tags = %v, want %s", evalErr.Tags, tt.tag)
			}
		})
	}
}

func TestNames(t *testing.T) {
	r := NewRegistry()
	names := r.Names()
	if !sort.StringsAreSorted(names) {
		t.Errorf("names not sorted: %v", names)
	}
	for _, want := range []string{"abs", "coalesce", "concat", "match_all", "upper"} {
		if !r.Has(want) {
			t.Errorf("missing %s", want)
		}
	}

	r.Register("custom", func([]types.Value) (types.Value, error) { return types.NewInt(1), nil })
	if got := call(t, r, "custom"); got.AsInt() != 1 {
		t.Errorf("custom() = %v", got)
	}
	if len(r.Names()) != len(names)+1 {
		t.Error("Register should add to Names")
	}
}

func TestRegexCacheIsBounded(t *testing.T) {
	c := newRegexCache(3)
	first, err := c.compile("a+")
	if err != nil {
		t.Fatal(err)
	}
	again, _ := c.compile("a+")
	if first != again {
		t.Error("expected the cached pattern to be reused")
	}

	for i := 0; i < 10; i++ {
		if _, err := c.compile(fmt.Sprintf("x{%d}", i)); err != nil {
			t.Fatal(err)
		}
	}
	if got := c.size(); got != 3 {
		t.Errorf("size = %d, want 3", got)
	}
	if _, ok := c.entries["a+"]; ok {
		t.Error("oldest pattern should have been evicted")
	}

	if _, err := c.compile("("); err == nil {
		t.Error("expected invalid pattern to fail")
	}
	if got := c.size(); got != 3 {
		t.Errorf("invalid patterns must not be cached, size = %d", got)
	}
}
