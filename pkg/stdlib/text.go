package stdlib

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/lemonberrylabs/exprtk/pkg/types"
)

// registerText registers string functions.
func (r *Registry) registerText() {
	r.Register("upper", textTransform("upper", strings.ToUpper))
	r.Register("lower", textTransform("lower", strings.ToLower))
	r.Register("trim", textTransform("trim", strings.TrimSpace))
	r.Register("length", textLength)
	r.Register("concat", textConcat)
	r.Register("substring", textSubstring)
	r.Register("contains", textContains)
	r.Register("replace", textReplace)
	r.Register("match", textMatch(false))
	r.Register("match_all", textMatch(true))
	r.Register("split", textSplit)
}

func textTransform(name string, fn func(string) string) StdlibFunc {
	return func(args []types.Value) (types.Value, error) {
		if err := requireArgs(name, args, 1, 1); err != nil {
			return types.Null, err
		}
		strs, err := requireStrings(name, args)
		if err != nil {
			return types.Null, err
		}
		return types.NewString(fn(strs[0])), nil
	}
}

func textLength(args []types.Value) (types.Value, error) {
	if err := requireArgs("length", args, 1, 1); err != nil {
		return types.Null, err
	}
	strs, err := requireStrings("length", args)
	if err != nil {
		return types.Null, err
	}
	return types.NewInt(int64(utf8.RuneCountInString(strs[0]))), nil
}

// textConcat joins the string form of every argument. Null arguments are
// skipped.
func textConcat(args []types.Value) (types.Value, error) {
	var sb strings.Builder
	for _, a := range args {
		if a.IsNull() {
			continue
		}
		sb.WriteString(a.String())
	}
	return types.NewString(sb.String()), nil
}

// textSubstring returns the runes in [start, end). End defaults to the end
// of the string; out of range bounds are clamped.
func textSubstring(args []types.Value) (types.Value, error) {
	if err := requireArgs("substring", args, 2, 3); err != nil {
		return types.Null, err
	}
	if args[0].Type() != types.TypeString {
		return types.Null, types.NewTypeError("substring requires a string source")
	}
	source := []rune(args[0].AsString())

	for _, a := range args[1:] {
		if a.Type() != types.TypeInt {
			return types.Null, types.NewTypeError("substring bounds must be integers")
		}
	}
	start := args[1].AsInt()
	end := int64(len(source))
	if len(args) == 3 {
		end = args[2].AsInt()
	}

	if start < 0 {
		start = 0
	}
	if end > int64(len(source)) {
		end = int64(len(source))
	}
	if start > end {
		return types.NewString(""), nil
	}

	return types.NewString(string(source[start:end])), nil
}

func textContains(args []types.Value) (types.Value, error) {
	if err := requireArgs("contains", args, 2, 2); err != nil {
		return types.Null, err
	}
	strs, err := requireStrings("contains", args)
	if err != nil {
		return types.Null, err
	}
	return types.NewBool(strings.Contains(strs[0], strs[1])), nil
}

func textReplace(args []types.Value) (types.Value, error) {
	if err := requireArgs("replace", args, 3, 3); err != nil {
		return types.Null, err
	}
	strs, err := requireStrings("replace", args)
	if err != nil {
		return types.Null, err
	}
	return types.NewString(strings.ReplaceAll(strs[0], strs[1], strs[2])), nil
}

// maxCachedRegexps bounds the pattern cache. Patterns come from user
// expressions, so the server cannot keep every one it has seen.
const maxCachedRegexps = 256

// regexCache holds recently compiled patterns; the same pattern is usually
// applied to every row of a table. Once full, the oldest pattern is evicted.
type regexCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*regexp.Regexp
	order   []string
}

func newRegexCache(max int) *regexCache {
	return &regexCache{max: max, entries: make(map[string]*regexp.Regexp)}
}

func (c *regexCache) compile(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	re, ok := c.entries[pattern]
	c.mu.Unlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, types.NewValueError(fmt.Sprintf("invalid regex: %v", err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[pattern]; !ok {
		if len(c.order) >= c.max {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
		c.entries[pattern] = re
		c.order = append(c.order, pattern)
	}
	return re, nil
}

func (c *regexCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var regexps = newRegexCache(maxCachedRegexps)

func compileRegex(pattern string) (*regexp.Regexp, error) {
	return regexps.compile(pattern)
}

// textMatch builds match (pattern found anywhere) and match_all (pattern
// covers the whole string).
func textMatch(full bool) StdlibFunc {
	name := "match"
	if full {
		name = "match_all"
	}
	return func(args []types.Value) (types.Value, error) {
		if err := requireArgs(name, args, 2, 2); err != nil {
			return types.Null, err
		}
		strs, err := requireStrings(name, args)
		if err != nil {
			return types.Null, err
		}
		pattern := strs[1]
		if full {
			pattern = "^(?:" + pattern + ")$"
		}
		re, err := compileRegex(pattern)
		if err != nil {
			return types.Null, err
		}
		return types.NewBool(re.MatchString(strs[0])), nil
	}
}

func textSplit(args []types.Value) (types.Value, error) {
	if err := requireArgs("split", args, 2, 2); err != nil {
		return types.Null, err
	}
	strs, err := requireStrings("split", args)
	if err != nil {
		return types.Null, err
	}

	parts := strings.Split(strs[0], strs[1])
	result := make([]types.Value, len(parts))
	for i, p := range parts {
		result[i] = types.NewString(p)
	}
	return types.NewList(result), nil
}
