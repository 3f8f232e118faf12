package bridge

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/hugr-lab/sits-go/robj"
)

// ErrMalformedCall is returned by ParseCall for text that is not a single
// function call.
var ErrMalformedCall = errors.New("malformed call text")

// ParseCall splits call text "fn(a, name = b)" into the function name and
// its arguments. An argument whose text is the name of an env binding becomes
// the bound value; any other argument becomes an unevaluated
// *robj.Expression holding its text.
func ParseCall(src string, env []robj.Named) (fn string, args []robj.Value, named []robj.Named, err error) {
	src = strings.TrimSpace(src)
	open := strings.IndexByte(src, '(')
	if open <= 0 || !strings.HasSuffix(src, ")") {
		return "", nil, nil, fmt.Errorf("%w: %q", ErrMalformedCall, src)
	}
	fn = strings.TrimSpace(src[:open])
	parts, err := splitArgs(src[open+1 : len(src)-1])
	if err != nil {
		return "", nil, nil, fmt.Errorf("%w: %v", ErrMalformedCall, err)
	}

	bound := make(map[string]robj.Value, len(env))
	for _, b := range env {
		bound[b.Name] = b.Value
	}
	value := func(text string) robj.Value {
		if v, ok := bound[text]; ok {
			return v
		}
		return robj.NewExpression(text)
	}

	for _, p := range parts {
		name, text := splitName(p)
		if text == "" {
			return "", nil, nil, fmt.Errorf("%w: empty argument in %q", ErrMalformedCall, src)
		}
		if name == "" {
			args = append(args, value(text))
			continue
		}
		named = append(named, robj.Named{Name: name, Value: value(text)})
	}
	return fn, args, named, nil
}

// splitArgs splits s on top-level commas.
func splitArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			switch r {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"', '`':
			quote = r
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced %q", r)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(string(runes[start:i])))
				start = i + 1
			}
		}
	}
	if quote != 0 || depth != 0 {
		return nil, fmt.Errorf("unterminated argument list")
	}
	return append(parts, strings.TrimSpace(string(runes[start:]))), nil
}

// splitName separates "name = value". Comparisons such as "a == b" are not
// named arguments.
func splitName(arg string) (name, value string) {
	if strings.HasPrefix(arg, "`") {
		end := strings.IndexByte(arg[1:], '`')
		if end < 0 {
			return "", arg
		}
		rest := strings.TrimSpace(arg[end+2:])
		if isAssign(rest) {
			return arg[1 : end+1], strings.TrimSpace(rest[1:])
		}
		return "", arg
	}
	i := 0
	for i < len(arg) && isNameByte(rune(arg[i])) {
		i++
	}
	if i == 0 {
		return "", arg
	}
	rest := strings.TrimSpace(arg[i:])
	if isAssign(rest) {
		return arg[:i], strings.TrimSpace(rest[1:])
	}
	return "", arg
}

func isAssign(s string) bool {
	return strings.HasPrefix(s, "=") && !strings.HasPrefix(s, "==")
}

func isNameByte(r rune) bool {
	return r == '.' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
