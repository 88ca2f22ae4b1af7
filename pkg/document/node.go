package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/tidwall/gjson"
)

// Node is a read-only view over one value of a workflow document.
// The zero Node is absent.
type Node struct {
	r gjson.Result
}

func newNode(r gjson.Result) Node {
	return Node{r: r}
}

// Exists reports whether the node is present in the document.
func (n Node) Exists() bool {
	return n.r.Exists()
}

// Field finds the named member of an object node.
// Names are matched literally; dots are not treated as paths.
func (n Node) Field(name string) (Node, bool) {
	if !n.r.IsObject() {
		return Node{}, false
	}
	child := n.r.Get(escapeKey(name))
	if !child.Exists() {
		return Node{}, false
	}
	return newNode(child), true
}

// String extracts a string value. Other JSON types are a protocol-format error.
func (n Node) String() (string, error) {
	if n.r.Type != gjson.String {
		return "", fmt.Errorf("%w: expected string, got %s", domain.ErrProtocolFormat, n.kind())
	}
	return n.r.Str, nil
}

// Int extracts an integer value. Numeric strings are accepted.
func (n Node) Int() (int, error) {
	switch n.r.Type {
	case gjson.Number:
		if strings.ContainsAny(n.r.Raw, ".eE") && n.r.Num != float64(int64(n.r.Num)) {
			return 0, fmt.Errorf("%w: expected integer, got %s", domain.ErrProtocolFormat, n.r.Raw)
		}
		return int(n.r.Int()), nil
	case gjson.String:
		v, err := strconv.Atoi(strings.TrimSpace(n.r.Str))
		if err != nil {
			return 0, fmt.Errorf("%w: expected integer, got %q", domain.ErrProtocolFormat, n.r.Str)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("%w: expected integer, got %s", domain.ErrProtocolFormat, n.kind())
	}
}

// Bool extracts a boolean value.
func (n Node) Bool() (bool, error) {
	switch n.r.Type {
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	default:
		return false, fmt.Errorf("%w: expected boolean, got %s", domain.ErrProtocolFormat, n.kind())
	}
}

// ID extracts a step identifier. Numbers are normalized to their decimal form.
func (n Node) ID() (string, error) {
	switch n.r.Type {
	case gjson.String:
		if n.r.Str == "" {
			return "", fmt.Errorf("%w: empty step id", domain.ErrProtocolFormat)
		}
		return n.r.Str, nil
	case gjson.Number:
		v, err := n.Int()
		if err != nil {
			return "", err
		}
		return strconv.Itoa(v), nil
	default:
		return "", fmt.Errorf("%w: expected step id, got %s", domain.ErrProtocolFormat, n.kind())
	}
}

// Array returns the elements of an array node.
func (n Node) Array() ([]Node, error) {
	if !n.r.IsArray() {
		return nil, fmt.Errorf("%w: expected array, got %s", domain.ErrProtocolFormat, n.kind())
	}
	items := n.r.Array()
	out := make([]Node, len(items))
	for i, item := range items {
		out[i] = newNode(item)
	}
	return out, nil
}

// Members returns the key/value pairs of an object node in document order.
func (n Node) Members() ([]Member, error) {
	if !n.r.IsObject() {
		return nil, fmt.Errorf("%w: expected object, got %s", domain.ErrProtocolFormat, n.kind())
	}
	var out []Member
	n.r.ForEach(func(key, value gjson.Result) bool {
		out = append(out, Member{Key: key.Str, Value: newNode(value)})
		return true
	})
	return out, nil
}

// Member is one key/value pair of an object node.
type Member struct {
	Key   string
	Value Node
}

// IsObject reports whether the node is a JSON object.
func (n Node) IsObject() bool { return n.r.IsObject() }

// IsArray reports whether the node is a JSON array.
func (n Node) IsArray() bool { return n.r.IsArray() }

// IsString reports whether the node is a JSON string.
func (n Node) IsString() bool { return n.r.Type == gjson.String }

// IsNumber reports whether the node is a JSON number.
func (n Node) IsNumber() bool { return n.r.Type == gjson.Number }

// Raw returns the exact source text of the node.
func (n Node) Raw() string { return n.r.Raw }

// Value returns the node decoded into plain Go values.
func (n Node) Value() any { return n.r.Value() }

// Size returns the number of values in the subtree rooted at the node,
// counting the node itself.
func (n Node) Size() int {
	if !n.r.Exists() {
		return 0
	}
	size := 1
	if n.r.IsObject() || n.r.IsArray() {
		n.r.ForEach(func(_, value gjson.Result) bool {
			size += newNode(value).Size()
			return true
		})
	}
	return size
}

func (n Node) kind() string {
	switch {
	case !n.r.Exists():
		return "nothing"
	case n.r.IsObject():
		return "object"
	case n.r.IsArray():
		return "array"
	}
	switch n.r.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Null:
		return "null"
	}
	return "unknown"
}

var keyEscaper = strings.NewReplacer(
	`\`, `\\`,
	".", `\.`,
	"*", `\*`,
	"?", `\?`,
	"|", `\|`,
	"#", `\#`,
	"@", `\@`,
)

func escapeKey(name string) string {
	return keyEscaper.Replace(name)
}
