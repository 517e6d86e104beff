// Package status decides whether an observed HTTP status code satisfies a
// configured expectation, either an exact code or a status class.
package status

import (
	"fmt"
	"strconv"
	"strings"
)

// Class is an HTTP status class. The numeric value of each class is its
// hundreds digit, so Class2xx covers 200-299.
type Class int

const (
	ClassUnspecified Class = 0
	Class1xx         Class = 1
	Class2xx         Class = 2
	Class3xx         Class = 3
	Class4xx         Class = 4
	Class5xx         Class = 5
)

var classNames = map[Class]string{
	ClassUnspecified: "STATUS_CLASS_UNSPECIFIED",
	Class1xx:         "STATUS_CLASS_1XX",
	Class2xx:         "STATUS_CLASS_2XX",
	Class3xx:         "STATUS_CLASS_3XX",
	Class4xx:         "STATUS_CLASS_4XX",
	Class5xx:         "STATUS_CLASS_5XX",
}

// Valid reports whether c names one of the five status classes.
func (c Class) Valid() bool {
	return c >= Class1xx && c <= Class5xx
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("STATUS_CLASS(%d)", int(c))
}

// MarshalText encodes the class by its canonical name.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts canonical names ("STATUS_CLASS_2XX") and the short
// form ("2xx"), case-insensitively.
func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := ParseClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClass parses a status class name.
func ParseClass(s string) (Class, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.TrimPrefix(norm, "STATUS_CLASS_")
	switch norm {
	case "", "UNSPECIFIED":
		return ClassUnspecified, nil
	case "1XX":
		return Class1xx, nil
	case "2XX":
		return Class2xx, nil
	case "3XX":
		return Class3xx, nil
	case "4XX":
		return Class4xx, nil
	case "5XX":
		return Class5xx, nil
	}
	return ClassUnspecified, fmt.Errorf("unknown status class %q", s)
}

// Expectation is a pass rule for an HTTP status. When Code is non-zero it
// takes precedence and Class is ignored.
type Expectation struct {
	Code  int   `json:"status_value,omitempty"`
	Class Class `json:"status_class,omitempty"`
}

// Exact returns an expectation matching exactly one status code.
func Exact(code int) Expectation {
	return Expectation{Code: code}
}

// OfClass returns an expectation matching a whole status class.
func OfClass(c Class) Expectation {
	return Expectation{Class: c}
}

// IsZero reports whether neither a code nor a class is configured.
func (e Expectation) IsZero() bool {
	return e.Code == 0 && e.Class == ClassUnspecified
}

func (e Expectation) String() string {
	if e.Code != 0 {
		return strconv.Itoa(e.Code)
	}
	if e.Class.Valid() {
		return fmt.Sprintf("%dxx", int(e.Class))
	}
	return "unspecified"
}

// ParseExpectation parses "404" as an exact code and "4xx" or
// "STATUS_CLASS_4XX" as a class.
func ParseExpectation(s string) (Expectation, error) {
	trimmed := strings.TrimSpace(s)
	if code, err := strconv.Atoi(trimmed); err == nil {
		return Exact(code), nil
	}
	c, err := ParseClass(trimmed)
	if err != nil {
		return Expectation{}, fmt.Errorf("parse status expectation: %w", err)
	}
	return OfClass(c), nil
}

// IsPassing reports whether actual satisfies expected. An unset or
// unrecognised expectation never passes.
func IsPassing(expected Expectation, actual int) bool {
	if expected.Code != 0 {
		return actual == expected.Code
	}
	if !expected.Class.Valid() {
		return false
	}
	low := int(expected.Class) * 100
	return actual >= low && actual <= low+99
}
