package foundation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"huta_go/pkg/memory"
)

// String is a managed, mutable text value with value equality.
type String struct {
	memory.Object
	value string
}

// NewString returns a caller-owned String holding s.
func NewString(s string, opts ...memory.Option) *String {
	str := &String{value: s}
	str.Init(str, opts...)
	return str
}

// NewStringf formats according to a format specifier. The String binds to
// the default manager; use NewString with fmt.Sprintf to pick another one.
func NewStringf(format string, args ...any) *String {
	return NewString(fmt.Sprintf(format, args...))
}

// NewStringWithData copies data into a new String. A nil slice yields nil.
func NewStringWithData(data []byte, opts ...memory.Option) *String {
	if data == nil {
		return nil
	}
	return NewString(string(data), opts...)
}

// Value returns the text.
func (s *String) Value() string {
	return s.value
}

// Len returns the length in bytes.
func (s *String) Len() int {
	return len(s.value)
}

// Compare compares lexically with other.
func (s *String) Compare(other string) int {
	return strings.Compare(s.value, other)
}

// Append appends text.
func (s *String) Append(text string) {
	s.value += text
}

// Appendf appends formatted text.
func (s *String) Appendf(format string, args ...any) {
	s.value += fmt.Sprintf(format, args...)
}

// Int parses the text as a base-10 int.
func (s *String) Int() (int, error) {
	return strconv.Atoi(strings.TrimSpace(s.value))
}

// Uint parses the text as a base-10 unsigned int.
func (s *String) Uint() (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s.value), 10, strconv.IntSize)
	return uint(v), err
}

// Float32 parses the text as a float32.
func (s *String) Float32() (float32, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s.value), 32)
	return float32(v), err
}

// Float64 parses the text as a float64.
func (s *String) Float64() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s.value), 64)
}

// Bool is false for "", "0" and "false" and true otherwise.
func (s *String) Bool() bool {
	switch s.value {
	case "", "0", "false":
		return false
	}
	return true
}

// Split cuts the text around every match of the regular expression pattern
// and returns a caller-owned array of Strings. A trailing empty piece is dropped.
func (s *String) Split(pattern string) (*Array, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", pattern, err)
	}
	out := NewArray(s.ManagerOption())
	if s.value == "" {
		return out, nil
	}
	parts := re.Split(s.value, -1)
	if n := len(parts); n > 1 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	for _, part := range parts {
		piece := NewString(part, s.ManagerOption())
		out.AddObject(piece)
		piece.Release()
	}
	return out, nil
}

// IsEqual reports whether other is a String with the same text.
func (s *String) IsEqual(other memory.Ref) bool {
	o, ok := other.(*String)
	return ok && o != nil && o.value == s.value
}

// Clone returns a caller-owned copy.
func (s *String) Clone() (memory.Ref, error) {
	return NewString(s.value, s.ManagerOption()), nil
}

func (s *String) String() string {
	return s.value
}
