package corpus

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	errEmptyEmbedding   = errors.New("empty embedding")
	errNotASequence     = errors.New("embedding is not a bracketed sequence")
	errNonNumericValue  = errors.New("non-numeric embedding element")
	errNonFiniteElement = errors.New("non-finite embedding element")
)

// ParseEmbedding decodes the serialized embedding cell into a vector.
//
// Accepted forms are JSON arrays and Python list/tuple literals of numbers:
// "[0.1, -2e-3, 4]", "(1, 2)", "[1.0, 2.0,]". Every element must be a finite
// number; nested sequences, strings, booleans and empty sequences are rejected.
func ParseEmbedding(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyEmbedding
	}

	open, end := s[0], s[len(s)-1]
	if !(open == '[' && end == ']') && !(open == '(' && end == ')') {
		return nil, errNotASequence
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, errEmptyEmbedding
	}

	parts := strings.Split(body, ",")
	// A single trailing comma is valid literal syntax.
	if strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	vec := make([]float32, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("element %d %q: %w", i, p, errNonNumericValue)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("element %d: %w", i, errNonFiniteElement)
		}
		v := float32(f)
		if math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("element %d overflows float32: %w", i, errNonFiniteElement)
		}
		vec = append(vec, v)
	}
	if len(vec) == 0 {
		return nil, errEmptyEmbedding
	}
	return vec, nil
}
