package world

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedRef is returned when a reference token is not of the form "#<n>".
var ErrMalformedRef = errors.New("malformed reference token")

// Ref is an entity reference token, "#<n>" where n is the numeric id.
type Ref string

// RefOf returns the reference token for a numeric id.
func RefOf(id int) Ref {
	return Ref("#" + strconv.Itoa(id))
}

// ID decodes the numeric id embedded in the token.
func (r Ref) ID() (int, error) {
	return ParseRef(string(r))
}

// ParseRef decodes a "#<n>" token. Anything other than '#' followed by one or
// more decimal digits is rejected.
func ParseRef(token string) (int, error) {
	if len(token) < 2 || token[0] != '#' {
		return 0, fmt.Errorf("%w: %q", ErrMalformedRef, token)
	}
	digits := token[1:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrMalformedRef, token)
		}
	}
	id, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedRef, token, err)
	}
	return id, nil
}
