package core

import "strings"

// BearerToken returns the token of an Authorization header given all its
// values. No value, or a single empty one, is "" with no error. Anything but
// exactly one "Bearer <token>" value is ErrMalformedAuthorization; the
// scheme is case-insensitive.
func BearerToken(values []string) (string, error) {
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		if strings.TrimSpace(values[0]) == "" {
			return "", nil
		}
	default:
		return "", ErrMalformedAuthorization
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(values[0]), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedAuthorization
	}
	return token, nil
}
