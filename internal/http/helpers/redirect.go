package helpers

import (
	"errors"
	"net/url"
)

var ErrNotAbsoluteURL = errors.New("helpers: redirect target is not an absolute URL")

// AppendQuery agrega params a base conservando la query que base ya tenga.
// Los valores vacíos se omiten.
func AppendQuery(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", ErrNotAbsoluteURL
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
