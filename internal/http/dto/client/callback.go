package client

import "net/url"

// CallbackRequest parámetros que el authserver devuelve en el redirect.
type CallbackRequest struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CarriesCallback true si v trae alguno de code, state o error.
func CarriesCallback(v url.Values) bool {
	return v.Get("code") != "" || v.Get("state") != "" || v.Get("error") != ""
}

// CallbackRequestFrom lee un único conjunto de valores. El controller decide de
// dónde vienen (body o query), nunca los mezcla campo a campo.
func CallbackRequestFrom(v url.Values) CallbackRequest {
	return CallbackRequest{
		Code:             v.Get("code"),
		State:            v.Get("state"),
		Error:            v.Get("error"),
		ErrorDescription: v.Get("error_description"),
	}
}
