// Package cookieapi is a typed gateway to a browser extension's cookies API.
//
// A Gateway encodes CookieQuery and CookieWrite requests into the camelCase
// JSON objects the extension API expects, hands them to a Host, and decodes
// the host's answer into a *Cookie. Hosts are anything that can run
// cookies.get / cookies.set: an embedded JavaScript runtime, a browser
// extension reached over native messaging, or the browser itself when the
// program is compiled to WebAssembly.
//
// Results follow three outcomes:
//
//	(*Cookie, nil)       the host returned a cookie
//	(nil, nil)           the host returned its empty sentinel (no cookie, or write declined)
//	(nil, error)         *DecodeError for a malformed response, *HostError for a host failure
//
// Responses are treated as untrusted input. Nothing is defaulted on failure.
package cookieapi
