// Package cookies reads cookies out of browser cookie stores (Firefox and
// Chrome SQLite databases, Netscape text files) and pushes them into a
// browser through the cookie gateway. It also renders decoded cookies back
// out as a Netscape file or a Cookie header.
//
// Cookie values are never logged. Only names, domains and source paths may
// appear in log output.
package cookies
