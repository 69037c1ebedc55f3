package cmd

const DESCRIPTION = `
cookiebridge reads and writes browser cookies through the
browser's own cookies API. It talks either to a host script
running in an embedded JavaScript runtime or to a browser
extension over native messaging. When the extension connects,
the browser starts cookiebridge as its native host and the
other cookiebridge commands reach it with --relay.
`

const (
	GetDescription = `The get command looks up a single cookie by name for a
url. It prints "no cookie" when the browser has no match.
The cookie is printed as JSON, as a Netscape cookies.txt
line, as a Cookie header or as a Set-Cookie header.

Example:
        cookiebridge --script host.js get --url https://example.com --name sid
        cookiebridge --relay get --url https://example.com --name sid --format header

`
	SetDescription = `The set command writes a cookie for a url. Only the
attributes given on the command line are sent, the browser
fills in the rest. It fails when the browser declines the
cookie.

Example:
        cookiebridge --script host.js set --url https://example.com --name sid --value abc
        cookiebridge --relay set --url https://example.com --name sid --value abc --secure --same-site lax

`
	ImportDescription = `The import command reads the cookies of a domain from a
local browser cookie store (Firefox or Chrome database, or a
Netscape cookies.txt file) and sets each of them through the
gateway. Use --from auto to pick the first store found among
the known browsers.

Example:
        cookiebridge --relay import --from ~/cookies.txt --domain example.com
        cookiebridge --relay import --from auto --domain example.com --jobs 8

`
	ManifestDescription = `The manifest command installs or removes the native
messaging manifest which lets a browser extension launch
cookiebridge as its native host. The launched process runs
the relay.

Example:
        cookiebridge manifest install --browser chrome --extension-id abcdefghijklmnopabcdefghijklmnop
        cookiebridge manifest uninstall --browser firefox

`
	RelayDescription = `The relay command serves native messages between the
browser extension on stdin/stdout and local cookiebridge
clients on a unix socket. Browsers start it through the
installed manifest; running it by hand is only useful with a
launcher that connects stdin/stdout to the extension.

Example:
        cookiebridge --socket /tmp/cookiebridge.sock relay
        cookiebridge --socket /tmp/cookiebridge.sock --relay get --url https://example.com --name sid

`
)
