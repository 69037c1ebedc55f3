package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	cmdcommon "github.com/warpdl/cookiebridge/cmd/common"
	"github.com/warpdl/cookiebridge/internal/nativehost"
	"github.com/warpdl/cookiebridge/pkg/cookieapi"
)

var testBuild = BuildArgs{Version: "test", BuildType: "unit", Date: "today", Commit: "abc123"}

// hostScript serves a single preset cookie. set echoes the details back
// with storeId listing the keys it was sent, and declines "reject".
const hostScript = `
var preset = {
	domain: "example.com", hostOnly: true, httpOnly: true, name: "sid", path: "/",
	sameSite: "lax", secure: true, session: false, expirationDate: 1900000000,
	storeId: "0", value: "abc"
};
var browser = {
	cookies: {
		get: function (d) {
			if (d.url === "https://example.com/" && d.name === "sid") {
				return Promise.resolve(preset);
			}
			if (d.name === "broken") {
				return Promise.resolve({ name: "broken", sameSite: "LAX" });
			}
			return Promise.resolve(null);
		},
		set: function (d) {
			if (d.name === "reject") {
				return Promise.resolve(null);
			}
			return Promise.resolve({
				domain:         d.domain !== undefined ? d.domain : "example.com",
				hostOnly:       d.domain === undefined,
				httpOnly:       !!d.httpOnly,
				name:           d.name !== undefined ? d.name : "",
				path:           d.path !== undefined ? d.path : "/",
				sameSite:       d.sameSite !== undefined ? d.sameSite : "unspecified",
				secure:         !!d.secure,
				session:        d.expirationDate === undefined,
				expirationDate: d.expirationDate,
				partitionKey:   d.partitionKey,
				storeId:        Object.keys(d).sort().join(","),
				value:          d.value !== undefined ? d.value : ""
			});
		}
	}
};
`

const presetJSON = `{"domain":"example.com","hostOnly":true,"httpOnly":true,"name":"sid","path":"/",` +
	`"sameSite":"lax","secure":true,"session":false,"expirationDate":1900000000,"storeId":"0","value":"abc"}`

// useFs swaps the package filesystem for a memory one holding files.
func useFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	mem := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(mem, name, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	old := fs
	fs = mem
	t.Cleanup(func() { fs = old })
	return mem
}

// stubHelp records command help requests instead of printing templates.
func stubHelp(t *testing.T) *[]string {
	t.Helper()
	var asked []string
	prev := cmdcommon.SetShowCommandHelp(func(_ *cli.Context, name string) error {
		asked = append(asked, name)
		return nil
	})
	t.Cleanup(func() { cmdcommon.SetShowCommandHelp(prev) })
	return &asked
}

func run(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	app := newApp(testBuild, &stdout, &stderr)
	err := app.Run(append([]string{"cookiebridge"}, args...))
	return stdout.String(), stderr.String(), err
}

func runScript(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	useFs(t, map[string]string{"/scripts/host.js": hostScript})
	return run(append([]string{"--script", "/scripts/host.js"}, args...)...)
}

func decodeOutput(t *testing.T, out string) *cookieapi.Cookie {
	t.Helper()
	c, err := cookieapi.DecodeCookie([]byte(out))
	if err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if c == nil {
		t.Fatalf("expected a cookie in output")
	}
	return c
}

func TestGetFormats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"header", "sid=abc\n"},
		{"netscape", "# Netscape HTTP Cookie File\n#HttpOnly_example.com\tFALSE\t/\tTRUE\t1900000000\tsid\tabc\n"},
		{"set-cookie", "sid=abc; Path=/; Expires=Sun, 17 Mar 2030 17:46:40 GMT; HttpOnly; Secure; SameSite=Lax\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, _, err := runScript(t, "get", "--url", "https://example.com/", "--name", "sid", "--format", tt.format)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if out != tt.want {
				t.Fatalf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestGetJSON(t *testing.T) {
	out, _, err := runScript(t, "get", "-u", "https://example.com/", "-n", "sid")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	c := decodeOutput(t, out)
	if c.Name != "sid" || c.Value != "abc" || c.SameSite != cookieapi.Lax || !c.HTTPOnly {
		t.Fatalf("unexpected cookie: %+v", c)
	}
	if c.ExpirationDate == nil || *c.ExpirationDate != 1900000000 {
		t.Fatalf("unexpected expiration: %v", c.ExpirationDate)
	}
}

func TestGetAbsent(t *testing.T) {
	out, _, err := runScript(t, "get", "--url", "https://example.com/", "--name", "missing")
	if err != nil {
		t.Fatalf("absent cookie should not fail: %v", err)
	}
	if out != "no cookie\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestGetDecodeError(t *testing.T) {
	_, _, err := runScript(t, "get", "--url", "https://example.com/", "--name", "broken")
	var de *cookieapi.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "get[host_call]: ") {
		t.Fatalf("unexpected error format: %q", err)
	}
}

func TestGetUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing name", []string{"get", "--url", "https://example.com/"}, "--url and --name are required"},
		{"bad format", []string{"get", "--url", "u", "--name", "n", "--format", "xml"}, `unknown format "xml"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asked := stubHelp(t)
			out, _, err := runScript(t, tt.args...)
			if err != nil {
				t.Fatalf("usage errors are reported, not returned: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Fatalf("output %q does not mention %q", out, tt.want)
			}
			if len(*asked) != 1 || (*asked)[0] != "get" {
				t.Fatalf("expected help for get, got %v", *asked)
			}
		})
	}
}

func TestLogFile(t *testing.T) {
	mem := useFs(t, map[string]string{"/scripts/host.js": hostScript})
	_, stderr, err := run("--script", "/scripts/host.js", "--log-file", "/cookiebridge.log",
		"get", "--url", "https://example.com/", "--name", "sid")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stderr != "" {
		t.Fatalf("expected nothing on stderr without --debug, got %q", stderr)
	}
	b, err := afero.ReadFile(mem, "/cookiebridge.log")
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(b), "[INFO] jshost: loaded host script host.js") {
		t.Fatalf("unexpected log: %q", b)
	}
	if strings.Contains(string(b), "[DEBUG]") {
		t.Fatalf("debug lines logged without --debug: %q", b)
	}
}

func TestDebugLogsToStderrAndFile(t *testing.T) {
	mem := useFs(t, map[string]string{"/scripts/host.js": hostScript})
	_, stderr, err := run("--script", "/scripts/host.js", "--debug", "--log-file", "/cookiebridge.log",
		"get", "--url", "https://example.com/", "--name", "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, err := afero.ReadFile(mem, "/cookiebridge.log")
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	for name, got := range map[string]string{"stderr": stderr, "log file": string(b)} {
		if !strings.Contains(got, `[DEBUG] cookies.get name="missing"`) {
			t.Fatalf("%s lacks the gateway debug line: %q", name, got)
		}
	}
}

func TestNoHost(t *testing.T) {
	_, _, err := run("get", "--url", "https://example.com/", "--name", "sid")
	if !errors.Is(err, errNoHost) {
		t.Fatalf("expected errNoHost, got %v", err)
	}
}

func TestMissingScript(t *testing.T) {
	useFs(t, nil)
	_, _, err := run("--script", "/scripts/none.js", "get", "--url", "https://example.com/", "--name", "sid")
	if err == nil || !strings.HasPrefix(err.Error(), "get[open_host]: ") {
		t.Fatalf("expected open_host error, got %v", err)
	}
}

func TestSetSendsOnlyGivenFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantKeys string
		check    func(*testing.T, *cookieapi.Cookie)
	}{
		{
			name:     "minimal",
			args:     []string{"--url", "https://example.com/"},
			wantKeys: "url",
			check: func(t *testing.T, c *cookieapi.Cookie) {
				if !c.Session || c.SameSite != cookieapi.Unspecified {
					t.Fatalf("unexpected cookie: %+v", c)
				}
			},
		},
		{
			name: "persistent secure strict",
			args: []string{"--url", "https://example.com/", "--name", "a", "--value", "b",
				"--secure", "--same-site", "strict", "--expires", "1900000000"},
			wantKeys: "expirationDate,name,sameSite,secure,url,value",
			check: func(t *testing.T, c *cookieapi.Cookie) {
				if !c.Secure || c.SameSite != cookieapi.Strict || c.Session {
					t.Fatalf("unexpected cookie: %+v", c)
				}
				if c.ExpirationDate == nil || *c.ExpirationDate != 1900000000 {
					t.Fatalf("unexpected expiration: %v", c.ExpirationDate)
				}
			},
		},
		{
			name:     "explicit false",
			args:     []string{"--url", "https://example.com/", "--http-only=false", "--domain", ".example.com"},
			wantKeys: "domain,httpOnly,url",
			check: func(t *testing.T, c *cookieapi.Cookie) {
				if c.HTTPOnly || c.HostOnly || c.Domain != ".example.com" {
					t.Fatalf("unexpected cookie: %+v", c)
				}
			},
		},
		{
			name:     "partitioned",
			args:     []string{"--url", "https://example.com/", "--partition-top-level-site", "--store-id", "1"},
			wantKeys: "partitionKey,storeId,url",
			check: func(t *testing.T, c *cookieapi.Cookie) {
				if c.PartitionKey == nil || c.PartitionKey.TopLevelSite == nil || !*c.PartitionKey.TopLevelSite {
					t.Fatalf("unexpected partition key: %+v", c.PartitionKey)
				}
				if c.PartitionKey.HasCrossSiteAncestor != nil {
					t.Fatalf("cross-site flag was not given")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runScript(t, append([]string{"set"}, tt.args...)...)
			if err != nil {
				t.Fatalf("set: %v", err)
			}
			c := decodeOutput(t, out)
			if c.StoreID != tt.wantKeys {
				t.Fatalf("sent keys %q, want %q", c.StoreID, tt.wantKeys)
			}
			tt.check(t, c)
		})
	}
}

func TestSetDeclined(t *testing.T) {
	out, _, err := runScript(t, "set", "--url", "https://example.com/", "--name", "reject")
	if !errors.Is(err, errDeclined) {
		t.Fatalf("expected errDeclined, got %v", err)
	}
	if out != "no cookie\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestSetInvalidSameSite(t *testing.T) {
	asked := stubHelp(t)
	out, _, err := runScript(t, "set", "--url", "https://example.com/", "--same-site", "LAX")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !strings.Contains(out, cookieapi.ErrInvalidSameSite.Error()) {
		t.Fatalf("output %q does not report the same-site tag", out)
	}
	if len(*asked) != 1 {
		t.Fatalf("expected command help, got %v", *asked)
	}
}

func TestNativeGet(t *testing.T) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	old := stdin
	stdin = respR
	t.Cleanup(func() {
		stdin = old
		reqR.Close()
		respW.Close()
	})

	got := make(chan nativehost.Request, 1)
	go func() {
		defer close(got)
		msg, err := nativehost.ReadMessage(reqR)
		if err != nil {
			return
		}
		var req nativehost.Request
		if json.Unmarshal(msg, &req) != nil {
			return
		}
		resp, _ := json.Marshal(nativehost.Response{ID: req.ID, Ok: true, Result: json.RawMessage(presetJSON)})
		if nativehost.WriteMessage(respW, resp) == nil {
			got <- req
		}
	}()

	var stderr bytes.Buffer
	app := newApp(testBuild, reqW, &stderr)
	err := app.Run([]string{"cookiebridge", "--native", "get", "--url", "https://example.com/", "--name", "sid", "--format", "header"})
	if err != nil {
		t.Fatalf("native get: %v", err)
	}
	req, ok := <-got
	if !ok {
		t.Fatalf("extension did not receive a request")
	}
	if req.Method != "cookies.get" {
		t.Fatalf("method = %q", req.Method)
	}
	if want := `{"name":"sid","url":"https://example.com/"}`; string(req.Message) != want {
		t.Fatalf("message = %s, want %s", req.Message, want)
	}
	// stdout is the native channel, so output goes to stderr
	if stderr.String() != "sid=abc\n" {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestImportNetscape(t *testing.T) {
	useFs(t, map[string]string{
		"/scripts/host.js": hostScript,
		"/data/cookies.txt": "# Netscape HTTP Cookie File\n" +
			".example.com\tTRUE\t/\tTRUE\t0\tsid\tabc\n" +
			"#HttpOnly_www.example.com\tFALSE\t/app\tFALSE\t0\ttheme\tdark\n" +
			"example.com\tFALSE\t/\tFALSE\t0\treject\tx\n" +
			"other.org\tFALSE\t/\tFALSE\t0\tskip\ty\n",
	})
	out, stderr, err := run("--script", "/scripts/host.js", "import", "--from", "/data/cookies.txt", "-d", "example.com", "-j", "2")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	want := "imported 3 cookies from /data/cookies.txt (Netscape): 2 stored, 1 declined\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
	if strings.Contains(stderr, "abc") || strings.Contains(stderr, "dark") {
		t.Fatalf("cookie values leaked to stderr: %q", stderr)
	}
}

func TestImportNoMatches(t *testing.T) {
	useFs(t, map[string]string{
		"/scripts/host.js":  hostScript,
		"/data/cookies.txt": "# Netscape HTTP Cookie File\nother.org\tFALSE\t/\tFALSE\t0\tskip\ty\n",
	})
	out, _, err := run("--script", "/scripts/host.js", "import", "--from", "/data/cookies.txt", "--domain", "example.com")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if out != "no cookies for example.com in /data/cookies.txt\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestImportUnreadableStore(t *testing.T) {
	useFs(t, map[string]string{
		"/scripts/host.js": hostScript,
		"/data/junk.txt":   "not a cookie file\n",
	})
	_, _, err := run("--script", "/scripts/host.js", "import", "--from", "/data/junk.txt", "--domain", "example.com")
	if err == nil || !strings.HasPrefix(err.Error(), "import[read_store]: ") {
		t.Fatalf("expected read_store error, got %v", err)
	}
}

func TestManifestInstallUninstall(t *testing.T) {
	mem := useFs(t, nil)
	old := homeDir
	homeDir = func() (string, error) { return "/home/tester", nil }
	t.Cleanup(func() { homeDir = old })

	path, err := nativehost.ManifestPath(nativehost.BrowserFirefox, runtime.GOOS, "/home/tester")
	if err != nil {
		t.Skipf("no manifest location on %s: %v", runtime.GOOS, err)
	}

	out, _, err := run("manifest", "install", "--browser", "firefox", "--extension-id", "bridge@example.org", "--host-path", "/opt/cookiebridge")
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Fatalf("output %q does not name %s", out, path)
	}
	b, err := afero.ReadFile(mem, path)
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	var m nativehost.FirefoxManifest
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if m.Path != "/opt/cookiebridge" || len(m.AllowedExtensions) != 1 || m.AllowedExtensions[0] != "bridge@example.org" {
		t.Fatalf("unexpected manifest: %+v", m)
	}

	if _, _, err := run("manifest", "uninstall", "--browser", "firefox"); err != nil {
		t.Fatalf("uninstall: %v", err)
	}
	if ok, _ := afero.Exists(mem, path); ok {
		t.Fatalf("manifest still present after uninstall")
	}
}

func TestManifestUnknownBrowser(t *testing.T) {
	useFs(t, nil)
	asked := stubHelp(t)
	out, _, err := run("manifest", "install", "--browser", "netscape", "--extension-id", "x")
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !strings.Contains(out, `unsupported browser "netscape"`) {
		t.Fatalf("output = %q", out)
	}
	if len(*asked) != 1 || (*asked)[0] != "install" {
		t.Fatalf("expected help for install, got %v", *asked)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := run("version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	want := "cookiebridge test-unit (" + runtime.GOOS + "_" + runtime.GOARCH + ")\nBuild: today=abc123\n"
	if !strings.HasPrefix(out, want) {
		t.Fatalf("output = %q, want prefix %q", out, want)
	}
}

func TestTemplatesDefined(t *testing.T) {
	if len(HELP_TEMPL) == 0 || len(CMD_HELP_TEMPL) == 0 {
		t.Fatalf("expected help templates to be set")
	}
}
