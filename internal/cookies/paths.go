package cookies

import (
	"bufio"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// browserSpec describes where a browser keeps its cookie database.
type browserSpec struct {
	Name string
	// CookiePaths are direct cookie file candidates for Chromium-family
	// browsers. The first that exists is used.
	CookiePaths []string
	// ProfilesIniPaths are Firefox-style profiles.ini candidates.
	ProfilesIniPaths []string
}

// browserDirs holds the per-platform data directory of a browser, relative
// to the base directory of that platform.
type browserDirs struct {
	name    string
	firefox bool
	linux   []string
	darwin  []string
	windows []string
}

// knownBrowsers is in detection priority order.
var knownBrowsers = []browserDirs{
	{
		name:    "Firefox",
		firefox: true,
		linux:   []string{".mozilla/firefox", "snap/firefox/common/.mozilla/firefox"},
		darwin:  []string{"Firefox"},
		windows: []string{"Mozilla/Firefox"},
	},
	{
		name:    "LibreWolf",
		firefox: true,
		linux:   []string{".librewolf"},
		darwin:  []string{"librewolf"},
		windows: []string{"LibreWolf"},
	},
	{
		name:    "Chrome",
		linux:   []string{".config/google-chrome"},
		darwin:  []string{"Google/Chrome"},
		windows: []string{"Google/Chrome/User Data"},
	},
	{
		name:    "Chromium",
		linux:   []string{".config/chromium"},
		darwin:  []string{"Chromium"},
		windows: []string{"Chromium/User Data"},
	},
	{
		name:    "Edge",
		linux:   []string{".config/microsoft-edge"},
		darwin:  []string{"Microsoft Edge"},
		windows: []string{"Microsoft/Edge/User Data"},
	},
	{
		name:    "Brave",
		linux:   []string{".config/BraveSoftware/Brave-Browser"},
		darwin:  []string{"BraveSoftware/Brave-Browser"},
		windows: []string{"BraveSoftware/Brave-Browser/User Data"},
	},
}

// platformDirs locates the browser data directories of one user.
type platformDirs struct {
	GOOS string
	Home string
	// LocalAppData and AppData are only read on windows.
	LocalAppData string
	AppData      string
}

// browserSpecs resolves knownBrowsers for the platform.
func browserSpecs(p platformDirs) []browserSpec {
	var specs []browserSpec
	for _, b := range knownBrowsers {
		var base string
		var rel []string
		switch p.GOOS {
		case "windows":
			// Firefox profiles roam, Chromium data is local
			base, rel = p.LocalAppData, b.windows
			if b.firefox {
				base = p.AppData
			}
		case "darwin":
			base, rel = filepath.Join(p.Home, "Library", "Application Support"), b.darwin
		default:
			base, rel = p.Home, b.linux
		}
		spec := browserSpec{Name: b.name}
		for _, r := range rel {
			dir := filepath.Join(base, filepath.FromSlash(r))
			if b.firefox {
				spec.ProfilesIniPaths = append(spec.ProfilesIniPaths, filepath.Join(dir, "profiles.ini"))
				continue
			}
			spec.CookiePaths = append(spec.CookiePaths,
				filepath.Join(dir, "Default", "Network", "Cookies"),
				filepath.Join(dir, "Default", "Cookies"),
			)
		}
		specs = append(specs, spec)
	}
	return specs
}

// parseProfilesIni parses a Firefox-style profiles.ini file and returns the
// absolute path to the default profile directory.
//
// Priority:
//  1. [Install*] section Default= key, used by modern Firefox
//  2. [Profile*] section with Default=1, for older profiles
//
// An unreadable file or one without a default profile yields "".
func parseProfilesIni(fs afero.Fs, iniPath string) string {
	f, err := fs.Open(iniPath)
	if err != nil {
		return ""
	}
	defer f.Close()

	iniDir := filepath.Dir(iniPath)
	var (
		installDefault, profileDefault string
		section                        string
		currentPath                    string
		currentIsDefault               bool
	)
	flush := func() {
		if strings.HasPrefix(section, "Profile") && currentIsDefault && profileDefault == "" {
			profileDefault = currentPath
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			flush()
			section = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			currentPath, currentIsDefault = "", false
			continue
		}
		k, v, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key, val := strings.TrimSpace(k), strings.TrimSpace(v)
		switch {
		case strings.HasPrefix(section, "Install") && key == "Default" && installDefault == "":
			installDefault = filepath.Join(iniDir, filepath.FromSlash(val))
		case strings.HasPrefix(section, "Profile") && key == "Path":
			currentPath = filepath.Join(iniDir, filepath.FromSlash(val))
		case strings.HasPrefix(section, "Profile") && key == "Default" && val == "1":
			currentIsDefault = true
		}
	}
	flush()

	if installDefault != "" {
		return installDefault
	}
	return profileDefault
}

// candidates lists the cookie store paths of spec that exist on fs.
func (s browserSpec) candidates(fs afero.Fs) []string {
	var out []string
	for _, ini := range s.ProfilesIniPaths {
		if dir := parseProfilesIni(fs, ini); dir != "" {
			out = append(out, filepath.Join(dir, "cookies.sqlite"))
		}
	}
	out = append(out, s.CookiePaths...)
	var existing []string
	for _, p := range out {
		if ok, _ := afero.Exists(fs, p); ok {
			existing = append(existing, p)
		}
	}
	return existing
}
