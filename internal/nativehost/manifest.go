package nativehost

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
)

// HostName is the native messaging host identifier. The extension passes it
// to runtime.connectNative.
const HostName = "io.cookiebridge.host"

// Browser represents a supported browser for native messaging.
type Browser string

const (
	BrowserChrome   Browser = "chrome"
	BrowserFirefox  Browser = "firefox"
	BrowserChromium Browser = "chromium"
	BrowserEdge     Browser = "edge"
	BrowserBrave    Browser = "brave"
)

// SupportedBrowsers returns all browsers that support native messaging.
func SupportedBrowsers() []Browser {
	return []Browser{BrowserChrome, BrowserFirefox, BrowserChromium, BrowserEdge, BrowserBrave}
}

// ParseBrowser returns the Browser named s.
func ParseBrowser(s string) (Browser, error) {
	for _, b := range SupportedBrowsers() {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("unsupported browser %q", s)
}

// ChromeManifest is the manifest format of Chrome-based browsers.
type ChromeManifest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Path           string   `json:"path"`
	Type           string   `json:"type"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// FirefoxManifest is the manifest format of Firefox.
type FirefoxManifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

const manifestDescription = "cookiebridge cookie gateway"

// GenerateManifest renders the manifest for browser allowing extensionID
// to talk to the host at hostPath.
func GenerateManifest(browser Browser, hostPath, extensionID string) ([]byte, error) {
	var m any
	if browser == BrowserFirefox {
		m = FirefoxManifest{
			Name:              HostName,
			Description:       manifestDescription,
			Path:              hostPath,
			Type:              "stdio",
			AllowedExtensions: []string{extensionID},
		}
	} else {
		m = ChromeManifest{
			Name:           HostName,
			Description:    manifestDescription,
			Path:           hostPath,
			Type:           "stdio",
			AllowedOrigins: []string{"chrome-extension://" + extensionID + "/"},
		}
	}
	return json.MarshalIndent(m, "", "  ")
}

// ManifestPath returns where browser looks for the manifest on platform.
func ManifestPath(browser Browser, platform, homeDir string) (string, error) {
	manifestFile := HostName + ".json"
	switch platform {
	case "darwin":
		appSupport := filepath.Join(homeDir, "Library", "Application Support")
		switch browser {
		case BrowserChrome:
			return filepath.Join(appSupport, "Google", "Chrome", "NativeMessagingHosts", manifestFile), nil
		case BrowserChromium:
			return filepath.Join(appSupport, "Chromium", "NativeMessagingHosts", manifestFile), nil
		case BrowserFirefox:
			return filepath.Join(appSupport, "Mozilla", "NativeMessagingHosts", manifestFile), nil
		case BrowserEdge:
			return filepath.Join(appSupport, "Microsoft Edge", "NativeMessagingHosts", manifestFile), nil
		case BrowserBrave:
			return filepath.Join(appSupport, "BraveSoftware", "Brave-Browser", "NativeMessagingHosts", manifestFile), nil
		}
	case "linux":
		switch browser {
		case BrowserChrome:
			return filepath.Join(homeDir, ".config", "google-chrome", "NativeMessagingHosts", manifestFile), nil
		case BrowserChromium:
			return filepath.Join(homeDir, ".config", "chromium", "NativeMessagingHosts", manifestFile), nil
		case BrowserFirefox:
			return filepath.Join(homeDir, ".mozilla", "native-messaging-hosts", manifestFile), nil
		case BrowserEdge:
			return filepath.Join(homeDir, ".config", "microsoft-edge", "NativeMessagingHosts", manifestFile), nil
		case BrowserBrave:
			return filepath.Join(homeDir, ".config", "BraveSoftware", "Brave-Browser", "NativeMessagingHosts", manifestFile), nil
		}
	case "windows":
		// the browser finds this file through a registry key pointing at it
		return filepath.Join(homeDir, "AppData", "Local", string(browser), "NativeMessagingHosts", manifestFile), nil
	}
	return "", fmt.Errorf("unsupported browser/platform: %s/%s", browser, platform)
}

// ManifestInstaller writes and removes native messaging manifests.
type ManifestInstaller struct {
	// Fs defaults to the OS filesystem.
	Fs       afero.Fs
	HostPath string
	// HomeDir and Platform default to the current user and runtime.GOOS.
	HomeDir  string
	Platform string
}

func (m *ManifestInstaller) resolve(browser Browser) (afero.Fs, string, error) {
	fs := m.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	home := m.HomeDir
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return nil, "", err
		}
	}
	platform := m.Platform
	if platform == "" {
		platform = runtime.GOOS
	}
	path, err := ManifestPath(browser, platform, home)
	return fs, path, err
}

// Install writes the manifest for browser and returns its path.
func (m *ManifestInstaller) Install(browser Browser, extensionID string) (string, error) {
	if m.HostPath == "" {
		return "", errors.New("host path is required")
	}
	if extensionID == "" {
		return "", errors.New("extension ID is required")
	}
	fs, path, err := m.resolve(browser)
	if err != nil {
		return "", err
	}
	manifest, err := GenerateManifest(browser, m.HostPath, extensionID)
	if err != nil {
		return "", err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, manifest, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// Uninstall removes the manifest for browser. A missing manifest is not an
// error.
func (m *ManifestInstaller) Uninstall(browser Browser) (string, error) {
	fs, path, err := m.resolve(browser)
	if err != nil {
		return "", err
	}
	if err := fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return path, nil
}
