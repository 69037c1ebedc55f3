package cookies

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
	"github.com/warpdl/cookiebridge/pkg/logger"
)

// ErrNoBrowserStore is returned by DetectBrowserCookies when no known
// browser has a readable cookie store.
var ErrNoBrowserStore = errors.New("no supported browser cookie store found (tried Firefox, LibreWolf, Chrome, Chromium, Edge, Brave)")

// Importer reads cookie stores from a filesystem.
type Importer struct {
	fs   afero.Fs
	l    logger.Logger
	dirs platformDirs
}

// NewImporter returns an Importer over fs, defaulting to the OS filesystem
// and the current user's browser directories.
func NewImporter(fs afero.Fs, l logger.Logger) *Importer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	home, _ := os.UserHomeDir()
	return &Importer{
		fs: fs,
		l:  logger.WithPrefix(l, "cookies"),
		dirs: platformDirs{
			GOOS:         runtime.GOOS,
			Home:         home,
			LocalAppData: os.Getenv("LOCALAPPDATA"),
			AppData:      os.Getenv("APPDATA"),
		},
	}
}

// ImportCookies imports cookies for domain from the cookie store at
// sourcePath. SQLite stores are copied before reading.
func (im *Importer) ImportCookies(sourcePath string, domain string) ([]Cookie, *Source, error) {
	format, err := DetectFormat(im.fs, sourcePath)
	if err != nil {
		return nil, nil, err
	}
	source := &Source{
		Path:    sourcePath,
		Format:  format,
		Browser: format.String(),
	}

	var cookies []Cookie
	switch format {
	case FormatFirefox:
		cookies, err = im.importSQLite(sourcePath, domain, ParseFirefox)
	case FormatChrome:
		cookies, err = im.importSQLite(sourcePath, domain, ParseChrome)
	case FormatNetscape:
		cookies, err = im.importNetscape(sourcePath, domain)
	default:
		return nil, nil, fmt.Errorf("error: unsupported cookie database schema at %s", sourcePath)
	}
	if err != nil {
		return nil, nil, err
	}
	im.l.Debug("read %d cookies for %s from %s store %s", len(cookies), domain, source.Browser, sourcePath)
	return cookies, source, nil
}

func (im *Importer) importSQLite(sourcePath, domain string, parser func(string, string) ([]Cookie, error)) ([]Cookie, error) {
	tempDir, cleanup, err := SafeCopy(im.fs, sourcePath)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return parser(filepath.Join(tempDir, filepath.Base(sourcePath)), domain)
}

func (im *Importer) importNetscape(sourcePath, domain string) ([]Cookie, error) {
	f, err := im.fs.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("error: cannot open Netscape cookie file: %w", err)
	}
	defer f.Close()
	return ParseNetscape(f, domain, im.l)
}

// DetectBrowserCookies scans known browser cookie stores in priority order
// (Firefox, LibreWolf, Chrome, Chromium, Edge, Brave) and returns cookies
// for domain from the first store that can be read.
func (im *Importer) DetectBrowserCookies(domain string) ([]Cookie, *Source, error) {
	for _, spec := range browserSpecs(im.dirs) {
		for _, path := range spec.candidates(im.fs) {
			cookies, source, err := im.ImportCookies(path, domain)
			if err != nil {
				im.l.Debug("skipping %s store %s: %v", spec.Name, path, err)
				continue
			}
			source.Browser = spec.Name
			return cookies, source, nil
		}
	}
	return nil, nil, ErrNoBrowserStore
}
