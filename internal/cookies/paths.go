package cookies

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// browserSpec describes where a browser keeps its cookie store.
type browserSpec struct {
	// Name is the human-readable browser name.
	Name string
	// CookiePaths are direct cookie file candidates (Chromium family).
	CookiePaths []string
	// ProfilesIniPath locates a Firefox-style profiles.ini.
	ProfilesIniPath string
}

// AutoDetect finds the first usable browser cookie store on this
// machine and returns its path and browser name. Firefox is preferred
// because its values are never encrypted.
func AutoDetect() (path, browser string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	for _, spec := range browserSpecs(home) {
		if spec.ProfilesIniPath != "" {
			profile := defaultProfileDir(spec.ProfilesIniPath)
			if profile == "" {
				continue
			}
			candidate := filepath.Join(profile, "cookies.sqlite")
			if fileExists(candidate) {
				return candidate, spec.Name, nil
			}
			continue
		}
		for _, candidate := range spec.CookiePaths {
			if fileExists(candidate) {
				return candidate, spec.Name, nil
			}
		}
	}
	return "", "", fmt.Errorf("no browser cookie store found")
}

func browserSpecs(home string) []browserSpec {
	switch runtime.GOOS {
	case "darwin":
		appSupport := filepath.Join(home, "Library", "Application Support")
		return []browserSpec{
			{Name: "Firefox", ProfilesIniPath: filepath.Join(appSupport, "Firefox", "profiles.ini")},
			{Name: "Chrome", CookiePaths: []string{
				filepath.Join(appSupport, "Google", "Chrome", "Default", "Network", "Cookies"),
				filepath.Join(appSupport, "Google", "Chrome", "Default", "Cookies"),
			}},
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		localAppData := os.Getenv("LOCALAPPDATA")
		return []browserSpec{
			{Name: "Firefox", ProfilesIniPath: filepath.Join(appData, "Mozilla", "Firefox", "profiles.ini")},
			{Name: "Chrome", CookiePaths: []string{
				filepath.Join(localAppData, "Google", "Chrome", "User Data", "Default", "Network", "Cookies"),
				filepath.Join(localAppData, "Google", "Chrome", "User Data", "Default", "Cookies"),
			}},
		}
	default:
		return []browserSpec{
			{Name: "Firefox", ProfilesIniPath: filepath.Join(home, ".mozilla", "firefox", "profiles.ini")},
			{Name: "Firefox", ProfilesIniPath: filepath.Join(home, "snap", "firefox", "common", ".mozilla", "firefox", "profiles.ini")},
			{Name: "Chrome", CookiePaths: []string{
				filepath.Join(home, ".config", "google-chrome", "Default", "Network", "Cookies"),
				filepath.Join(home, ".config", "google-chrome", "Default", "Cookies"),
			}},
			{Name: "Chromium", CookiePaths: []string{
				filepath.Join(home, ".config", "chromium", "Default", "Network", "Cookies"),
				filepath.Join(home, ".config", "chromium", "Default", "Cookies"),
			}},
		}
	}
}

// defaultProfileDir parses a profiles.ini and returns the default
// profile directory. Modern Firefox records it in an [Install*]
// section; older layouts mark a [Profile*] section with Default=1.
// Returns "" when no default can be identified.
func defaultProfileDir(iniPath string) string {
	f, err := os.Open(iniPath)
	if err != nil {
		return ""
	}
	defer f.Close()

	iniDir := filepath.Dir(iniPath)
	var installDefault, profileDefault string
	var inInstall, inProfile, isDefault bool
	var currentPath string

	flush := func() {
		if inProfile && isDefault && profileDefault == "" {
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
			section := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			inInstall = strings.HasPrefix(section, "Install")
			inProfile = strings.HasPrefix(section, "Profile")
			currentPath = ""
			isDefault = false
			continue
		}
		key, val, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if inInstall && key == "Default" && installDefault == "" {
			installDefault = filepath.Join(iniDir, filepath.FromSlash(val))
		}
		if inProfile {
			if key == "Path" {
				currentPath = filepath.Join(iniDir, filepath.FromSlash(val))
			}
			if key == "Default" && val == "1" {
				isDefault = true
			}
		}
	}
	flush()

	if installDefault != "" {
		return installDefault
	}
	return profileDefault
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
