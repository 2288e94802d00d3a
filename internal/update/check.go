// Package update checks the release feed for newer trackhub builds.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

const defaultReleasesURL = "https://api.github.com/repos/trackhub/trackhub/releases/latest"

// Info describes the outcome of an update check.
type Info struct {
	CurrentVersion  string
	LatestVersion   string
	ReleaseURL      string
	UpdateAvailable bool
}

// Checker asks the release feed whether a newer build exists.
type Checker struct {
	httpClient  *http.Client
	releasesURL string
}

// NewChecker creates a release checker. An empty URL selects the project's
// GitHub releases feed.
func NewChecker(releasesURL string) *Checker {
	if releasesURL == "" {
		releasesURL = defaultReleasesURL
	}
	return &Checker{
		releasesURL: releasesURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Check compares the running version against the latest published release.
// Development builds (anything that is not valid semver) never report an
// update; the latest release is still filled in for display.
func (c *Checker) Check(ctx context.Context, current string) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.releasesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach release feed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release feed returned %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release feed: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	latestVersion, err := semver.NewVersion(latest)
	if err != nil {
		return nil, fmt.Errorf("release feed returned unparseable version %q: %w", release.TagName, err)
	}

	info := &Info{
		CurrentVersion: current,
		LatestVersion:  latest,
		ReleaseURL:     release.HTMLURL,
	}

	currentVersion, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return info, nil
	}

	info.UpdateAvailable = latestVersion.GreaterThan(currentVersion)
	return info, nil
}

// InstallMethod identifies how the running binary was installed.
type InstallMethod string

const (
	InstallMethodBrew    InstallMethod = "brew"
	InstallMethodGo      InstallMethod = "go"
	InstallMethodUnknown InstallMethod = "unknown"
)

type installRule struct {
	check  func(path string) bool
	method InstallMethod
}

func installMethodRules() []installRule {
	return []installRule{
		{check: pathMatchesHomebrew, method: InstallMethodBrew},
		{check: pathMatchesGoInstall, method: InstallMethodGo},
	}
}

func pathMatchesHomebrew(path string) bool {
	return strings.Contains(path, "/homebrew/") ||
		strings.Contains(path, "/Cellar/") ||
		strings.Contains(path, "/.linuxbrew/")
}

func pathMatchesGoInstall(path string) bool {
	if gobin := os.Getenv("GOBIN"); gobin != "" && strings.HasPrefix(path, gobin) {
		return true
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" && strings.HasPrefix(path, filepath.Join(gopath, "bin")) {
		return true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	return strings.HasPrefix(path, filepath.Join(home, "go", "bin"))
}

// DetectInstallMethod inspects the running executable's path.
func DetectInstallMethod() InstallMethod {
	exe, err := os.Executable()
	if err != nil {
		return InstallMethodUnknown
	}
	return detectInstallMethod(exe)
}

func detectInstallMethod(path string) InstallMethod {
	for _, r := range installMethodRules() {
		if r.check(path) {
			return r.method
		}
	}
	return InstallMethodUnknown
}

// SuggestUpgradeCommand returns the upgrade command matching the user's
// install method.
func SuggestUpgradeCommand(method InstallMethod, releaseURL string) string {
	switch method {
	case InstallMethodBrew:
		return "brew upgrade trackhub"
	case InstallMethodGo:
		return "go install github.com/trackhub/trackhub/cmd/trackhub@latest"
	default:
		if releaseURL != "" {
			return "download the latest release from " + releaseURL
		}
		return "go install github.com/trackhub/trackhub/cmd/trackhub@latest"
	}
}
