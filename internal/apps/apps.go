// Package apps scores installed packages by how likely they are unused.
package apps

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/cleaner-toolbox/pkg/utils"
)

// AppInfo is a snapshot of one installed package
type AppInfo struct {
	Package     string     `yaml:"package" json:"package"`
	Name        string     `yaml:"name" json:"name"`
	Version     string     `yaml:"version" json:"version"`
	SizeBytes   int64      `yaml:"size_bytes" json:"size_bytes"`
	System      bool       `yaml:"system" json:"system"`
	InstalledAt time.Time  `yaml:"installed_at" json:"installed_at"`
	LastUsed    *time.Time `yaml:"last_used,omitempty" json:"last_used,omitempty"`
}

// Inventory is the package dump the toolbox reads
type Inventory struct {
	Packages []AppInfo `yaml:"packages"`
}

// LoadInventory reads a YAML package dump
func LoadInventory(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}

	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}

	for i, app := range inv.Packages {
		if app.Package == "" {
			return nil, fmt.Errorf("inventory entry %d has no package name", i)
		}
	}

	return &inv, nil
}

// Tier groups scores for display
type Tier string

const (
	TierSafe   Tier = "safe"
	TierMedium Tier = "medium"
	TierKeep   Tier = "keep"
)

// UnusedApp is an AppInfo with its removal score
type UnusedApp struct {
	AppInfo    `yaml:",inline"`
	Score      int    `yaml:"score" json:"score"`
	Tier       Tier   `yaml:"tier" json:"tier"`
	Reason     string `yaml:"reason" json:"reason"`
	SizeScore  int    `yaml:"-" json:"-"`
	UsageScore int    `yaml:"-" json:"-"`
	AgeScore   int    `yaml:"-" json:"-"`
}

// Score components:
//   - Size (40 points): >=500MB=40, >=100MB=30, >=20MB=20, >=5MB=10
//   - Usage (50 points, only with usage stats): never or >=90d=50, >=30d=35, >=14d=20, >=7d=10
//   - Age (10 points): installed >180d=10, >90d=5
//
// System apps are capped at 40 so they never leave the medium tier.
// Without usage stats the score tops out at 50, so no app is called safe.
func Score(app AppInfo, now time.Time, usageAvailable bool) UnusedApp {
	u := UnusedApp{AppInfo: app}

	u.SizeScore = sizeScore(app.SizeBytes)
	if usageAvailable {
		u.UsageScore = usageScore(app.LastUsed, now)
	}
	u.AgeScore = ageScore(app.InstalledAt, now)

	u.Score = u.SizeScore + u.UsageScore + u.AgeScore
	if app.System && u.Score > 40 {
		u.Score = 40
	}

	switch {
	case u.Score >= 70:
		u.Tier = TierSafe
	case u.Score >= 40:
		u.Tier = TierMedium
	default:
		u.Tier = TierKeep
	}

	u.Reason = reason(u, now, usageAvailable)
	return u
}

func sizeScore(size int64) int {
	switch {
	case size >= 500*utils.MB:
		return 40
	case size >= 100*utils.MB:
		return 30
	case size >= 20*utils.MB:
		return 20
	case size >= 5*utils.MB:
		return 10
	}
	return 0
}

func usageScore(lastUsed *time.Time, now time.Time) int {
	if lastUsed == nil {
		return 50
	}
	days := daysBetween(*lastUsed, now)
	switch {
	case days >= 90:
		return 50
	case days >= 30:
		return 35
	case days >= 14:
		return 20
	case days >= 7:
		return 10
	}
	return 0
}

func ageScore(installedAt, now time.Time) int {
	if installedAt.IsZero() {
		return 0
	}
	days := daysBetween(installedAt, now)
	switch {
	case days > 180:
		return 10
	case days > 90:
		return 5
	}
	return 0
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func reason(u UnusedApp, now time.Time, usageAvailable bool) string {
	var parts []string

	if usageAvailable {
		if u.LastUsed == nil {
			parts = append(parts, "never used")
		} else {
			parts = append(parts, fmt.Sprintf("last used %d days ago", daysBetween(*u.LastUsed, now)))
		}
	} else {
		parts = append(parts, "no usage data")
	}

	parts = append(parts, utils.FormatBytes(u.SizeBytes))

	if u.System {
		parts = append(parts, "system app")
	}

	return strings.Join(parts, ", ")
}

// Options controls Unused
type Options struct {
	Now            time.Time
	UsageAvailable bool
	IncludeSystem  bool
	MinScore       int
}

// Unused scores every app and returns those at or above MinScore, highest
// score first and larger apps first on ties
func Unused(apps []AppInfo, opts Options) []UnusedApp {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var out []UnusedApp
	for _, app := range apps {
		if app.System && !opts.IncludeSystem {
			continue
		}
		u := Score(app, now, opts.UsageAvailable)
		if u.Score < opts.MinScore {
			continue
		}
		out = append(out, u)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SizeBytes > out[j].SizeBytes
	})

	return out
}
