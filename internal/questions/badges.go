package questions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"quiz-rush-service/internal/domain"
)

// BadgePrompt is shown with every badge image.
const BadgePrompt = "Which club does this badge belong to?"

var teamSuffixes = []string{" FC", " AFC", " United", " City", " Town", " Athletic", " Atletico"}

var spaces = regexp.MustCompile(`\s+`)

// badgeDatabase mirrors the badge-list.json produced by the logo scanner.
type badgeDatabase struct {
	Metadata struct {
		TotalBadges int    `json:"total_badges"`
		Description string `json:"description"`
	} `json:"metadata"`
	Badges []struct {
		Team     string `json:"team"`
		BadgeURL string `json:"badgeUrl"`
		League   string `json:"league"`
		Filename string `json:"filename"`
		Tier     string `json:"tier,omitempty"`
	} `json:"badges"`
}

// CleanTeamName turns a badge file name into a display team name.
func CleanTeamName(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	for _, suffix := range teamSuffixes {
		name = strings.TrimSuffix(name, suffix)
	}
	return strings.TrimSpace(spaces.ReplaceAllString(name, " "))
}

// LoadBadgeFile reads a badge-list.json file into a badges catalog.
func LoadBadgeFile(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, err
	}
	return ParseBadgeDatabase(data)
}

// ParseBadgeDatabase decodes badge-list.json content.
func ParseBadgeDatabase(data []byte) (domain.Catalog, error) {
	var db badgeDatabase
	if err := json.Unmarshal(data, &db); err != nil {
		return domain.Catalog{}, fmt.Errorf("decode badge database: %w", err)
	}

	catalog := domain.Catalog{GameType: domain.GameBadges}
	for _, badge := range db.Badges {
		team := strings.TrimSpace(badge.Team)
		if team == "" && badge.Filename != "" {
			team = CleanTeamName(badge.Filename)
		}
		if team == "" || badge.BadgeURL == "" {
			continue
		}
		catalog.Items = append(catalog.Items, domain.CatalogItem{
			Prompt: BadgePrompt,
			Image:  badge.BadgeURL,
			Answer: team,
			Tier:   domain.ParseDifficulty(badge.Tier),
		})
	}
	return catalog, nil
}
