package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultUserProfile stands in when no profile text is configured.
const DefaultUserProfile = "ユーザーは目標達成に向けて努力している人物です。"

// Profile is the configuration to start the diary bot. It is constructed
// once per process and passed by parameter into every component; nothing
// reads configuration globals after startup.
type Profile struct {
	// Mode can be "prod" or "dev".
	Mode string
	// Addr is the binding address for the webhook server.
	Addr string
	// Port is the binding port for the webhook server.
	Port int
	// Data is the data directory for local state.
	Data string
	// Driver is the state store driver ("sqlite" or "redis").
	Driver string
	// RedisAddr and RedisPassword configure the redis driver.
	RedisAddr     string
	RedisPassword string
	// Version is the current version of the bot.
	Version string

	// Timezone is the calendar timezone for day keys and schedules.
	Timezone string

	// LINE Messaging API credentials.
	LineToken  string
	LineUserID string

	// Notion document database credentials.
	NotionToken string
	NotionDBID  string

	// AI layer configuration. BaseURL points at an OpenAI-compatible
	// endpoint; ModelCandidates is the ordered fallback list.
	AIAPIKey        string
	AIBaseURL       string
	ModelCandidates []string

	// Drive folder for uploaded photos.
	DriveFolderID string
	DriveToken    string

	// UserProfile is free text handed to the review prompts. Optional;
	// DefaultUserProfile applies when empty.
	UserProfile string
}

// DefaultModelCandidates is the ordered model fallback list, newest first.
var DefaultModelCandidates = []string{"gemini-3-flash", "gemini-2.5-flash", "gemini-2.5-flash-lite"}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Location resolves the configured timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	if p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// DSN is the SQLite state database path under the data directory.
func (p *Profile) DSN() string {
	return filepath.Join(p.Data, "diary_state.db")
}

// UserProfileOrDefault returns the configured profile text or the default
// placeholder.
func (p *Profile) UserProfileOrDefault() string {
	if strings.TrimSpace(p.UserProfile) == "" {
		return DefaultUserProfile
	}
	return p.UserProfile
}

// Validate checks required credentials and normalizes the data directory.
// The webhook transport cannot function without these; the core components
// receive them by parameter and never re-validate.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}
	if p.LineToken == "" {
		return errors.New("LINE_TOKEN is required")
	}
	if p.NotionToken == "" {
		return errors.New("NOTION_TOKEN is required")
	}
	if p.NotionDBID == "" {
		return errors.New("NOTION_DB_ID is required")
	}
	if p.AIAPIKey == "" {
		return errors.New("AI_API_KEY is required")
	}
	if len(p.ModelCandidates) == 0 {
		p.ModelCandidates = DefaultModelCandidates
	}
	if p.Timezone == "" {
		p.Timezone = "Asia/Tokyo"
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return errors.Wrapf(err, "invalid timezone %q", p.Timezone)
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrapf(err, "invalid data directory %q", p.Data)
	}
	p.Data = dataDir
	return nil
}

func checkDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", fmt.Errorf("unable to access data folder %s: %w", dataDir, err)
	}
	return dataDir, nil
}
