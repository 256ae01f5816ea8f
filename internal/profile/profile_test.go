package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile(t *testing.T) *Profile {
	return &Profile{
		Mode:        "prod",
		Data:        t.TempDir(),
		LineToken:   "line-token",
		NotionToken: "notion-token",
		NotionDBID:  "db-id",
		AIAPIKey:    "ai-key",
	}
}

func TestValidate(t *testing.T) {
	p := validProfile(t)
	require.NoError(t, p.Validate())

	assert.Equal(t, "Asia/Tokyo", p.Timezone)
	assert.Equal(t, DefaultModelCandidates, p.ModelCandidates)
}

func TestValidate_RequiredCredentials(t *testing.T) {
	for name, mutate := range map[string]func(*Profile){
		"LINE_TOKEN":   func(p *Profile) { p.LineToken = "" },
		"NOTION_TOKEN": func(p *Profile) { p.NotionToken = "" },
		"NOTION_DB_ID": func(p *Profile) { p.NotionDBID = "" },
		"AI_API_KEY":   func(p *Profile) { p.AIAPIKey = "" },
	} {
		t.Run(name, func(t *testing.T) {
			p := validProfile(t)
			mutate(p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestValidate_UnknownModeBecomesDev(t *testing.T) {
	p := validProfile(t)
	p.Mode = "staging"
	require.NoError(t, p.Validate())
	assert.Equal(t, "dev", p.Mode)
	assert.True(t, p.IsDev())
}

func TestValidate_BadTimezone(t *testing.T) {
	p := validProfile(t)
	p.Timezone = "Mars/Olympus"
	assert.Error(t, p.Validate())
}

func TestValidate_MissingDataDir(t *testing.T) {
	p := validProfile(t)
	p.Data = "/no/such/dir"
	assert.Error(t, p.Validate())
}

func TestLocation(t *testing.T) {
	p := &Profile{Timezone: "Asia/Tokyo"}
	assert.Equal(t, "Asia/Tokyo", p.Location().String())

	assert.Equal(t, "UTC", (&Profile{}).Location().String())
	assert.Equal(t, "UTC", (&Profile{Timezone: "bogus"}).Location().String())
}

func TestUserProfileOrDefault(t *testing.T) {
	assert.Equal(t, DefaultUserProfile, (&Profile{}).UserProfileOrDefault())
	assert.Equal(t, DefaultUserProfile, (&Profile{UserProfile: "  "}).UserProfileOrDefault())
	assert.Equal(t, "研究者です。", (&Profile{UserProfile: "研究者です。"}).UserProfileOrDefault())
}

func TestDSN(t *testing.T) {
	p := &Profile{Data: "/var/opt/diary"}
	assert.Equal(t, "/var/opt/diary/diary_state.db", p.DSN())
}
