package bot

import (
	"testing"

	"leveler/events"
	"leveler/models"
	"leveler/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grant(userID, level int64, leveledUp bool) service.GrantResult {
	return service.GrantResult{
		UserID:    userID,
		GuildID:   100,
		Progress:  models.UserProgress{DiscordID: userID, GuildID: 100, Level: level},
		LeveledUp: leveledUp,
		Reason:    events.XPChangeReasonMessage,
	}
}

func TestPlanAnnouncements_Message(t *testing.T) {
	activity := models.MessageActivity{GuildID: 100, ChannelID: 300, AuthorID: 42}

	t.Run("no level up", func(t *testing.T) {
		assert.Empty(t, planAnnouncements(activity, []service.GrantResult{grant(42, 1, false)}, nil))
	})

	t.Run("message channel by default", func(t *testing.T) {
		planned := planAnnouncements(activity, []service.GrantResult{grant(42, 3, true)}, nil)
		require.Len(t, planned, 1)
		assert.Equal(t, int64(300), planned[0].channelID)
		require.NotNil(t, planned[0].embed)
		assert.Equal(t, "Level Up!", planned[0].embed.Title)
		assert.Equal(t, "<@42> just reached **Level 3** 🎉", planned[0].embed.Description)
	})

	t.Run("bound level-up channel", func(t *testing.T) {
		channel := int64(999)
		settings := &models.GuildSettings{GuildID: 100, LevelUpChannelID: &channel}

		planned := planAnnouncements(activity, []service.GrantResult{grant(42, 3, true)}, settings)
		require.Len(t, planned, 1)
		assert.Equal(t, int64(999), planned[0].channelID)
	})
}

func TestPlanAnnouncements_Reaction(t *testing.T) {
	activity := models.ReactionActivity{GuildID: 100, ChannelID: 300, ReactorID: 7, AuthorID: 42}
	channel := int64(999)
	settings := &models.GuildSettings{GuildID: 100, LevelUpChannelID: &channel}

	planned := planAnnouncements(activity, []service.GrantResult{
		grant(7, 2, true),
		grant(42, 5, true),
	}, settings)

	require.Len(t, planned, 1, "the reacted author levels up silently")
	assert.Equal(t, int64(300), planned[0].channelID, "reaction notes stay in the reaction channel")
	assert.Equal(t, "⭐ <@7> leveled up to **Level 2** via reactions!", planned[0].content)
	assert.Nil(t, planned[0].embed)
}

func TestWelcomeEmbed(t *testing.T) {
	embed := welcomeEmbed()
	assert.Contains(t, embed.Description, "/rank")
	assert.Contains(t, embed.Description, "/setrewardrole")
}
