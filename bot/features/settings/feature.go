package settings

import (
	"leveler/bot/common"
	"leveler/service"

	"github.com/bwmarrin/discordgo"
)

// Feature handles guild settings management
type Feature struct {
	guildSettingsService service.GuildSettingsService
}

// NewFeature creates a new settings feature instance
func NewFeature(guildSettingsService service.GuildSettingsService) *Feature {
	return &Feature{
		guildSettingsService: guildSettingsService,
	}
}

// HandleCommand routes settings commands to appropriate handlers
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !common.IsUserAdmin(s, i) {
		common.HandleError(s, i, common.ErrNotAdmin, false)
		return
	}

	switch i.ApplicationCommandData().Name {
	case "setrewardrole":
		f.handleSetRewardRole(s, i)
	case "setlevelchannel":
		f.handleSetLevelChannel(s, i)
	}
}
