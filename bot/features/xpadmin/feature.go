package xpadmin

import (
	"leveler/bot/common"
	"leveler/service"

	"github.com/bwmarrin/discordgo"
)

// Feature serves the admin XP management commands
type Feature struct {
	levelingService service.LevelingService
}

func New(levelingService service.LevelingService) *Feature {
	return &Feature{
		levelingService: levelingService,
	}
}

func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !common.IsUserAdmin(s, i) {
		common.HandleError(s, i, common.ErrNotAdmin, false)
		return
	}

	switch i.ApplicationCommandData().Name {
	case "addxp":
		f.handleAddXP(s, i)
	case "removexp":
		f.handleRemoveXP(s, i)
	case "resetxp":
		f.handleResetXP(s, i)
	}
}
