package rank

import (
	"leveler/service"

	"github.com/bwmarrin/discordgo"
)

// Feature serves the read-only progress commands
type Feature struct {
	levelingService service.LevelingService
}

// New creates a rank feature instance
func New(levelingService service.LevelingService) *Feature {
	return &Feature{
		levelingService: levelingService,
	}
}

// HandleCommand routes /rank and /leaderboard
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.ApplicationCommandData().Name {
	case "rank":
		f.handleRank(s, i)
	case "leaderboard":
		f.handleLeaderboard(s, i)
	}
}
