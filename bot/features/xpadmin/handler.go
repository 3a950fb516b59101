package xpadmin

import (
	"fmt"

	"leveler/bot/common"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// target holds the parsed guild and member of an admin command
type target struct {
	guildID  int64
	memberID int64
}

func parseTarget(s *discordgo.Session, i *discordgo.InteractionCreate) (target, error) {
	guildID, err := common.ParseDiscordID(i.GuildID)
	if err != nil {
		return target{}, common.NewSystemError(err, "failed to parse guild id")
	}

	opt := common.FindOption(i.ApplicationCommandData().Options, "member")
	if opt == nil {
		return target{}, common.NewUserError("Please choose a member.", "xp admin command without member")
	}
	user := opt.UserValue(s)
	if user == nil {
		return target{}, common.NewUserError("Could not find that member.", "xp admin command unresolved member")
	}
	if user.Bot {
		return target{}, common.NewUserError("Bots don't earn XP.", "xp admin command targeting bot")
	}

	memberID, err := common.ParseDiscordID(user.ID)
	if err != nil {
		return target{}, common.NewSystemError(err, "failed to parse member id")
	}

	return target{guildID: guildID, memberID: memberID}, nil
}

func amountOption(i *discordgo.InteractionCreate) (int64, error) {
	amount, ok := common.IntegerOption(i.ApplicationCommandData().Options, "amount")
	if !ok {
		return 0, common.NewUserError("Please provide an amount.", "xp admin command without amount")
	}
	if amount < 0 {
		return 0, common.NewUserError("Amount must not be negative.", "xp admin command negative amount")
	}
	return amount, nil
}

func (f *Feature) handleAddXP(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := common.CommandContext()
	defer cancel()

	t, err := parseTarget(s, i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}
	amount, err := amountOption(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	result, err := f.levelingService.AddXP(ctx, t.guildID, t.memberID, amount)
	if err != nil {
		common.HandleError(s, i, common.FromServiceError(err, "failed to add xp"), false)
		return
	}

	log.WithFields(log.Fields{
		"guildID":  t.guildID,
		"memberID": t.memberID,
		"amount":   amount,
		"level":    result.Progress.Level,
		"by":       common.InvokerID(i),
	}).Info("Admin added XP")

	message := fmt.Sprintf("Added %s XP to %s. New level: %d",
		common.FormatNumber(amount), common.GetUserMention(t.memberID), result.Progress.Level)
	if err := common.RespondWithSuccess(s, i, message, false); err != nil {
		log.Errorf("Error responding to addxp command: %v", err)
	}
}

func (f *Feature) handleRemoveXP(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := common.CommandContext()
	defer cancel()

	t, err := parseTarget(s, i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}
	amount, err := amountOption(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	progress, err := f.levelingService.RemoveXP(ctx, t.guildID, t.memberID, amount)
	if err != nil {
		common.HandleError(s, i, common.FromServiceError(err, "failed to remove xp"), false)
		return
	}

	log.WithFields(log.Fields{
		"guildID":  t.guildID,
		"memberID": t.memberID,
		"amount":   amount,
		"xp":       progress.XP,
		"by":       common.InvokerID(i),
	}).Info("Admin removed XP")

	message := fmt.Sprintf("Removed %s XP from %s. Now at %s XP (Level %d).",
		common.FormatNumber(amount), common.GetUserMention(t.memberID), common.FormatNumber(progress.XP), progress.Level)
	if err := common.RespondWithSuccess(s, i, message, false); err != nil {
		log.Errorf("Error responding to removexp command: %v", err)
	}
}

func (f *Feature) handleResetXP(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := common.CommandContext()
	defer cancel()

	t, err := parseTarget(s, i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	existed, err := f.levelingService.ResetXP(ctx, t.guildID, t.memberID)
	if err != nil {
		common.HandleError(s, i, common.FromServiceError(err, "failed to reset xp"), false)
		return
	}

	log.WithFields(log.Fields{
		"guildID":  t.guildID,
		"memberID": t.memberID,
		"existed":  existed,
		"by":       common.InvokerID(i),
	}).Info("Admin reset XP")

	message := fmt.Sprintf("Reset XP for %s.", common.GetUserMention(t.memberID))
	if !existed {
		message = fmt.Sprintf("%s had no XP to reset.", common.GetUserMention(t.memberID))
	}
	if err := common.RespondWithSuccess(s, i, message, false); err != nil {
		log.Errorf("Error responding to resetxp command: %v", err)
	}
}
