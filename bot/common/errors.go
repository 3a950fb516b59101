package common

import (
	"errors"
	"fmt"

	"leveler/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// BotError represents a structured error with user-facing and internal messages
type BotError struct {
	UserMessage string      // Message shown to Discord user
	LogMessage  string      // Internal message for logging
	Ephemeral   bool        // Whether the error message should be ephemeral
	Err         error       // Underlying error
	Context     interface{} // Additional context for logging
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.LogMessage, e.Err)
	}
	return e.LogMessage
}

// Unwrap returns the underlying error
func (e *BotError) Unwrap() error {
	return e.Err
}

// NewUserError creates an error for user-caused issues (validation, permissions)
func NewUserError(userMessage string, logMessage string) *BotError {
	return &BotError{
		UserMessage: userMessage,
		LogMessage:  logMessage,
		Ephemeral:   true,
	}
}

// NewSystemError creates an error for system issues (database, unexpected state, etc)
func NewSystemError(err error, logMessage string) *BotError {
	return &BotError{
		UserMessage: "Something went wrong. Please try again later.",
		LogMessage:  logMessage,
		Ephemeral:   true,
		Err:         err,
	}
}

// ErrNotAdmin is shown when a non-admin runs an admin command
var ErrNotAdmin = NewUserError("You need Administrator permission to use this.", "admin command rejected")

// FromServiceError turns a service error into a BotError, keeping user mistakes user-facing
func FromServiceError(err error, logMessage string) *BotError {
	var botErr *BotError
	switch {
	case errors.As(err, &botErr):
		return botErr
	case errors.Is(err, service.ErrNegativeAmount):
		return NewUserError("Amount must not be negative.", logMessage)
	case errors.Is(err, service.ErrAmountTooLarge), errors.Is(err, service.ErrXPOverflow):
		return NewUserError(fmt.Sprintf("Amount must be at most %s.", FormatNumber(service.MaxXPAdjustment)), logMessage)
	case errors.Is(err, service.ErrSerializerClosed):
		return &BotError{
			UserMessage: "The bot is shutting down. Please try again in a moment.",
			LogMessage:  logMessage,
			Ephemeral:   true,
			Err:         err,
		}
	default:
		return NewSystemError(err, logMessage)
	}
}

// RespondWithError sends an error message as an interaction response
func RespondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("❌ %s", message),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Errorf("Error sending error response: %v", err)
	}
}

// FollowUpWithError sends an error message as a follow-up to a deferred interaction
func FollowUpWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	_, err := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Content: fmt.Sprintf("❌ %s", message),
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.Errorf("Error sending follow-up error message: %v", err)
	}
}

// HandleError processes a BotError and responds appropriately
func HandleError(s *discordgo.Session, i *discordgo.InteractionCreate, err error, deferred bool) {
	fields := log.Fields{
		"command": i.ApplicationCommandData().Name,
		"guildID": i.GuildID,
	}
	if i.Member != nil && i.Member.User != nil {
		fields["userID"] = i.Member.User.ID
	}

	userMessage := "Something went wrong. Please try again later."
	var botErr *BotError
	if errors.As(err, &botErr) {
		fields["error"] = botErr.Error()
		fields["userMessage"] = botErr.UserMessage
		if botErr.Context != nil {
			fields["context"] = botErr.Context
		}
		if botErr.Err != nil {
			log.WithFields(fields).Error(botErr.LogMessage)
		} else {
			log.WithFields(fields).Info(botErr.LogMessage)
		}
		userMessage = botErr.UserMessage
	} else {
		fields["error"] = err.Error()
		log.WithFields(fields).Error("Unexpected error in bot command")
	}

	if deferred {
		FollowUpWithError(s, i, userMessage)
	} else {
		RespondWithError(s, i, userMessage)
	}
}
