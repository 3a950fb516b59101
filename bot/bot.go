package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"leveler/bot/features/rank"
	"leveler/bot/features/settings"
	"leveler/bot/features/xpadmin"
	"leveler/models"
	"leveler/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token            string
	PresenceInterval time.Duration
	// ActivityTimeout bounds the XP work done for one message or reaction
	ActivityTimeout time.Duration
}

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildMembers

type Bot struct {
	config          Config
	session         *discordgo.Session
	gateway         *Gateway
	levelingService service.LevelingService
	settingsService service.GuildSettingsService

	rankFeature     *rank.Feature
	settingsFeature *settings.Feature
	xpAdminFeature  *xpadmin.Feature

	guildsMu    sync.Mutex
	ready       bool
	knownGuilds map[string]struct{}

	stopPresence func()
}

// New creates the session and registers handlers. The connection is not
// opened until Open is called.
func New(config Config, levelingService service.LevelingService, settingsService service.GuildSettingsService) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = intents
	// Reactions on recent messages resolve their author from the cache
	dg.State.MaxMessageCount = 200

	if config.ActivityTimeout <= 0 {
		config.ActivityTimeout = 10 * time.Second
	}

	bot := &Bot{
		config:          config,
		session:         dg,
		gateway:         NewGateway(dg),
		levelingService: levelingService,
		settingsService: settingsService,
		rankFeature:     rank.New(levelingService),
		settingsFeature: settings.NewFeature(settingsService),
		xpAdminFeature:  xpadmin.New(levelingService),
		knownGuilds:     make(map[string]struct{}),
	}

	dg.AddHandler(bot.handleCommands)
	dg.AddHandler(bot.handleReady)
	dg.AddHandler(bot.handleGuildCreate)
	dg.AddHandler(bot.handleMessageCreate)
	dg.AddHandler(bot.handleReactionAdd)

	return bot, nil
}

// Gateway exposes the platform adapter used by the top-rank tracker
func (b *Bot) Gateway() *Gateway {
	return b.gateway
}

// Open connects to Discord, registers slash commands and starts the presence rotation
func (b *Bot) Open(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		b.session.Close()
		return fmt.Errorf("error registering commands: %w", err)
	}

	b.stopPresence = b.startPresenceRotation(ctx, b.config.PresenceInterval)
	return nil
}

func (b *Bot) Close() error {
	if b.stopPresence != nil {
		b.stopPresence()
	}
	return b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	b.guildsMu.Lock()
	for _, guild := range r.Guilds {
		b.knownGuilds[guild.ID] = struct{}{}
	}
	b.ready = true
	b.guildsMu.Unlock()

	log.WithFields(log.Fields{
		"user":   r.User.Username,
		"guilds": len(r.Guilds),
	}).Info("Bot is ready")
}

// handleGuildCreate welcomes guilds joined after the initial Ready
func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}

	b.guildsMu.Lock()
	_, known := b.knownGuilds[g.ID]
	b.knownGuilds[g.ID] = struct{}{}
	isNewJoin := b.ready && !known
	b.guildsMu.Unlock()

	if !isNewJoin {
		return
	}

	log.WithFields(log.Fields{
		"guildID": g.ID,
		"name":    g.Name,
	}).Info("Joined guild")
	b.sendWelcome(s, g.Guild)
}

func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	activity, ok := messageActivity(m)
	if !ok {
		return
	}
	b.processActivity(activity)
}

func (b *Bot) handleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil || r.GuildID == "" {
		return
	}
	author := resolveMessageAuthor(s, r.ChannelID, r.MessageID)
	activity, ok := reactionActivity(r, author)
	if !ok {
		return
	}
	b.processActivity(activity)
}

// processActivity grants XP and announces level-ups. Grants that committed are
// announced even when another grant of the same activity failed.
func (b *Bot) processActivity(activity models.Activity) {
	ctx, cancel := context.WithTimeout(context.Background(), b.config.ActivityTimeout)
	defer cancel()

	grants, err := b.levelingService.HandleActivity(ctx, activity)
	if err != nil {
		log.WithFields(log.Fields{
			"guildID": activity.Guild(),
			"kind":    activity.Kind(),
			"error":   err,
		}).Error("Failed to grant activity XP")
	}

	b.announceGrants(ctx, activity, grants)
}
