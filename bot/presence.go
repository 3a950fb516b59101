package bot

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// DefaultPresenceInterval is how long each status stays up
const DefaultPresenceInterval = 20 * time.Second

type presenceStatus struct {
	activityType discordgo.ActivityType
	name         string
}

var presenceRotation = []presenceStatus{
	{discordgo.ActivityTypeGame, "and Leveling up across servers"},
	{discordgo.ActivityTypeWatching, "the leaderboards 👀"},
	{discordgo.ActivityTypeListening, "to /rank commands"},
}

// presenceAt returns the status shown at the given tick
func presenceAt(tick int) presenceStatus {
	return presenceRotation[tick%len(presenceRotation)]
}

// startPresenceRotation cycles the bot status until the returned stop function is called
func (b *Bot) startPresenceRotation(ctx context.Context, interval time.Duration) func() {
	if interval <= 0 {
		interval = DefaultPresenceInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for tick := 0; ; tick++ {
			status := presenceAt(tick)
			err := b.session.UpdateStatusComplex(discordgo.UpdateStatusData{
				Activities: []*discordgo.Activity{{Name: status.name, Type: status.activityType}},
				Status:     string(discordgo.StatusOnline),
			})
			if err != nil {
				log.WithError(err).Debug("Failed to update presence")
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
