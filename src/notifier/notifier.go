package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/config"
	"github.com/playforge/catalog/src/api/data"
	"github.com/playforge/catalog/src/api/types"
)

type Notifier struct {
	session   *discordgo.Session
	rdb       *redis.Client
	db        *gorm.DB
	channelID string
}

type reviewEvent struct {
	Event      string
	ProposalID string
	GameID     string
	EditorID   string
	ReviewerID string
}

func main() {
	cfg := config.Load()

	token := os.Getenv("DISCORD_TOKEN")
	channelID := os.Getenv("DISCORD_CHANNEL_ID")
	if token == "" || channelID == "" {
		log.Fatal("missing DISCORD_TOKEN or DISCORD_CHANNEL_ID")
	}

	db := data.MustMySQL(cfg.MySQLDSN)
	rdb := data.MustRedis(cfg.RedisURL)

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Fatalf("discord: %v", err)
	}
	if err := session.Open(); err != nil {
		log.Fatalf("discord open: %v", err)
	}
	defer session.Close()

	n := &Notifier{session: session, rdb: rdb, db: db, channelID: channelID}

	ctx, cancel := context.WithCancel(context.Background())
	go n.listen(ctx)
	log.Printf("Notifier consuming %s", data.StreamEvents)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
}

func (n *Notifier) listen(ctx context.Context) {
	lastID := "0"

	for {
		select {
		case <-ctx.Done():
			return
		default:
			streams, err := n.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{data.StreamEvents, lastID},
				Count:   10,
				Block:   5 * time.Second,
			}).Result()

			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					log.Printf("Error reading stream: %v", err)
				}
				continue
			}

			for _, stream := range streams {
				for _, msg := range stream.Messages {
					lastID = msg.ID
					ev := parseEvent(msg.Values)
					if err := n.post(ev); err != nil {
						log.Printf("Failed to post to Discord: %v", err)
					}
				}
			}
		}
	}
}

func parseEvent(values map[string]interface{}) reviewEvent {
	var ev reviewEvent
	if v, ok := values["event"].(string); ok {
		ev.Event = v
	}
	if v, ok := values["proposalId"].(string); ok {
		ev.ProposalID = v
	}
	if v, ok := values["gameId"].(string); ok {
		ev.GameID = v
	}
	if v, ok := values["editorId"].(string); ok {
		ev.EditorID = v
	}
	if v, ok := values["reviewerId"].(string); ok {
		ev.ReviewerID = v
	}
	return ev
}

func (n *Notifier) post(ev reviewEvent) error {
	var title, color = "Proposal reviewed", 0x95a5a6
	switch ev.Event {
	case "proposal.approved":
		title, color = "Proposal approved", 0x2ecc71
	case "proposal.declined":
		title, color = "Proposal declined", 0xe74c3c
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Proposal", Value: ev.ProposalID, Inline: true},
	}
	if ev.GameID != "" {
		var game types.Game
		if err := n.db.First(&game, "id = ?", ev.GameID).Error; err == nil {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name: "Game", Value: game.Title, Inline: true,
			})
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:     title,
		Color:     color,
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	_, err := n.session.ChannelMessageSendEmbed(n.channelID, embed)
	return err
}
