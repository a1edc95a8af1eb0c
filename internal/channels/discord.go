package channels

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/grixate/pulseboard/internal/control"
	"github.com/grixate/pulseboard/internal/dashboard"
)

// Discord publishes the dashboard as an embed and exposes the control
// operations as slash commands.
type Discord struct {
	token   string
	control *control.Service
	log     *log.Logger
	session *discordgo.Session
}

func NewDiscord(token string, ctrl *control.Service, logger *log.Logger) *Discord {
	if logger == nil {
		logger = log.Default()
	}
	return &Discord{token: token, control: ctrl, log: logger}
}

func (d *Discord) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	session.AddHandler(d.handleInteraction)
	if err := session.Open(); err != nil {
		return fmt.Errorf("discord gateway: %w", err)
	}
	d.session = session
	if err := d.registerCommands(); err != nil {
		d.log.Printf("discord: register slash commands: %v", err)
	}
	return nil
}

func (d *Discord) Close() error {
	if d.session == nil {
		return nil
	}
	return d.session.Close()
}

func (d *Discord) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "set_status_refresh",
			Description: "Set status refresh interval (owner only)",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "interval",
				Description: "Time like 30s, 5m, 2h, 1d",
				Required:    true,
			}},
		},
		{
			Name:        "get_status_refresh",
			Description: "Get current status refresh interval",
		},
		{
			Name:        "set_status_channel",
			Description: "Set the channel for the status dashboard (owner only)",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "channel",
				Description:  "Text channel for status updates",
				Required:     true,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			}},
		},
	}
	appID := d.session.State.User.ID
	for _, cmd := range commands {
		if _, err := d.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return fmt.Errorf("register %s: %w", cmd.Name, err)
		}
	}
	return nil
}

func (d *Discord) handleInteraction(session *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	caller := interactionUserID(i)

	var reply string
	var err error
	switch data.Name {
	case "set_status_refresh":
		reply, err = d.control.SetRefresh(caller, stringOption(data, "interval"))
	case "get_status_refresh":
		reply, err = d.control.GetRefresh()
	case "set_status_channel":
		reply, err = d.control.SetChannel(caller, channelOption(data, "channel"))
	default:
		return
	}
	if err != nil {
		d.log.Printf("discord: control %s: %v", data.Name, err)
	}
	if reply == "" {
		reply = "Something went wrong while updating the configuration."
	}
	respondErr := session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if respondErr != nil {
		d.log.Printf("discord: interaction response: %v", respondErr)
	}
}

func (d *Discord) FetchMessage(ctx context.Context, channelID, messageID string) error {
	_, err := d.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	return apiError("fetch message", err)
}

func (d *Discord) PublishMessage(ctx context.Context, channelID string, doc dashboard.Document) (string, error) {
	message, err := d.session.ChannelMessageSendEmbed(channelID, embedFromDocument(doc), discordgo.WithContext(ctx))
	if err != nil {
		return "", apiError("send message", err)
	}
	return message.ID, nil
}

func (d *Discord) EditMessage(ctx context.Context, channelID, messageID string, doc dashboard.Document) error {
	_, err := d.session.ChannelMessageEditEmbed(channelID, messageID, embedFromDocument(doc), discordgo.WithContext(ctx))
	return apiError("edit message", err)
}

func embedFromDocument(doc dashboard.Document) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     doc.Title,
		Color:     doc.Color,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, field := range doc.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: false,
		})
	}
	if doc.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: doc.Footer}
	}
	return embed
}

func stringOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, opt := range data.Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func channelOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, opt := range data.Options {
		if opt.Name == name {
			if id, ok := opt.Value.(string); ok {
				return id
			}
		}
	}
	return ""
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
