package utils

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord drops an interaction that is not acknowledged within three
// seconds, so every call gets a hard deadline.
const (
	respondTimeout  = 2500 * time.Millisecond
	editTimeout     = 2 * time.Second
	slowCallWarning = 500 * time.Millisecond
)

// CreateActionRow creates an action row with buttons
func CreateActionRow(buttons ...discordgo.MessageComponent) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: buttons}
}

// CreateButton creates a button component
func CreateButton(customID, label string, style discordgo.ButtonStyle, disabled bool, emoji *discordgo.ComponentEmoji) discordgo.MessageComponent {
	button := discordgo.Button{
		CustomID: customID,
		Label:    label,
		Style:    style,
		Disabled: disabled,
	}
	if emoji != nil {
		button.Emoji = emoji
	}
	return button
}

// CustomID joins parts with ':' for component ids
func CustomID(parts ...string) string {
	return strings.Join(parts, ":")
}

// SplitCustomID is the inverse of CustomID
func SplitCustomID(id string) []string {
	return strings.Split(id, ":")
}

// UserID returns the invoking user's id for guild and DM interactions
func UserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// InvokingUser returns the invoking user for guild and DM interactions
func InvokingUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// withDeadline runs call and gives up after timeout. The call keeps running
// in the background; its late result is dropped.
func withDeadline(op string, timeout time.Duration, call func() error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resultCh := make(chan error, 1)
	go func() { resultCh <- call() }()

	select {
	case err := <-resultCh:
		if d := time.Since(start); d > slowCallWarning {
			BotLogf("DISCORD_PERF", "slow %s: %dms", op, d.Milliseconds())
		}
		return err
	case <-ctx.Done():
		BotLogf("DISCORD_API", "%s timed out after %v", op, timeout)
		return ctx.Err()
	}
}

// SendInteractionResponse sends an interaction response with embed and components
func SendInteractionResponse(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{OptimizeEmbedPayload(embed)},
		Components: components,
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return withDeadline("SendInteractionResponse", respondTimeout, func() error {
		return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		})
	})
}

// RespondError sends an ephemeral error embed. Failures are only logged.
func RespondError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	if err := SendInteractionResponse(s, i, ErrorEmbed(message), nil, true); err != nil {
		BotLogf("DISCORD_API", "error response failed: %v", err)
	}
}

// DeferInteractionResponse acknowledges a slash command to answer later
func DeferInteractionResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return withDeadline("DeferInteractionResponse", respondTimeout, func() error {
		return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: data,
		})
	})
}

// DeleteInteractionResponse removes the original response, such as the
// placeholder left by a deferral that was answered privately instead
func DeleteInteractionResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return withDeadline("DeleteInteractionResponse", editTimeout, func() error {
		return s.InteractionResponseDelete(i.Interaction)
	})
}

// UpdateComponentInteraction replaces the message a button belongs to
func UpdateComponentInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	return withDeadline("UpdateComponentInteraction", respondTimeout, func() error {
		return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Embeds:     []*discordgo.MessageEmbed{OptimizeEmbedPayload(embed)},
				Components: components,
			},
		})
	})
}

// UpdateInteractionResponse edits a deferred or earlier response, retrying
// transient failures and falling back to a followup and then a plain
// channel message.
func UpdateInteractionResponse(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	return UpdateInteractionResponseWithRetry(s, i, embed, components, 2)
}

func UpdateInteractionResponseWithRetry(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, maxRetries int) error {
	embed = OptimizeEmbedPayload(embed)
	edit := &discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := min(time.Duration(50*attempt*attempt)*time.Millisecond, 500*time.Millisecond)
			time.Sleep(backoff)
		}
		err := withDeadline("UpdateInteractionResponse", editTimeout, func() error {
			_, err := s.InteractionResponseEdit(i.Interaction, edit)
			return err
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if isNonRetryableError(err) {
			break
		}
		BotLogf("DISCORD_API", "UpdateInteractionResponse attempt %d failed: %v", attempt+1, err)
	}
	return tryInteractionResponseFallback(s, i, embed, components, lastErr)
}

func isNonRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Unknown Webhook") ||
		strings.Contains(msg, "\"code\": 10015") ||
		strings.Contains(msg, "Unknown interaction") ||
		strings.Contains(msg, "400")
}

func isWebhookExpiredError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Unknown Webhook") ||
		strings.Contains(msg, "\"code\": 10015") ||
		strings.Contains(msg, "404") ||
		strings.Contains(msg, "Unknown interaction")
}

func tryInteractionResponseFallback(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, originalErr error) error {
	if !isWebhookExpiredError(originalErr) {
		if err := SendFollowupMessage(s, i, embed, components, false); err == nil {
			return nil
		}
	}
	if i.ChannelID != "" {
		if err := SendChannelEmbed(s, i.ChannelID, embed, components); err == nil {
			BotLogf("DISCORD_API", "used channel message as fallback")
			return nil
		}
	}
	return fmt.Errorf("interaction response failed with all fallbacks: %w", originalErr)
}

// SendFollowupMessage sends a followup message to an acknowledged interaction
func SendFollowupMessage(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, ephemeral bool) error {
	params := &discordgo.WebhookParams{
		Embeds:     []*discordgo.MessageEmbed{OptimizeEmbedPayload(embed)},
		Components: components,
	}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	return withDeadline("SendFollowupMessage", editTimeout, func() error {
		_, err := s.FollowupMessageCreate(i.Interaction, true, params)
		return err
	})
}

// SendChannelEmbed posts an embed outside any interaction, used for timer
// driven game updates.
func SendChannelEmbed(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	msg := &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{OptimizeEmbedPayload(embed)},
		Components: components,
	}
	return withDeadline("SendChannelEmbed", editTimeout, func() error {
		_, err := s.ChannelMessageSendComplex(channelID, msg)
		return err
	})
}

// BotLogf logs a formatted message for a Discord-layer area
func BotLogf(area string, format string, args ...any) {
	slog.Default().Warn(fmt.Sprintf(format, args...), slog.String("area", area))
}

// OptimizeEmbedPayload trims whitespace and drops empty parts of an embed
func OptimizeEmbedPayload(embed *discordgo.MessageEmbed) *discordgo.MessageEmbed {
	if embed == nil {
		return embed
	}
	optimized := &discordgo.MessageEmbed{
		Title:       strings.TrimSpace(embed.Title),
		Description: strings.TrimSpace(embed.Description),
		Color:       embed.Color,
		Timestamp:   embed.Timestamp,
	}
	if embed.Footer != nil && strings.TrimSpace(embed.Footer.Text) != "" {
		optimized.Footer = &discordgo.MessageEmbedFooter{
			Text:    strings.TrimSpace(embed.Footer.Text),
			IconURL: embed.Footer.IconURL,
		}
	}
	if embed.Thumbnail != nil && embed.Thumbnail.URL != "" {
		optimized.Thumbnail = embed.Thumbnail
	}
	if embed.Image != nil && embed.Image.URL != "" {
		optimized.Image = embed.Image
	}
	for _, field := range embed.Fields {
		if field != nil && strings.TrimSpace(field.Name) != "" && strings.TrimSpace(field.Value) != "" {
			optimized.Fields = append(optimized.Fields, &discordgo.MessageEmbedField{
				Name:   strings.TrimSpace(field.Name),
				Value:  strings.TrimSpace(field.Value),
				Inline: field.Inline,
			})
		}
	}
	return optimized
}
