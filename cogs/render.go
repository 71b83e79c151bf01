package cogs

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"econbot/sessions"
	"econbot/utils"
)

// componentTarget splits "<prefix>:<action>:<session id>". Session ids carry
// their own colon, so everything after the action is the id.
func componentTarget(i *discordgo.InteractionCreate) (action, id string) {
	parts := utils.SplitCustomID(i.MessageComponentData().CustomID)
	if len(parts) < 3 {
		return "", ""
	}
	return parts[1], strings.Join(parts[2:], ":")
}

// SessionEmbed renders any session view
func SessionEmbed(v sessions.View) *discordgo.MessageEmbed {
	switch v.Kind {
	case sessions.Blackjack:
		return blackjackEmbed(v)
	case sessions.WordChain:
		return wordChainEmbed(v)
	case sessions.TreasureHunt:
		return huntEmbed(v)
	case sessions.HotPotato:
		return potatoEmbed(v)
	}
	return utils.CreateBrandedEmbed(string(v.Kind), string(v.State), utils.BotColor)
}

// SessionComponents returns the buttons a session view still offers
func SessionComponents(v sessions.View) []discordgo.MessageComponent {
	switch v.Kind {
	case sessions.Blackjack:
		return blackjackComponents(v)
	case sessions.WordChain:
		return wordChainComponents(v)
	case sessions.TreasureHunt:
		return huntComponents(v)
	case sessions.HotPotato:
		return potatoComponents(v)
	}
	return nil
}

// Notifier posts timer-driven transitions, such as a turn timeout or an
// abandoned lobby, to the session's channel.
func Notifier(s *discordgo.Session) func(channelID string, v sessions.View) {
	return func(channelID string, v sessions.View) {
		if channelID == "" {
			return
		}
		if err := utils.SendChannelEmbed(s, channelID, SessionEmbed(v), SessionComponents(v)); err != nil {
			utils.BotLogf("SESSIONS", "notify %s failed: %v", v.ID, err)
		}
	}
}
