package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func TestWithDeadline(t *testing.T) {
	want := errors.New("rejected")
	if err := withDeadline("fast", time.Second, func() error { return want }); !errors.Is(err, want) {
		t.Errorf("fast call = %v, want %v", err, want)
	}

	release := make(chan struct{})
	defer close(release)
	start := time.Now()
	err := withDeadline("stuck", 20*time.Millisecond, func() error {
		<-release
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("stuck call = %v, want deadline exceeded", err)
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("deadline not enforced, waited %v", d)
	}
}

func TestOptimizeEmbedPayload(t *testing.T) {
	if OptimizeEmbedPayload(nil) != nil {
		t.Fatal("nil embed should stay nil")
	}
	in := &discordgo.MessageEmbed{
		Title:       "  🏦 Deposit ",
		Description: "\nMoved **500** 🪙 into the bank\n",
		Color:       ColorWin,
		Footer:      &discordgo.MessageEmbedFooter{Text: "   "},
		Fields: []*discordgo.MessageEmbedField{
			{Name: " Wallet ", Value: " 1,500 🪙 ", Inline: true},
			{Name: "Bank", Value: ""},
			nil,
			{Name: "", Value: "orphan"},
		},
	}
	out := OptimizeEmbedPayload(in)
	if out.Title != "🏦 Deposit" || out.Description != "Moved **500** 🪙 into the bank" {
		t.Errorf("text not trimmed: %q / %q", out.Title, out.Description)
	}
	if out.Color != ColorWin {
		t.Errorf("color = %#x", out.Color)
	}
	if out.Footer != nil {
		t.Errorf("blank footer kept: %+v", out.Footer)
	}
	if len(out.Fields) != 1 || out.Fields[0].Name != "Wallet" || out.Fields[0].Value != "1,500 🪙" || !out.Fields[0].Inline {
		t.Errorf("fields = %+v", out.Fields)
	}
	if in.Title != "  🏦 Deposit " {
		t.Error("input embed was modified")
	}
}

type discordErr string

func (e discordErr) Error() string { return string(e) }

func TestEditErrorClassification(t *testing.T) {
	tests := []struct {
		msg     string
		noRetry bool
		expired bool
	}{
		{`HTTP 404 Not Found, {"message": "Unknown Webhook", "code": 10015}`, true, true},
		{"HTTP 404 Not Found, Unknown interaction", true, true},
		{"HTTP 400 Bad Request, Invalid Form Body", true, false},
		{"HTTP 502 Bad Gateway", false, false},
		{"context deadline exceeded", false, false},
	}
	for _, tt := range tests {
		err := discordErr(tt.msg)
		if got := isNonRetryableError(err); got != tt.noRetry {
			t.Errorf("isNonRetryableError(%q) = %v", tt.msg, got)
		}
		if got := isWebhookExpiredError(err); got != tt.expired {
			t.Errorf("isWebhookExpiredError(%q) = %v", tt.msg, got)
		}
	}
	if isNonRetryableError(nil) || isWebhookExpiredError(nil) {
		t.Error("nil error classified")
	}
}

func TestCustomIDCarriesSessionID(t *testing.T) {
	parts := SplitCustomID(CustomID("hp", "join", "hotpotato:123"))
	if len(parts) != 4 || parts[0] != "hp" || parts[1] != "join" || parts[2]+":"+parts[3] != "hotpotato:123" {
		t.Fatalf("parts = %v", parts)
	}
}

func TestUserID(t *testing.T) {
	guild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Member: &discordgo.Member{User: &discordgo.User{ID: "1"}}}}
	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "2"}}}
	if UserID(guild) != "1" || UserID(dm) != "2" {
		t.Fatalf("guild=%q dm=%q", UserID(guild), UserID(dm))
	}
	if InvokingUser(guild).ID != "1" || UserID(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}) != "" {
		t.Fatal("invoking user mismatch")
	}
}
