package utils

// Branding
const (
	BotColor   = 0x5865F2
	FooterText = "econbot"
	CoinsEmoji = "🪙"
)

// Embed colors by outcome
const (
	ColorWin     = 0xFFD700
	ColorLoss    = 0xFF0000
	ColorPush    = 0xD3D3D3
	ColorPlaying = 0x1E5631
	ColorWarning = 0xF39C12
	ColorSuccess = 0x2ECC71
)

// Rank is the cosmetic title shown for a level band
type Rank struct {
	Name     string
	Icon     string
	MinLevel int
	Color    int
}

// Ranks is ordered by MinLevel
var Ranks = []Rank{
	{"Novice", "🥉", 1, 0xcd7f32},
	{"Apprentice", "🥈", 5, 0xc0c0c0},
	{"Gambler", "🥇", 10, 0xffd700},
	{"High Roller", "💰", 20, 0x22a7f0},
	{"Card Shark", "🦈", 30, 0x1f3a93},
	{"Pit Boss", "👑", 45, 0x9b59b6},
	{"Legend", "🌟", 60, 0xf1c40f},
	{"Tycoon", "💎", 80, 0x1abc9c},
}

// Canned messages
const (
	TimeoutMessage      = "You did not respond in time. The interaction has timed out."
	GameTimeoutMessage  = "You did not respond in time, so your hand was played out for you."
	GameAbandonMessage  = "This game was closed for inactivity."
	UnexpectedErrorText = "Something went wrong on our side. Nothing was charged; please try again."
)
