package utils

import (
	"strings"

	"econbot/models"
)

// RankForLevel returns the highest rank whose band starts at or below level
func RankForLevel(level int) Rank {
	rank := Ranks[0]
	for _, r := range Ranks {
		if level < r.MinLevel {
			break
		}
		rank = r
	}
	return rank
}

// NextRank returns the first rank above level, or false at the top
func NextRank(level int) (Rank, bool) {
	for _, r := range Ranks {
		if r.MinLevel > level {
			return r, true
		}
	}
	return Rank{}, false
}

// LevelProgress renders progress from the current level towards the next
func LevelProgress(xp int64, length int) string {
	level := models.LevelForExperience(xp)
	lo := models.ExperienceForLevel(level)
	hi := models.ExperienceForLevel(level + 1)
	return ProgressBar(xp, lo, hi, length)
}

// ProgressBar draws a fixed-width bar of current within [lo, hi]
func ProgressBar(current, lo, hi int64, length int) string {
	if length <= 0 {
		return ""
	}
	if hi <= lo {
		return strings.Repeat("█", length)
	}
	progress := float64(current-lo) / float64(hi-lo)
	progress = max(0, min(1, progress))
	filled := int(progress * float64(length))
	return strings.Repeat("█", filled) + strings.Repeat("░", length-filled)
}
