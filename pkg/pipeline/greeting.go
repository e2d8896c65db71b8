package pipeline

import (
	"strings"
	"time"
)

// GreetingText renders the spoken greeting for userName at now.
func GreetingText(userName string, now time.Time) string {
	var b strings.Builder
	b.WriteString("Welcome Back ")
	b.WriteString(userName)
	b.WriteString("! ")
	b.WriteString(partOfDay(now.Hour()))
	b.WriteString("Jarvis at your service. Please tell me how can I help you today?")
	return b.String()
}

func partOfDay(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "Good Morning Sir! "
	case hour >= 12 && hour < 18:
		return "Good Afternoon Sir! "
	case hour >= 18 && hour < 24:
		return "Good Evening Sir! "
	default:
		return "Good Night Sir! "
	}
}
