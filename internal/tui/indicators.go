package tui

import (
	"strings"
	"time"
)

const activityDots = 5

// Activity lights up when the engine talks and fades while it is quiet.
type Activity struct {
	dots      int
	lastEvent time.Time
}

func (a *Activity) OnEvent(now time.Time) {
	a.dots = activityDots
	a.lastEvent = now
}

// Decay drops one dot for every two seconds of silence.
func (a *Activity) Decay(now time.Time) {
	if a.dots == 0 {
		return
	}
	lit := activityDots - int(now.Sub(a.lastEvent)/(2*time.Second))
	a.dots = max(0, min(activityDots, lit))
}

func (a Activity) Lit() int {
	return a.dots
}

func (a Activity) Render(theme Theme) string {
	var b strings.Builder
	for i := range activityDots {
		if i < a.dots {
			b.WriteString(theme.DotActive.Render("●"))
		} else {
			b.WriteString(theme.DotInactive.Render("○"))
		}
	}
	return b.String()
}
