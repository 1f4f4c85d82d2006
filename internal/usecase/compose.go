package usecase

import "strings"

// Compose modes, selected by ALERT_COMPOSE_MODE.
const (
	ComposeAll    = "all"
	ComposeLatest = "latest"
)

// Composer merges the triggered alerts of one run into a single message.
type Composer struct {
	Mode string
}

// Compose returns "" when nothing triggered. In latest mode only the last
// alert survives; otherwise all alerts are joined in order.
func (c Composer) Compose(alerts []string) string {
	if len(alerts) == 0 {
		return ""
	}
	if c.Mode == ComposeLatest {
		return alerts[len(alerts)-1]
	}
	return strings.Join(alerts, " ")
}
