package controller

import (
	"strconv"
	"time"
)

func (c *controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

// allowVideoAction rate-limits playback actions per connection. Excess
// actions are dropped, not queued; the next allowed action carries the
// authoritative position anyway.
func (c *controller) allowVideoAction(connectionId string) bool {
	if c.videoActionInterval <= 0 {
		return true
	}

	now := time.Now()

	c.videoActionMu.Lock()
	defer c.videoActionMu.Unlock()

	if last, ok := c.lastVideoAction[connectionId]; ok && now.Sub(last) < c.videoActionInterval {
		return false
	}
	c.lastVideoAction[connectionId] = now

	return true
}

func (c *controller) clearVideoActionState(connectionId string) {
	c.videoActionMu.Lock()
	delete(c.lastVideoAction, connectionId)
	c.videoActionMu.Unlock()
}
