package openai

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/harborline/docflow/core"
)

// classifyErr maps a chat API failure onto the engine's transient taxonomy
// so the stage retry policy applies to timeouts, throttling, and unreachable
// hosts, while malformed-response and validation failures stay permanent.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.Transient(core.TransientTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return core.Transient(core.TransientTimeout, err)
		}
		return core.Transient(core.TransientUnreachable, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit") {
		return core.Transient(core.TransientRateLimit, err)
	}
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") {
		return core.Transient(core.TransientUnreachable, err)
	}
	return err
}
