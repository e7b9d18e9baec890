package telegram

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

// retryDelayFromError picks a floor for the next poll based on what Telegram said.
func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// Run long-polls Telegram until ctx is cancelled. Each update is handled in its
// own goroutine; Run waits for them before returning.
func (r *Router) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 15 * time.Second
	b.MaxElapsedTime = 0 // не сдаёмся никогда
	b.Reset()

	offset := 0
	for {
		select {
		case <-ctx.Done():
			r.Log.Info().Msg("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := r.Bot.GetUpdates(u)
		if err != nil {
			d := b.NextBackOff()
			if floor := retryDelayFromError(err); d < floor {
				d = floor
			}
			r.Log.Warn().Err(err).Dur("retry_in", d).Msg("polling error")
			if !sleepCtx(ctx, d) {
				return
			}
			continue
		}
		b.Reset()

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer wg.Done()
				r.HandleUpdate(ctx, upd)
			}(upd)
		}

		if len(updates) == 0 && !sleepCtx(ctx, 200*time.Millisecond) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
