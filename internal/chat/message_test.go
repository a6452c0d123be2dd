package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hikarin/chatcore/config"
	"github.com/hikarin/chatcore/internal/models"
	"github.com/hikarin/chatcore/internal/ratelimit"
)

// newValidationService builds a service with no database behind it. Only
// safe for exercising the pre-write phase of ReceiveMessage: validation and
// the rate-limit gate both reject before the first query runs.
func newValidationService(t *testing.T, cfg config.ChatConfig) *Service {
	t.Helper()
	client := newTestRedis(t)
	limiter := ratelimit.NewLimiter(client, zap.NewNop(),
		ratelimit.Config{Limit: cfg.PMRateLimit, Window: cfg.PMRateWindow()},
		ratelimit.Config{Limit: cfg.PublicRateLimit, Window: cfg.PublicRateWindow()},
	)
	return NewService(
		nil,
		cfg,
		limiter,
		NewContentFilter(cfg.Filters),
		nil,
		&spyDispatcher{},
		&spyBroadcaster{},
		&staticRelations{},
		newSpyRecorder(),
		zap.NewNop(),
	)
}

func TestNormalizeContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text passes through", "hello world", "hello world"},
		{"newlines collapse to spaces", "line one\nline two", "line one line two"},
		{"crlf collapses to spaces", "a\r\nb", "a  b"},
		{"surrounding whitespace is trimmed", "  padded  ", "padded"},
		{"newline-only content trims to empty", "\n\r\n\n", ""},
		{"interior runs are preserved", "a  \n  b", "a     b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeContent(tt.in))
		})
	}
}

func TestReceiveMessage_EmptyContent(t *testing.T) {
	svc := newValidationService(t, testChatConfig())
	sender := &models.User{ID: 1, UserName: "alice"}

	t.Run("public channel rejects whitespace-only content", func(t *testing.T) {
		ch := svc.wrap(&models.Channel{ID: 1, Type: models.ChannelTypePublic, Name: "#osu"})
		_, err := ch.ReceiveMessage(context.Background(), sender, " \r\n ", false, "")
		var empty *EmptyMessageError
		assert.ErrorAs(t, err, &empty)
	})

	t.Run("announce channel rejects whitespace-only content despite skipping normalization", func(t *testing.T) {
		ch := svc.wrap(&models.Channel{ID: 2, Type: models.ChannelTypeAnnounce, Name: "#news"})
		_, err := ch.ReceiveMessage(context.Background(), sender, "  \n\t ", false, "")
		var empty *EmptyMessageError
		assert.ErrorAs(t, err, &empty)
	})
}

func TestReceiveMessage_TooLong(t *testing.T) {
	cfg := testChatConfig()
	svc := newValidationService(t, cfg)
	sender := &models.User{ID: 1, UserName: "alice"}

	t.Run("public limit counts code points, not bytes", func(t *testing.T) {
		ch := svc.wrap(&models.Channel{ID: 1, Type: models.ChannelTypePublic, Name: "#osu"})

		// One rune over the ceiling, multibyte so the byte count is far past it.
		content := strings.Repeat("あ", cfg.PublicMessageLengthLimit+1)
		_, err := ch.ReceiveMessage(context.Background(), sender, content, false, "")

		var tooLong *MessageTooLongError
		require.ErrorAs(t, err, &tooLong)
		assert.Equal(t, cfg.PublicMessageLengthLimit, tooLong.Limit)
	})

	t.Run("announce channels use their own ceiling", func(t *testing.T) {
		// A zero rate limit turns the gate after length validation into a
		// reliable stop, so passing validation is observable without a db.
		gated := cfg
		gated.PublicRateLimit = 0
		gsvc := newValidationService(t, gated)
		ch := gsvc.wrap(&models.Channel{ID: 2, Type: models.ChannelTypeAnnounce, Name: "#news"})

		// Longer than the public limit but within the announce limit: length
		// validation passes and the rate-limit gate rejects instead.
		content := strings.Repeat("x", cfg.PublicMessageLengthLimit+1)
		_, err := ch.ReceiveMessage(context.Background(), sender, content, false, "")
		var limited *RateLimitExceededError
		assert.ErrorAs(t, err, &limited)

		content = strings.Repeat("x", cfg.AnnounceMessageLengthLimit+1)
		_, err = ch.ReceiveMessage(context.Background(), sender, content, false, "")
		var tooLong *MessageTooLongError
		require.ErrorAs(t, err, &tooLong)
		assert.Equal(t, cfg.AnnounceMessageLengthLimit, tooLong.Limit)
	})
}

func TestReceiveMessage_RateLimited(t *testing.T) {
	cfg := testChatConfig()
	cfg.PublicRateLimit = 0
	svc := newValidationService(t, cfg)
	sender := &models.User{ID: 1, UserName: "alice"}
	ch := svc.wrap(&models.Channel{ID: 1, Type: models.ChannelTypePublic, Name: "#osu"})

	_, err := ch.ReceiveMessage(context.Background(), sender, "hello", false, "")
	var limited *RateLimitExceededError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, "public", limited.Class)
}

func TestReceiveMessage_ValidationPrecedesRateLimit(t *testing.T) {
	cfg := testChatConfig()
	cfg.PublicRateLimit = 0
	svc := newValidationService(t, cfg)
	sender := &models.User{ID: 1, UserName: "alice"}
	ch := svc.wrap(&models.Channel{ID: 1, Type: models.ChannelTypePublic, Name: "#osu"})

	// Invalid content must be rejected as invalid, not as rate-limited, and
	// must not burn an attempt.
	_, err := ch.ReceiveMessage(context.Background(), sender, "   ", false, "")
	var empty *EmptyMessageError
	assert.ErrorAs(t, err, &empty)

	_, err = ch.ReceiveMessage(context.Background(), sender, strings.Repeat("x", cfg.PublicMessageLengthLimit+1), false, "")
	var tooLong *MessageTooLongError
	assert.ErrorAs(t, err, &tooLong)
}
