package bot

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

// Callback queries for messages older than 48 hours carry no message;
// the update loop must survive them.
func TestHandleCallbackWithoutMessage(t *testing.T) {
	b := &Bot{
		userStates: map[int64]userState{},
		quizzes:    map[int64]*quizState{},
		knownChats: map[int64]bool{},
	}

	require.NotPanics(t, func() {
		b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{ID: "cb", Data: "ans:0"})
	})
	require.Empty(t, b.knownChats)
}
