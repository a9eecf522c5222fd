package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"double/internal/llm"
	"double/internal/session"
)

type fakeGateway struct {
	reply   string
	err     error
	history []llm.Message
}

func (f *fakeGateway) Chat(ctx context.Context, messages []llm.Message, onDelta llm.StreamFunc) (string, error) {
	f.history = messages
	if f.err != nil {
		return "", f.err
	}
	if onDelta != nil {
		onDelta(f.reply, f.reply)
	}
	return f.reply, nil
}

func TestSendAppendsBothTurns(t *testing.T) {
	t.Parallel()

	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	meta, err := store.Create("会话", "deepseek")
	require.NoError(t, err)

	// Pre-existing history must be forwarded to the gateway.
	_, err = store.AddMessage(meta.ID, session.Message{Role: llm.RoleUser, Content: "earlier question"})
	require.NoError(t, err)
	_, err = store.AddMessage(meta.ID, session.Message{Role: llm.RoleAssistant, Content: "earlier answer"})
	require.NoError(t, err)

	gateway := &fakeGateway{reply: "新的回答"}
	svc := NewService(store, gateway)

	var streamed string
	reply, err := svc.Send(context.Background(), meta.ID, "新的问题", nil, func(delta, full string) {
		streamed = full
	})
	require.NoError(t, err)
	assert.Equal(t, llm.RoleAssistant, reply.Role)
	assert.Equal(t, "新的回答", reply.Content)
	assert.Equal(t, "新的回答", streamed)

	require.Len(t, gateway.history, 3)
	assert.Equal(t, "earlier question", gateway.history[0].Content)
	assert.Equal(t, "earlier answer", gateway.history[1].Content)
	assert.Equal(t, "新的问题", gateway.history[2].Content)

	sess, err := store.Get(meta.ID)
	require.NoError(t, err)
	require.Equal(t, 4, sess.MessageCount)
	assert.Equal(t, llm.RoleUser, sess.Messages[2].Role)
	assert.Equal(t, llm.RoleAssistant, sess.Messages[3].Role)
}

func TestSendKeepsUserMessageOnGatewayFailure(t *testing.T) {
	t.Parallel()

	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	meta, err := store.Create("会话", "deepseek")
	require.NoError(t, err)

	svc := NewService(store, &fakeGateway{err: errors.New("upstream down")})
	_, err = svc.Send(context.Background(), meta.ID, "问题", nil, nil)
	require.Error(t, err)

	sess, err := store.Get(meta.ID)
	require.NoError(t, err)
	require.Equal(t, 1, sess.MessageCount)
	assert.Equal(t, llm.RoleUser, sess.Messages[0].Role)
}

func TestSendMissingSession(t *testing.T) {
	t.Parallel()

	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)

	svc := NewService(store, &fakeGateway{reply: "x"})
	_, err = svc.Send(context.Background(), "20990101-nope", "问题", nil, nil)
	require.Error(t, err)
}
