package ingest

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"evolution-gateway/internal/automation"
	"evolution-gateway/internal/database"
	"evolution-gateway/internal/evolution"
	"evolution-gateway/internal/models"
	"evolution-gateway/internal/store"
	wire "evolution-gateway/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeSender struct {
	sent int
}

func (s *fakeSender) SendText(ctx context.Context, instanceID, recipient, text string) (*evolution.SendResponse, error) {
	s.sent++
	resp := &evolution.SendResponse{Status: "PENDING"}
	resp.Key.ID = "REPLY-1"
	return resp, nil
}

type fixture struct {
	db       *gorm.DB
	ingestor *Ingestor
	sender   *fakeSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sender := &fakeSender{}
	engine := automation.NewEngine(store.NewRuleStore(db), sender)
	ingestor := NewIngestor(
		store.NewContactStore(db),
		store.NewConversationStore(db),
		store.NewMessageStore(db),
		engine,
		nil,
	)
	return &fixture{db: db, ingestor: ingestor, sender: sender}
}

func (f *fixture) seedRule(t *testing.T, keywords, response string) {
	t.Helper()
	rule := &models.AutomationRule{
		Name:            "rule",
		Active:          true,
		TriggerType:     "keyword",
		TriggerKeywords: keywords,
		ResponseMessage: response,
	}
	require.NoError(t, f.db.Create(rule).Error)
}

func incomingEvent(id, text string, timestamp int64) *wire.MessageEventData {
	return &wire.MessageEventData{
		Key: wire.MessageKey{
			RemoteJid: "5511999999999@s.whatsapp.net",
			ID:        id,
			FromMe:    false,
		},
		PushName:         "Alice",
		Message:          &wire.MessageContent{Conversation: text},
		MessageTimestamp: timestamp,
	}
}

func TestProcessMessageStoresFullChain(t *testing.T) {
	f := newFixture(t)

	result, err := f.ingestor.ProcessMessage(context.Background(), "inst-1", incomingEvent("MSG-1", "hello", 1700000000))
	require.NoError(t, err)
	require.False(t, result.Duplicate)
	require.NotNil(t, result.Message)

	assert.Equal(t, models.DirectionIncoming, result.Message.Direction)
	assert.Equal(t, models.KindText, result.Message.Kind)
	assert.Equal(t, "hello", result.Message.Content)

	var contact models.Contact
	require.NoError(t, f.db.First(&contact, "phone = ?", "5511999999999").Error)
	assert.Equal(t, "Alice", contact.Name)

	var conversation models.Conversation
	require.NoError(t, f.db.First(&conversation, "id = ?", result.Conversation.ID).Error)
	assert.Equal(t, 1, conversation.UnreadCount)
	assert.Equal(t, "hello", conversation.LastMessage)
}

func TestReplayedDeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedRule(t, `["hello"]`, "Welcome!")
	ctx := context.Background()

	first, err := f.ingestor.ProcessMessage(ctx, "inst-1", incomingEvent("MSG-1", "hello", 1700000000))
	require.NoError(t, err)
	require.False(t, first.Duplicate)
	assert.Equal(t, 1, f.sender.sent)

	second, err := f.ingestor.ProcessMessage(ctx, "inst-1", incomingEvent("MSG-1", "hello", 1700000000))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	var count int64
	require.NoError(t, f.db.Model(&models.Message{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var conversation models.Conversation
	require.NoError(t, f.db.First(&conversation, "id = ?", first.Conversation.ID).Error)
	assert.Equal(t, 1, conversation.UnreadCount, "a replay must not touch the counter")

	assert.Equal(t, 1, f.sender.sent, "a replay must not re-fire automation")
}

func TestOutgoingMessageSuppressesAutomation(t *testing.T) {
	f := newFixture(t)
	f.seedRule(t, `["hello"]`, "Welcome!")

	event := incomingEvent("MSG-1", "hello", 1700000000)
	event.Key.FromMe = true

	result, err := f.ingestor.ProcessMessage(context.Background(), "inst-1", event)
	require.NoError(t, err)
	require.NotNil(t, result.Message)

	assert.Equal(t, models.DirectionOutgoing, result.Message.Direction)
	assert.Nil(t, result.Action)
	assert.Equal(t, 0, f.sender.sent)

	var conversation models.Conversation
	require.NoError(t, f.db.First(&conversation, "id = ?", result.Conversation.ID).Error)
	assert.Equal(t, 0, conversation.UnreadCount)
}

func TestUnreadResetOnOutgoingAfterIncoming(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, id := range []string{"MSG-1", "MSG-2", "MSG-3"} {
		_, err := f.ingestor.ProcessMessage(ctx, "inst-1", incomingEvent(id, "ping", 1700000000+int64(i)))
		require.NoError(t, err)
	}

	outgoing := incomingEvent("MSG-4", "pong", 1700000010)
	outgoing.Key.FromMe = true
	result, err := f.ingestor.ProcessMessage(ctx, "inst-1", outgoing)
	require.NoError(t, err)

	var conversation models.Conversation
	require.NoError(t, f.db.First(&conversation, "id = ?", result.Conversation.ID).Error)
	assert.Equal(t, 0, conversation.UnreadCount)
	assert.Equal(t, "pong", conversation.LastMessage)
}

func TestIngestOutboundDedupsAgainstWebhookEcho(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.ingestor.IngestOutbound(ctx, "inst-1", "5511999999999@s.whatsapp.net", "hi from dashboard", "SENT-1")
	require.NoError(t, err)
	require.False(t, result.Duplicate)

	// The provider later echoes the same message as a fromMe upsert.
	echo := incomingEvent("SENT-1", "hi from dashboard", result.Message.Timestamp.Unix())
	echo.Key.FromMe = true
	echoed, err := f.ingestor.ProcessMessage(ctx, "inst-1", echo)
	require.NoError(t, err)
	assert.True(t, echoed.Duplicate)
}

func TestClassifyKind(t *testing.T) {
	raw := json.RawMessage(`{"url":"https://example.test/blob"}`)

	tests := []struct {
		name    string
		content *wire.MessageContent
		want    string
	}{
		{"nil payload", nil, models.KindText},
		{"plain text", &wire.MessageContent{Conversation: "hi"}, models.KindText},
		{"extended text", &wire.MessageContent{ExtendedTextMessage: &wire.ExtendedText{Text: "hi"}}, models.KindText},
		{"image", &wire.MessageContent{ImageMessage: raw}, models.KindImage},
		{"video", &wire.MessageContent{VideoMessage: raw}, models.KindVideo},
		{"audio", &wire.MessageContent{AudioMessage: raw}, models.KindAudio},
		{"document", &wire.MessageContent{DocumentMessage: raw}, models.KindDocument},
		{"empty payload", &wire.MessageContent{}, models.KindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyKind(tt.content))
		})
	}
}
