package automation

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"evolution-gateway/internal/database"
	"evolution-gateway/internal/evolution"
	"evolution-gateway/internal/models"
	"evolution-gateway/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sentText struct {
	instanceID string
	recipient  string
	text       string
}

type fakeSender struct {
	shouldFail bool
	sent       []sentText
}

func (s *fakeSender) SendText(ctx context.Context, instanceID, recipient, text string) (*evolution.SendResponse, error) {
	s.sent = append(s.sent, sentText{instanceID: instanceID, recipient: recipient, text: text})
	if s.shouldFail {
		return nil, fmt.Errorf("simulated send failure")
	}
	resp := &evolution.SendResponse{Status: "PENDING"}
	resp.Key.ID = "REPLY-1"
	return resp, nil
}

func newEngineTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedRule(t *testing.T, db *gorm.DB, name, keywords, response string, active bool) *models.AutomationRule {
	t.Helper()

	rule := &models.AutomationRule{
		Name:            name,
		Active:          active,
		TriggerType:     "keyword",
		TriggerKeywords: keywords,
		ResponseMessage: response,
	}
	require.NoError(t, db.Create(rule).Error)
	return rule
}

func TestFirstMatchingRuleWins(t *testing.T) {
	db := newEngineTestDB(t)
	earlier := seedRule(t, db, "greeting", `["hello","hi"]`, "Welcome!", true)
	seedRule(t, db, "catch-all", `["hello"]`, "Second reply", true)

	sender := &fakeSender{}
	engine := NewEngine(store.NewRuleStore(db), sender)

	action, err := engine.ProcessIncomingMessage(context.Background(), "conv-1", "inst-1", "5511999999999@s.whatsapp.net", "Hello there")
	require.NoError(t, err)
	require.NotNil(t, action)

	assert.Equal(t, earlier.ID, action.RuleID)
	assert.Equal(t, "Welcome!", action.Response)
	require.Len(t, sender.sent, 1, "exactly one reply per incoming message")
	assert.Equal(t, "Welcome!", sender.sent[0].text)
	assert.Equal(t, "5511999999999@s.whatsapp.net", sender.sent[0].recipient)
}

func TestNoMatchProducesNoAction(t *testing.T) {
	db := newEngineTestDB(t)
	seedRule(t, db, "greeting", `["hello"]`, "Welcome!", true)

	sender := &fakeSender{}
	engine := NewEngine(store.NewRuleStore(db), sender)

	action, err := engine.ProcessIncomingMessage(context.Background(), "conv-1", "inst-1", "5511999999999", "goodbye")
	require.NoError(t, err)
	assert.Nil(t, action)
	assert.Empty(t, sender.sent)
}

func TestInactiveRuleIsSkipped(t *testing.T) {
	db := newEngineTestDB(t)
	seedRule(t, db, "disabled", `["hello"]`, "Welcome!", false)

	sender := &fakeSender{}
	engine := NewEngine(store.NewRuleStore(db), sender)

	action, err := engine.ProcessIncomingMessage(context.Background(), "conv-1", "inst-1", "5511999999999", "hello")
	require.NoError(t, err)
	assert.Nil(t, action)
	assert.Empty(t, sender.sent)
}

func TestKeywordMatchIsCaseInsensitiveSubstring(t *testing.T) {
	db := newEngineTestDB(t)
	seedRule(t, db, "pricing", `["PRICE"]`, "See our price list", true)

	sender := &fakeSender{}
	engine := NewEngine(store.NewRuleStore(db), sender)

	action, err := engine.ProcessIncomingMessage(context.Background(), "conv-1", "inst-1", "5511999999999", "what is your best PrIcE today?")
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Len(t, sender.sent, 1)
}

func TestDispatchFailureIsLoggedNotPropagated(t *testing.T) {
	db := newEngineTestDB(t)
	rule := seedRule(t, db, "greeting", `["hello"]`, "Welcome!", true)

	sender := &fakeSender{shouldFail: true}
	engine := NewEngine(store.NewRuleStore(db), sender)

	action, err := engine.ProcessIncomingMessage(context.Background(), "conv-1", "inst-1", "5511999999999", "hello")
	require.NoError(t, err, "a failed dispatch must not surface as a pipeline error")
	require.NotNil(t, action)

	var entry models.AutomationLog
	require.NoError(t, db.First(&entry, "rule_id = ?", rule.ID).Error)
	assert.False(t, entry.Success)
	assert.NotEmpty(t, entry.ErrorMessage)
	assert.Equal(t, "conv-1", entry.ConversationID)
}

func TestMalformedKeywordListMatchesNothing(t *testing.T) {
	db := newEngineTestDB(t)
	seedRule(t, db, "broken", `not-json`, "Welcome!", true)

	sender := &fakeSender{}
	engine := NewEngine(store.NewRuleStore(db), sender)

	action, err := engine.ProcessIncomingMessage(context.Background(), "conv-1", "inst-1", "5511999999999", "hello")
	require.NoError(t, err)
	assert.Nil(t, action)
	assert.Empty(t, sender.sent)
}
