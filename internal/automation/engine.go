package automation

import (
	"context"
	"strings"

	"evolution-gateway/internal/evolution"
	"evolution-gateway/internal/models"
	"evolution-gateway/internal/store"

	"github.com/sirupsen/logrus"
)

// Sender dispatches an automated reply to the provider. Satisfied by
// *evolution.Client; tests swap in a fake.
type Sender interface {
	SendText(ctx context.Context, instanceID, recipient, text string) (*evolution.SendResponse, error)
}

// Action describes the single automated reply produced for a message.
type Action struct {
	RuleID     uint
	InstanceID string
	Recipient  string
	Response   string
}

// Engine evaluates keyword rules against incoming messages.
type Engine struct {
	rules  *store.RuleStore
	sender Sender
}

func NewEngine(rules *store.RuleStore, sender Sender) *Engine {
	return &Engine{rules: rules, sender: sender}
}

// ProcessIncomingMessage matches the message text against active keyword
// rules in creation order and dispatches the first match's response. At most
// one action fires per message. A dispatch failure is logged and recorded but
// never propagated: the stored message stands regardless.
//
// Callers must not invoke this for outgoing or deduplicated messages.
func (e *Engine) ProcessIncomingMessage(ctx context.Context, conversationID, instanceID, recipient, text string) (*Action, error) {
	rules, err := e.rules.ListActiveKeyword(ctx)
	if err != nil {
		return nil, err
	}

	content := strings.ToLower(text)

	for _, rule := range rules {
		if !matchesKeywords(content, rule.Keywords()) {
			continue
		}

		logrus.WithFields(logrus.Fields{
			"rule":         rule.Name,
			"conversation": conversationID,
		}).Info("Automation rule matched")

		action := &Action{
			RuleID:     rule.ID,
			InstanceID: instanceID,
			Recipient:  recipient,
			Response:   rule.ResponseMessage,
		}

		_, sendErr := e.sender.SendText(ctx, instanceID, recipient, rule.ResponseMessage)
		e.logExecution(ctx, &rule, conversationID, recipient, sendErr)
		if sendErr != nil {
			logrus.WithError(sendErr).WithField("rule", rule.Name).
				Error("Automation dispatch failed")
		}

		// First match wins.
		return action, nil
	}

	return nil, nil
}

func matchesKeywords(content string, keywords []string) bool {
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}

func (e *Engine) logExecution(ctx context.Context, rule *models.AutomationRule, conversationID, recipient string, sendErr error) {
	entry := &models.AutomationLog{
		RuleID:         rule.ID,
		ConversationID: conversationID,
		Recipient:      recipient,
		ActionTaken:    "send_message",
		Success:        sendErr == nil,
	}
	if sendErr != nil {
		entry.ErrorMessage = sendErr.Error()
	}
	if err := e.rules.LogExecution(ctx, entry); err != nil {
		logrus.WithError(err).Warn("Failed to write automation log")
	}
}
