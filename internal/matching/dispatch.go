package matching

import (
	"context"

	"go.uber.org/zap"

	"github.com/tres-passos/marketplace/internal/model"
)

// Messages returned in SendResult.
const (
	MsgLoginRequired   = "login required"
	MsgMissingQuoteID  = "quote id not provided"
	MsgSendFailed      = "failed to send quote to provider"
	MsgQuoteSent       = "quote sent"
	outcomeNeedsLogin  = "login_required"
	outcomeMissingID   = "missing_quote_id"
	outcomeSendFailed  = "failed"
	outcomeSendSuccess = "sent"
)

// SendQuoteToProvider links an existing quote to providerID with status
// pending. The quote must belong to a signed-in client and already exist.
func (m *Matcher) SendQuoteToProvider(ctx context.Context, quote model.QuoteDetails, providerID string) model.SendResult {
	log := zap.L().With(zap.String("provider_id", providerID), zap.String("quote_id", quote.QuoteID))

	if quote.ClientID == "" {
		log.Info("matching: send quote without client")
		m.sent(outcomeNeedsLogin)
		return model.SendResult{Message: MsgLoginRequired, RequiresLogin: true}
	}
	if quote.QuoteID == "" {
		m.sent(outcomeMissingID)
		return model.SendResult{Message: MsgMissingQuoteID, RequiresLogin: true}
	}

	if err := m.store.AddQuoteProvider(ctx, quote.QuoteID, providerID, model.QuoteProviderPending); err != nil {
		log.Error("matching: send quote", zap.Error(err))
		m.sent(outcomeSendFailed)
		return model.SendResult{Message: MsgSendFailed}
	}

	log.Info("matching: quote sent", zap.String("client_id", quote.ClientID))
	m.sent(outcomeSendSuccess)
	return model.SendResult{Success: true, Message: MsgQuoteSent, QuoteID: quote.QuoteID}
}

func (m *Matcher) sent(outcome string) {
	if m.onSend != nil {
		m.onSend(outcome)
	}
}
