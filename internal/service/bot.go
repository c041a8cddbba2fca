package service

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/signal-command-bot/internal/biz/domain"
	"github.com/anthropics/signal-command-bot/internal/biz/repo"
	"github.com/anthropics/signal-command-bot/internal/biz/usecase"
	"github.com/anthropics/signal-command-bot/internal/infra/signal"
)

// BotService consumes inbound envelopes, records history and reactions,
// and runs command messages through the dispatcher.
type BotService struct {
	dispatcher   *usecase.Dispatcher
	signalRepo   repo.SignalRepo
	messageRepo  repo.MessageRepo
	reactionRepo repo.ReactionRepo
	errorLog     repo.ErrorLogRepo
}

// NewBotService creates the bot service
func NewBotService(
	dispatcher *usecase.Dispatcher,
	signalRepo repo.SignalRepo,
	messageRepo repo.MessageRepo,
	reactionRepo repo.ReactionRepo,
	errorLog repo.ErrorLogRepo,
) *BotService {
	return &BotService{
		dispatcher:   dispatcher,
		signalRepo:   signalRepo,
		messageRepo:  messageRepo,
		reactionRepo: reactionRepo,
		errorLog:     errorLog,
	}
}

// HandleEnvelope processes one data-message envelope
func (s *BotService) HandleEnvelope(env *signal.Envelope) {
	msg := toInboundMessage(env)
	if msg == nil {
		return
	}

	ctx := context.Background()

	if err := s.messageRepo.Save(ctx, msg); err != nil {
		fmt.Printf("[Bot] Failed to record message: %v\n", err)
	}

	reply, handled := s.dispatcher.Dispatch(ctx, msg)
	if !handled || reply == "" {
		return
	}
	s.sendReply(ctx, msg, reply)
}

// HandleReaction processes one reaction envelope
func (s *BotService) HandleReaction(env *signal.Envelope) {
	if env.Reaction == nil {
		return
	}

	reaction := &domain.Reaction{
		Emoji:           env.Reaction.Emoji,
		Remove:          env.Reaction.Remove,
		SenderID:        senderID(env),
		TargetAuthor:    env.Reaction.TargetAuthor,
		TargetTimestamp: time.UnixMilli(env.Reaction.TargetTimestamp),
	}

	ctx := context.Background()
	if err := s.reactionRepo.Apply(ctx, reaction); err != nil {
		fmt.Printf("[Bot] Failed to record reaction: %v\n", err)
	}
}

// sendReply answers in the same context the triggering message arrived on
func (s *BotService) sendReply(ctx context.Context, msg *domain.InboundMessage, text string) {
	var confirmed bool
	var err error
	if msg.IsGroup() {
		confirmed, err = s.signalRepo.SendGroup(ctx, msg.GroupID, text)
	} else {
		confirmed, err = s.signalRepo.Send(ctx, msg.SenderID, text)
	}
	if err != nil {
		fmt.Printf("[Bot] Failed to send reply: %v\n", err)
		s.logSendFailure(msg, err)
		return
	}
	if !confirmed {
		fmt.Println("[Bot] Reply unconfirmed by daemon, assuming delivered")
	}
}

func (s *BotService) logSendFailure(msg *domain.InboundMessage, err error) {
	if s.errorLog == nil {
		return
	}
	rec := &repo.ErrorRecord{
		ErrorType:    "send_reply",
		ErrorMessage: err.Error(),
		Context:      fmt.Sprintf("sender=%s group=%s", msg.SenderID, msg.GroupID),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.errorLog.RecordError(ctx, rec)
	}()
}

// toInboundMessage normalizes an envelope into the domain representation
func toInboundMessage(env *signal.Envelope) *domain.InboundMessage {
	dm := env.DataMessage
	if dm == nil || dm.Message == "" {
		return nil
	}

	msg := &domain.InboundMessage{
		SenderID:     senderID(env),
		SenderNumber: env.SourceNumber,
		SenderName:   env.SourceName,
		Text:         dm.Message,
		Timestamp:    time.UnixMilli(env.Timestamp),
	}
	if msg.SenderName == "" {
		msg.SenderName = msg.SenderID
	}

	if dm.GroupInfo != nil {
		msg.GroupID = dm.GroupInfo.GroupID
		msg.GroupName = dm.GroupInfo.GroupName
	}
	if dm.Quote != nil {
		msg.QuotedText = dm.Quote.Text
	}
	for _, att := range dm.Attachments {
		msg.Attachments = append(msg.Attachments, att.Filename)
	}
	for _, mention := range dm.Mentions {
		id := mention.UUID
		if id == "" {
			id = mention.Number
		}
		msg.Mentions = append(msg.Mentions, id)
	}
	return msg
}

// senderID prefers the stable account UUID over the phone number
func senderID(env *signal.Envelope) string {
	if env.SourceUUID != "" {
		return env.SourceUUID
	}
	if env.Source != "" {
		return env.Source
	}
	return env.SourceNumber
}
