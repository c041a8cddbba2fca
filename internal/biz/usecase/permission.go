package usecase

import (
	"strings"

	"github.com/anthropics/signal-command-bot/internal/biz/domain"
)

// RoleResolver resolves admin/moderator roles from configured identifier
// lists. Entries may be account UUIDs or phone numbers; lookup prefers
// the stable UUID and falls back to the number.
type RoleResolver struct {
	admins     map[string]bool
	moderators map[string]bool
}

// NewRoleResolver builds a resolver from the configured lists
func NewRoleResolver(adminIDs, moderatorIDs []string) *RoleResolver {
	return &RoleResolver{
		admins:     toSet(adminIDs),
		moderators: toSet(moderatorIDs),
	}
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			set[strings.ToLower(id)] = true
		}
	}
	return set
}

// Resolve fills the role flags for a caller
func (r *RoleResolver) Resolve(msg *domain.InboundMessage) domain.CallerContext {
	caller := domain.CallerContext{
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		GroupID:    msg.GroupID,
	}
	caller.IsAdmin = r.member(r.admins, msg)
	caller.IsModerator = caller.IsAdmin || r.member(r.moderators, msg)
	return caller
}

func (r *RoleResolver) member(set map[string]bool, msg *domain.InboundMessage) bool {
	if msg.SenderID != "" && set[strings.ToLower(msg.SenderID)] {
		return true
	}
	return msg.SenderNumber != "" && set[strings.ToLower(msg.SenderNumber)]
}
