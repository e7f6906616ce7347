// Package moderation records audit entries for moderation-relevant actions
// and fans them out to the people who oversee the affected scope.
package moderation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/models"
	"civic-realtime/internal/notification"
	"civic-realtime/internal/repository"
	"civic-realtime/internal/websocket"

	"github.com/samber/lo"
)

type Action string

const (
	ActionDeletePost       Action = "delete_post"
	ActionDeleteComment    Action = "delete_comment"
	ActionReportPost       Action = "report_post"
	ActionApproveCommunity Action = "approve_community"
	ActionRejectCommunity  Action = "reject_community"
	ActionApproveMember    Action = "approve_member"
	ActionRejectMember     Action = "reject_member"
	ActionRemoveMember     Action = "remove_member"
	ActionWarnUser         Action = "warn_user"
	ActionBanUser          Action = "ban_user"
)

var actions = []Action{
	ActionDeletePost, ActionDeleteComment, ActionReportPost,
	ActionApproveCommunity, ActionRejectCommunity,
	ActionApproveMember, ActionRejectMember, ActionRemoveMember,
	ActionWarnUser, ActionBanUser,
}

func (a Action) Valid() bool { return lo.Contains(actions, a) }

// Entry is the input to Record. A nil CommunityID is a platform-level
// action.
type Entry struct {
	ActorID     string
	Action      Action
	TargetID    string
	CommunityID *string
	Reason      string
}

// LogCreated is the moderation:log:created payload.
type LogCreated struct {
	LogID       string    `json:"logId"`
	CommunityID *string   `json:"communityId"`
	ModeratorID string    `json:"moderatorId"`
	Action      string    `json:"action"`
	TargetID    string    `json:"targetId"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AdminDirectory lists who oversees a scope.
type AdminDirectory interface {
	CommunityAdminIDs(ctx context.Context, communityID string) ([]string, error)
	PlatformAdminIDs(ctx context.Context) ([]string, error)
}

// Badges is the notification side the pipeline drives.
type Badges interface {
	Record(ctx context.Context, n notification.Notice) (*models.Notification, error)
	PushBadges(ctx context.Context, userIDs ...string) int
}

type Pipeline struct {
	logs   repository.ModerationLogRepository
	admins AdminDirectory
	badges Badges
	fanout websocket.Fanout
	log    *slog.Logger
}

func NewPipeline(logs repository.ModerationLogRepository, admins AdminDirectory, badges Badges, fanout websocket.Fanout, log *slog.Logger) *Pipeline {
	return &Pipeline{logs: logs, admins: admins, badges: badges, fanout: fanout, log: log}
}

func validate(e *Entry) error {
	if !models.IsUUID(e.ActorID) {
		return apperror.Invalid("invalid moderatorId")
	}
	if !e.Action.Valid() {
		return apperror.Invalidf("unknown moderation action %q", e.Action)
	}
	e.TargetID = strings.TrimSpace(e.TargetID)
	if e.TargetID == "" || len(e.TargetID) > 64 {
		return apperror.Invalid("invalid targetId")
	}
	if e.CommunityID != nil && *e.CommunityID == "" {
		e.CommunityID = nil
	}
	if e.CommunityID != nil {
		if !models.IsUUID(*e.CommunityID) {
			return apperror.Invalid("invalid communityId")
		}
		if !models.IsUUID(e.TargetID) {
			return apperror.Invalid("invalid targetId")
		}
	}
	return nil
}

// Record validates and persists e, then announces it. Nothing is written
// when validation fails. It needs no request-scoped state, so internal
// callers may pass any context.
func (p *Pipeline) Record(ctx context.Context, e Entry) (*models.ModerationLog, error) {
	if err := validate(&e); err != nil {
		return nil, err
	}

	entry := &models.ModerationLog{
		CommunityID: e.CommunityID,
		ModeratorID: e.ActorID,
		Action:      string(e.Action),
		TargetID:    e.TargetID,
		Reason:      e.Reason,
	}
	if err := p.logs.Create(ctx, entry); err != nil {
		return nil, err
	}

	p.announce(ctx, entry)
	return entry, nil
}

// RecordBestEffort is for audit writes that ride along another action. A
// failure is logged and never reaches the caller, and cancellation of the
// caller's context does not abort the write.
func (p *Pipeline) RecordBestEffort(ctx context.Context, e Entry) {
	if _, err := p.Record(context.WithoutCancel(ctx), e); err != nil {
		p.log.Warn("Moderation log write failed", "action", e.Action, "actorID", e.ActorID, "targetID", e.TargetID, "error", err)
	}
}

func (p *Pipeline) announce(ctx context.Context, entry *models.ModerationLog) {
	room := websocket.AdminDashboardRoom()
	if entry.CommunityID != nil {
		room = websocket.CommunityRoom(*entry.CommunityID)
	}
	p.fanout.Dispatch(ctx, websocket.Event{
		Name: websocket.EventModerationLogCreated,
		Payload: LogCreated{
			LogID:       entry.ID,
			CommunityID: entry.CommunityID,
			ModeratorID: entry.ModeratorID,
			Action:      entry.Action,
			TargetID:    entry.TargetID,
			Reason:      entry.Reason,
			CreatedAt:   entry.CreatedAt,
		},
		Audience: websocket.ToRoom(room),
	})

	recipients, err := p.overseers(ctx, entry.CommunityID)
	if err != nil {
		p.log.Error("Failed to resolve moderation badge recipients", "logID", entry.ID, "error", err)
		return
	}
	for _, id := range recipients {
		if _, err := p.badges.Record(ctx, notification.Notice{
			RecipientID: id,
			ActorID:     entry.ModeratorID,
			Type:        notification.TypeModerationLog,
			EntityID:    entry.ID,
		}); err != nil {
			p.log.Error("Failed to store moderation notification", "logID", entry.ID, "userID", id, "error", err)
		}
	}
	p.badges.PushBadges(ctx, recipients...)
}

// overseers is owners and moderators of the community, or every platform
// admin for global entries, each user once.
func (p *Pipeline) overseers(ctx context.Context, communityID *string) ([]string, error) {
	var (
		ids []string
		err error
	)
	if communityID != nil {
		ids, err = p.admins.CommunityAdminIDs(ctx, *communityID)
	} else {
		ids, err = p.admins.PlatformAdminIDs(ctx)
	}
	if err != nil {
		return nil, err
	}
	return lo.Uniq(ids), nil
}

// Directory adapts the repositories to AdminDirectory.
type Directory struct {
	Communities repository.CommunityRepository
	Users       repository.UserRepository
}

func (d Directory) CommunityAdminIDs(ctx context.Context, communityID string) ([]string, error) {
	return d.Communities.AdminIDs(ctx, communityID)
}

func (d Directory) PlatformAdminIDs(ctx context.Context) ([]string, error) {
	return d.Users.AdminIDs(ctx)
}

// List returns recent entries for a scope, newest first.
func (p *Pipeline) List(ctx context.Context, communityID *string, limit int) ([]models.ModerationLog, error) {
	return p.logs.List(ctx, communityID, limit)
}
