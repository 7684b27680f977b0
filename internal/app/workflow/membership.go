// Package workflow implements the group membership state machine and
// chat append path. It is the single write path for groups, members,
// join requests, and chat logs: handlers never touch those collections
// directly, so every authorization check and multi-document transition
// runs server-side.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/studycircle/studycircle/internal/app/store/catalogue"
	"github.com/studycircle/studycircle/internal/app/store/chat"
	"github.com/studycircle/studycircle/internal/app/store/groups"
	"github.com/studycircle/studycircle/internal/app/store/joinrequests"
	"github.com/studycircle/studycircle/internal/app/store/meetings"
	"github.com/studycircle/studycircle/internal/app/store/members"
	"github.com/studycircle/studycircle/internal/app/store/users"
	"github.com/studycircle/studycircle/internal/app/system/htmlsanitize"
	"github.com/studycircle/studycircle/internal/app/system/limits"
	"github.com/studycircle/studycircle/internal/app/system/txn"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Broadcaster pushes committed chat messages to live subscribers and
// tears down subscriptions when a group is deleted. Satisfied by
// feed.Hub.
type Broadcaster interface {
	Broadcast(msg models.ChatMessage)
	DropGroup(groupID primitive.ObjectID)
}

// Service runs membership transitions. Every transition that touches
// more than one document goes through txn.WithTransaction so the
// member document, the member_count/version update, any join-request
// resolution, and the system chat message land together.
type Service struct {
	client    *mongo.Client
	users     *userstore.Store
	groups    *groupstore.Store
	members   *memberstore.Store
	requests  *requeststore.Store
	chat      *chatstore.Store
	meetings  *meetingstore.Store
	catalogue *cataloguestore.Store
	feed      Broadcaster
	log       *zap.Logger
}

func New(client *mongo.Client, db *mongo.Database, feed Broadcaster, logger *zap.Logger) *Service {
	return &Service{
		client:    client,
		users:     userstore.New(db),
		groups:    groupstore.New(db),
		members:   memberstore.New(db),
		requests:  requeststore.New(db),
		chat:      chatstore.New(db),
		meetings:  meetingstore.New(db),
		catalogue: cataloguestore.New(db),
		feed:      feed,
		log:       logger,
	}
}

// Stores used by read-only handlers (group listings, chat history,
// calendar). Writes stay inside the service.
func (s *Service) Groups() *groupstore.Store        { return s.groups }
func (s *Service) Members() *memberstore.Store      { return s.members }
func (s *Service) Requests() *requeststore.Store    { return s.requests }
func (s *Service) Chat() *chatstore.Store           { return s.chat }
func (s *Service) Meetings() *meetingstore.Store    { return s.meetings }
func (s *Service) Catalogue() *cataloguestore.Store { return s.catalogue }

// CreateGroupInput carries the fields a user supplies when creating a
// group. Free-text fields are sanitized before storage.
type CreateGroupInput struct {
	Name        string
	ModuleCode  string
	Description string
	MaxMembers  int
	IsPrivate   bool

	Lat *float64
	Lng *float64

	MeetingDate     string // ISO date, optional
	MeetingTime     string
	Recurrence      string // daily|weekly|biweekly|monthly, optional
	RecurrenceEnd   string // ISO date, optional
	LocationDetails string
}

// CreateGroup allocates a group with its creator as the sole admin
// member. The group document, the membership document, and the opening
// system message commit together; the meeting series is generated
// afterwards and is allowed to fail without affecting the group.
func (s *Service) CreateGroup(ctx context.Context, ownerID primitive.ObjectID, in CreateGroupInput) (models.Group, error) {
	owner, err := s.lookupUser(ctx, ownerID)
	if err != nil {
		return models.Group{}, err
	}

	g, firstMeeting, seriesEnd, err := s.buildGroup(ctx, ownerID, in)
	if err != nil {
		return models.Group{}, err
	}

	var announce models.ChatMessage
	err = txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
		if _, err := s.groups.Insert(ctx, g); err != nil {
			return err
		}
		if err := s.members.Add(ctx, g.ID, ownerID, models.RoleAdmin, owner.Name); err != nil {
			return err
		}
		var err error
		announce, err = s.chat.AppendSystem(ctx, g.ID, fmt.Sprintf("%s created the group.", owner.Name))
		return err
	})
	if err != nil {
		return models.Group{}, err
	}
	s.feed.Broadcast(announce)
	s.log.Info("group created",
		zap.String("group_id", g.ID.Hex()),
		zap.String("module", g.ModuleCode),
		zap.Bool("private", g.IsPrivate))

	if !firstMeeting.IsZero() {
		series := buildMeetingSeries(g, firstMeeting, seriesEnd, time.Now().UTC())
		if _, err := s.meetings.InsertSeries(ctx, series); err != nil {
			// Calendar records are a convenience; the group stands
			// without them.
			s.log.Warn("meeting series not created",
				zap.String("group_id", g.ID.Hex()), zap.Error(err))
		}
	}
	return g, nil
}

// buildGroup validates the input and assembles the group document,
// returning the parsed first meeting date and series end (zero when no
// meeting was supplied).
func (s *Service) buildGroup(ctx context.Context, ownerID primitive.ObjectID, in CreateGroupInput) (models.Group, time.Time, time.Time, error) {
	var zero time.Time

	name := htmlsanitize.Plain(in.Name)
	if name == "" {
		return models.Group{}, zero, zero, invalid("name", "required")
	}
	desc := htmlsanitize.Plain(in.Description)
	if desc == "" {
		return models.Group{}, zero, zero, invalid("description", "required")
	}
	code := strings.ToUpper(strings.TrimSpace(in.ModuleCode))
	if code == "" {
		return models.Group{}, zero, zero, invalid("module_code", "required")
	}
	if ok, err := s.catalogue.ModuleExists(ctx, code); err != nil {
		return models.Group{}, zero, zero, err
	} else if !ok {
		return models.Group{}, zero, zero, invalid("module_code", "unknown module")
	}
	if in.MaxMembers < 2 {
		return models.Group{}, zero, zero, invalid("max_members", "must be at least 2")
	}
	if in.Recurrence != "" {
		if _, ok := recurrenceStep[in.Recurrence]; !ok {
			return models.Group{}, zero, zero, invalid("recurrence", "unknown pattern")
		}
	}

	var first, end time.Time
	if in.MeetingDate != "" {
		var err error
		first, err = parseMeetingDate(in.MeetingDate)
		if err != nil {
			return models.Group{}, zero, zero, invalid("meeting_date", "must be YYYY-MM-DD")
		}
		if in.RecurrenceEnd != "" {
			end, err = parseMeetingDate(in.RecurrenceEnd)
			if err != nil {
				return models.Group{}, zero, zero, invalid("recurrence_end", "must be YYYY-MM-DD")
			}
			if !end.After(first) {
				return models.Group{}, zero, zero, invalid("recurrence_end", "must be after the first meeting date")
			}
		}
	} else if in.Recurrence != "" {
		return models.Group{}, zero, zero, invalid("recurrence", "requires a meeting date")
	}

	now := time.Now().UTC()
	g := models.Group{
		ID:              primitive.NewObjectID(),
		Name:            name,
		ModuleCode:      code,
		Description:     desc,
		CreatedBy:       ownerID,
		MaxMembers:      in.MaxMembers,
		MemberCount:     1,
		IsPrivate:       in.IsPrivate,
		Version:         1,
		Lat:             in.Lat,
		Lng:             in.Lng,
		MeetingDate:     in.MeetingDate,
		MeetingTime:     strings.TrimSpace(in.MeetingTime),
		Recurrence:      in.Recurrence,
		LocationDetails: htmlsanitize.Plain(in.LocationDetails),
		LastActivity:    now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return g, first, end, nil
}

// JoinPublic adds the caller to a public group. The membership
// document, the guarded member_count increment, and the announcement
// commit together; ErrCapacity is reliable even for two joiners racing
// for the last seat.
func (s *Service) JoinPublic(ctx context.Context, groupID, userID primitive.ObjectID) error {
	g, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g.IsPrivate {
		return ErrPrivateGroup
	}
	if g.IsFull() {
		return ErrCapacity
	}
	if ok, err := s.members.Exists(ctx, groupID, userID); err != nil {
		return err
	} else if ok {
		return ErrAlreadyMember
	}
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return err
	}

	// The guarded increment runs first: without session support the
	// body executes without rollback, and a failed capacity check must
	// leave no membership document behind.
	var announce models.ChatMessage
	err = txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
		if err := s.incrementGuarded(ctx, groupID); err != nil {
			return err
		}
		if err := s.members.Add(ctx, groupID, userID, models.RoleMember, user.Name); err != nil {
			if errors.Is(err, memberstore.ErrDuplicateMember) {
				return ErrAlreadyMember
			}
			return err
		}
		var err error
		announce, err = s.chat.AppendSystem(ctx, groupID, fmt.Sprintf("%s joined the group.", user.Name))
		return err
	})
	if err != nil {
		return err
	}
	s.feed.Broadcast(announce)
	s.touchActivity(ctx, groupID)
	return nil
}

// RequestJoin files a pending join request against a private group and
// announces it in the group's log. No seat is reserved; capacity is
// re-checked when an admin accepts.
func (s *Service) RequestJoin(ctx context.Context, groupID, userID primitive.ObjectID, message string) (models.JoinRequest, error) {
	g, err := s.getGroup(ctx, groupID)
	if err != nil {
		return models.JoinRequest{}, err
	}
	if !g.IsPrivate {
		return models.JoinRequest{}, invalid("group", "is public; join it directly")
	}
	if g.IsFull() {
		return models.JoinRequest{}, ErrCapacity
	}
	if ok, err := s.members.Exists(ctx, groupID, userID); err != nil {
		return models.JoinRequest{}, err
	} else if ok {
		return models.JoinRequest{}, ErrAlreadyMember
	}
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return models.JoinRequest{}, err
	}

	message = htmlsanitize.Plain(message)
	if len(message) > limits.MaxJoinMessageLen {
		return models.JoinRequest{}, invalid("message", "too long")
	}

	var (
		req      models.JoinRequest
		announce models.ChatMessage
	)
	err = txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
		var err error
		req, err = s.requests.Create(ctx, groupID, userID, user.Name, message)
		if err != nil {
			if errors.Is(err, requeststore.ErrDuplicatePending) {
				return ErrDuplicatePending
			}
			return err
		}
		announce, err = s.chat.AppendSystem(ctx, groupID, fmt.Sprintf("%s asked to join the group.", user.Name))
		return err
	})
	if err != nil {
		return models.JoinRequest{}, err
	}
	s.feed.Broadcast(announce)
	return req, nil
}

// AcceptRequest admits a pending requester. Capacity is re-checked
// inside the transaction: a request made while a seat was free can
// still fail with ErrCapacity if the group filled in the meantime.
func (s *Service) AcceptRequest(ctx context.Context, groupID, requestID, callerID primitive.ObjectID) error {
	if err := s.requireAdmin(ctx, groupID, callerID); err != nil {
		return err
	}
	req, err := s.getRequest(ctx, groupID, requestID)
	if err != nil {
		return err
	}
	if req.Status != models.RequestPending {
		return ErrNotPending
	}

	// The capacity guard runs first: if the group filled while the
	// request sat open, nothing else is touched.
	var announce models.ChatMessage
	err = txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
		if err := s.incrementGuarded(ctx, groupID); err != nil {
			return err
		}
		if _, err := s.requests.Resolve(ctx, req.ID, models.RequestAccepted); err != nil {
			return mapRequestErr(err)
		}
		if err := s.members.Add(ctx, groupID, req.UserID, models.RoleMember, req.UserName); err != nil {
			if errors.Is(err, memberstore.ErrDuplicateMember) {
				return ErrAlreadyMember
			}
			return err
		}
		var err error
		announce, err = s.chat.AppendSystem(ctx, groupID, fmt.Sprintf("%s joined the group.", req.UserName))
		return err
	})
	if err != nil {
		return err
	}
	s.feed.Broadcast(announce)
	s.touchActivity(ctx, groupID)
	return nil
}

// DeclineRequest marks a pending request declined and records the
// decision in the group's log. No membership change.
func (s *Service) DeclineRequest(ctx context.Context, groupID, requestID, callerID primitive.ObjectID) error {
	if err := s.requireAdmin(ctx, groupID, callerID); err != nil {
		return err
	}
	req, err := s.getRequest(ctx, groupID, requestID)
	if err != nil {
		return err
	}
	if req.Status != models.RequestPending {
		return ErrNotPending
	}

	var announce models.ChatMessage
	err = txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
		if _, err := s.requests.Resolve(ctx, req.ID, models.RequestDeclined); err != nil {
			return mapRequestErr(err)
		}
		var err error
		announce, err = s.chat.AppendSystem(ctx, groupID, fmt.Sprintf("%s's request to join was declined.", req.UserName))
		return err
	})
	if err != nil {
		return err
	}
	s.feed.Broadcast(announce)
	return nil
}

// LeaveGroup removes the caller's membership. An admin may not leave
// while they are the group's only admin; they must promote someone or
// delete the group first.
func (s *Service) LeaveGroup(ctx context.Context, groupID, userID primitive.ObjectID) error {
	m, err := s.members.Get(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, memberstore.ErrNotMember) {
			return ErrNotFound
		}
		return err
	}
	if m.Role == models.RoleAdmin {
		admins, err := s.members.CountByGroup(ctx, groupID, models.RoleAdmin)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	var announce models.ChatMessage
	err = txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
		if err := s.members.Remove(ctx, groupID, userID); err != nil {
			if errors.Is(err, memberstore.ErrNotMember) {
				return ErrNotFound
			}
			return err
		}
		if err := s.groups.ApplyMembershipDelta(ctx, groupID, -1); err != nil {
			return mapGroupErr(err)
		}
		var err error
		announce, err = s.chat.AppendSystem(ctx, groupID, fmt.Sprintf("%s left the group.", m.UserName))
		return err
	})
	if err != nil {
		return err
	}
	s.feed.Broadcast(announce)
	return nil
}

// PromoteMember grants an existing member the admin role.
func (s *Service) PromoteMember(ctx context.Context, groupID, targetID, callerID primitive.ObjectID) error {
	if err := s.requireAdmin(ctx, groupID, callerID); err != nil {
		return err
	}
	target, err := s.members.Get(ctx, groupID, targetID)
	if err != nil {
		if errors.Is(err, memberstore.ErrNotMember) {
			return ErrNotFound
		}
		return err
	}
	if target.Role == models.RoleAdmin {
		return nil // already an admin, nothing to do
	}

	var announce models.ChatMessage
	err = txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
		if err := s.members.SetRole(ctx, groupID, targetID, models.RoleAdmin); err != nil {
			if errors.Is(err, memberstore.ErrNotMember) {
				return ErrNotFound
			}
			return err
		}
		var err error
		announce, err = s.chat.AppendSystem(ctx, groupID, fmt.Sprintf("%s is now an admin.", target.UserName))
		return err
	})
	if err != nil {
		return err
	}
	s.feed.Broadcast(announce)
	return nil
}

// DeleteGroup removes the group and everything under it: memberships,
// join requests, the chat log, and the meeting series. Irreversible.
// Live subscriptions to the group are closed after the delete commits.
func (s *Service) DeleteGroup(ctx context.Context, groupID, callerID primitive.ObjectID) error {
	if err := s.requireAdmin(ctx, groupID, callerID); err != nil {
		return err
	}

	err := txn.WithTransaction(ctx, s.client, s.log, func(ctx context.Context) error {
		deleted, err := s.groups.Delete(ctx, groupID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return ErrNotFound
		}
		if _, err := s.members.DeleteByGroup(ctx, groupID); err != nil {
			return err
		}
		if _, err := s.requests.DeleteByGroup(ctx, groupID); err != nil {
			return err
		}
		if _, err := s.chat.DeleteByGroup(ctx, groupID); err != nil {
			return err
		}
		_, err = s.meetings.DeleteByGroup(ctx, groupID)
		return err
	})
	if err != nil {
		return err
	}
	s.feed.DropGroup(groupID)
	s.log.Info("group deleted", zap.String("group_id", groupID.Hex()))
	return nil
}

// PostMessage appends a user chat message. Membership is re-verified
// with a fresh point read on every post, so a user removed mid-session
// cannot keep writing. The group's last_activity is updated separately,
// best-effort.
func (s *Service) PostMessage(ctx context.Context, groupID, userID primitive.ObjectID, text string) (models.ChatMessage, error) {
	m, err := s.members.Get(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, memberstore.ErrNotMember) {
			return models.ChatMessage{}, ErrAuthorization
		}
		return models.ChatMessage{}, err
	}

	text = htmlsanitize.Plain(text)
	if text == "" {
		return models.ChatMessage{}, invalid("text", "required")
	}
	if len(text) > limits.MaxChatMessageLen {
		return models.ChatMessage{}, invalid("text", "too long")
	}

	msg, err := s.chat.AppendUser(ctx, groupID, userID, m.UserName, text)
	if err != nil {
		return models.ChatMessage{}, err
	}
	s.feed.Broadcast(msg)
	s.touchActivity(ctx, groupID)
	return msg, nil
}

// IsAdmin reports whether userID holds the admin role in the group.
func (s *Service) IsAdmin(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	m, err := s.members.Get(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, memberstore.ErrNotMember) {
			return false, nil
		}
		return false, err
	}
	return m.Role == models.RoleAdmin, nil
}

// requireAdmin authorizes admin-only transitions against the
// group_members collection, never against caller-supplied state.
func (s *Service) requireAdmin(ctx context.Context, groupID, callerID primitive.ObjectID) error {
	ok, err := s.IsAdmin(ctx, groupID, callerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthorization
	}
	return nil
}

func (s *Service) getGroup(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return models.Group{}, mapGroupErr(err)
	}
	return g, nil
}

// getRequest loads a request and checks it belongs to the group the
// caller was authorized against.
func (s *Service) getRequest(ctx context.Context, groupID, requestID primitive.ObjectID) (models.JoinRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return models.JoinRequest{}, mapRequestErr(err)
	}
	if req.GroupID != groupID {
		return models.JoinRequest{}, ErrNotFound
	}
	return req, nil
}

func (s *Service) lookupUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Service) incrementGuarded(ctx context.Context, groupID primitive.ObjectID) error {
	if err := s.groups.IncrementMemberGuarded(ctx, groupID); err != nil {
		return mapGroupErr(err)
	}
	return nil
}

func (s *Service) touchActivity(ctx context.Context, groupID primitive.ObjectID) {
	if err := s.groups.TouchActivity(ctx, groupID); err != nil {
		s.log.Warn("last_activity not updated",
			zap.String("group_id", groupID.Hex()), zap.Error(err))
	}
}

func mapGroupErr(err error) error {
	switch {
	case errors.Is(err, groupstore.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, groupstore.ErrFull):
		return ErrCapacity
	default:
		return err
	}
}

func mapRequestErr(err error) error {
	switch {
	case errors.Is(err, requeststore.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, requeststore.ErrNotPending):
		return ErrNotPending
	default:
		return err
	}
}
