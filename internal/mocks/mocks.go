package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type AccountRepositoryMock struct {
	mock.Mock
}

func (m *AccountRepositoryMock) Create(ctx context.Context, email, passwordHash, username string) (models.Account, error) {
	args := m.Called(ctx, email, passwordHash, username)
	var account models.Account
	if val := args.Get(0); val != nil {
		account = val.(models.Account)
	}
	return account, args.Error(1)
}

func (m *AccountRepositoryMock) GetByID(ctx context.Context, id int64) (models.Account, error) {
	args := m.Called(ctx, id)
	var account models.Account
	if val := args.Get(0); val != nil {
		account = val.(models.Account)
	}
	return account, args.Error(1)
}

func (m *AccountRepositoryMock) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	args := m.Called(ctx, email)
	var account models.Account
	if val := args.Get(0); val != nil {
		account = val.(models.Account)
	}
	return account, args.Error(1)
}

func (m *AccountRepositoryMock) GetRefs(ctx context.Context, ids []int64) ([]models.AccountRef, error) {
	args := m.Called(ctx, ids)
	var refs []models.AccountRef
	if val := args.Get(0); val != nil {
		refs = val.([]models.AccountRef)
	}
	return refs, args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) CreateDirect(ctx context.Context, a, b int64) (models.Conversation, bool, error) {
	args := m.Called(ctx, a, b)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Bool(1), args.Error(2)
}

func (m *ConversationRepositoryMock) CreateGroup(ctx context.Context, creatorID int64, memberIDs []int64, name *string) (models.Conversation, error) {
	args := m.Called(ctx, creatorID, memberIDs, name)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, id int64) (models.Conversation, error) {
	args := m.Called(ctx, id)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForAccount(ctx context.Context, accountID int64) ([]models.Conversation, error) {
	args := m.Called(ctx, accountID)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

func (m *ConversationRepositoryMock) IsMember(ctx context.Context, conversationID, accountID int64) (bool, error) {
	args := m.Called(ctx, conversationID, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) MemberIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	args := m.Called(ctx, conversationID)
	var ids []int64
	if val := args.Get(0); val != nil {
		ids = val.([]int64)
	}
	return ids, args.Error(1)
}

func (m *ConversationRepositoryMock) ListMemberships(ctx context.Context, conversationID int64) ([]models.Membership, error) {
	args := m.Called(ctx, conversationID)
	var members []models.Membership
	if val := args.Get(0); val != nil {
		members = val.([]models.Membership)
	}
	return members, args.Error(1)
}

func (m *ConversationRepositoryMock) GetMembership(ctx context.Context, conversationID, accountID int64) (models.Membership, error) {
	args := m.Called(ctx, conversationID, accountID)
	var member models.Membership
	if val := args.Get(0); val != nil {
		member = val.(models.Membership)
	}
	return member, args.Error(1)
}

func (m *ConversationRepositoryMock) AddMembers(ctx context.Context, conversationID int64, memberIDs []int64) ([]int64, error) {
	args := m.Called(ctx, conversationID, memberIDs)
	var added []int64
	if val := args.Get(0); val != nil {
		added = val.([]int64)
	}
	return added, args.Error(1)
}

func (m *ConversationRepositoryMock) Leave(ctx context.Context, conversationID, accountID int64) error {
	args := m.Called(ctx, conversationID, accountID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) SetCustomName(ctx context.Context, conversationID, accountID int64, name string) error {
	args := m.Called(ctx, conversationID, accountID, name)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) MarkRead(ctx context.Context, conversationID, accountID, messageID int64) error {
	args := m.Called(ctx, conversationID, accountID, messageID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) UpdateSummary(ctx context.Context, conversationID int64, text string, at time.Time) error {
	args := m.Called(ctx, conversationID, text, at)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, conversationID, senderID int64, senderName, content string, attachment *string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, senderName, content, attachment)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) List(ctx context.Context, conversationID int64, limit int, beforeID *int64) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, limit, beforeID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ListRecent(ctx context.Context, conversationID int64, limit int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) LatestID(ctx context.Context, conversationID int64) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) CountUnread(ctx context.Context, conversationID, accountID int64, afterID *int64) (int, error) {
	args := m.Called(ctx, conversationID, accountID, afterID)
	return args.Int(0), args.Error(1)
}

type FriendRepositoryMock struct {
	mock.Mock
}

func (m *FriendRepositoryMock) Create(ctx context.Context, requesterID, recipientID int64) (models.FriendEdge, error) {
	args := m.Called(ctx, requesterID, recipientID)
	var edge models.FriendEdge
	if val := args.Get(0); val != nil {
		edge = val.(models.FriendEdge)
	}
	return edge, args.Error(1)
}

func (m *FriendRepositoryMock) Get(ctx context.Context, id int64) (models.FriendEdge, error) {
	args := m.Called(ctx, id)
	var edge models.FriendEdge
	if val := args.Get(0); val != nil {
		edge = val.(models.FriendEdge)
	}
	return edge, args.Error(1)
}

func (m *FriendRepositoryMock) FindBetween(ctx context.Context, a, b int64) (models.FriendEdge, error) {
	args := m.Called(ctx, a, b)
	var edge models.FriendEdge
	if val := args.Get(0); val != nil {
		edge = val.(models.FriendEdge)
	}
	return edge, args.Error(1)
}

func (m *FriendRepositoryMock) SetStatus(ctx context.Context, id int64, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *FriendRepositoryMock) ListForAccount(ctx context.Context, accountID int64, status string) ([]models.FriendEdge, error) {
	args := m.Called(ctx, accountID, status)
	var edges []models.FriendEdge
	if val := args.Get(0); val != nil {
		edges = val.([]models.FriendEdge)
	}
	return edges, args.Error(1)
}

var _ repositories.AccountRepository = (*AccountRepositoryMock)(nil)
var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.FriendRepository = (*FriendRepositoryMock)(nil)
