package service

import (
	"context"
	"strings"
	"testing"

	"confide/internal/events"
	"confide/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateConversationCanonicalizesPair(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestChatService(db, nil, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")

	fromAlice, err := svc.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	// The reverse direction resolves to the same row.
	fromBob, err := svc.GetOrCreateConversation(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, fromAlice.ID, fromBob.ID)

	var total int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&total).Error)
	assert.Equal(t, int64(1), total)

	assert.Less(t, fromAlice.Participant1ID, fromAlice.Participant2ID)
}

func TestGetOrCreateConversationValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestChatService(db, nil, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")

	_, err := svc.GetOrCreateConversation(ctx, alice.ID, alice.ID)
	assertValidationError(t, err)

	_, err = svc.GetOrCreateConversation(ctx, alice.ID, 999)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "NOT_FOUND"))
}

func TestSendMessageAnnouncesAndCheckpoints(t *testing.T) {
	db := setupTestDB(t)
	cp := &recordingCheckpointer{}
	an := &recordingAnnouncer{}
	svc := newTestChatService(db, cp, an)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")
	conv, err := svc.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, alice.ID, conv.ID, "hello bob")
	require.NoError(t, err)
	assert.False(t, msg.IsRead)

	got := an.Events()
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeNewMessage, got[0].Type)
	assert.Equal(t, conv.ID, got[0].Data.ConversationID)
	assert.Equal(t, msg.ID, got[0].Data.MessageID)
	assert.Equal(t, alice.ID, got[0].Data.SenderID)

	// One checkpoint for the conversation, one for the message.
	assert.Equal(t, 2, cp.Count())
}

func TestSendMessageValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestChatService(db, nil, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")
	carol := seedServiceUser(t, db, "carol")
	conv, err := svc.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, alice.ID, conv.ID, "   ")
	assertValidationError(t, err)

	_, err = svc.SendMessage(ctx, alice.ID, conv.ID, strings.Repeat("x", maxMessageLength+1))
	assertValidationError(t, err)

	// Non-participants cannot write into the conversation.
	_, err = svc.SendMessage(ctx, carol.ID, conv.ID, "let me in")
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "UNAUTHORIZED"))

	_, err = svc.SendMessage(ctx, alice.ID, 999, "hi")
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "NOT_FOUND"))
}

func TestMarkMessagesAsReadAnnouncesOnlyWhenChanged(t *testing.T) {
	db := setupTestDB(t)
	an := &recordingAnnouncer{}
	svc := newTestChatService(db, nil, an)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")
	conv, err := svc.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, alice.ID, conv.ID, "one")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, alice.ID, conv.ID, "two")
	require.NoError(t, err)

	before := len(an.Events())

	changed, err := svc.MarkMessagesAsRead(ctx, bob.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	got := an.Events()
	require.Len(t, got, before+1)
	assert.Equal(t, events.TypeMessagesRead, got[len(got)-1].Type)

	// Nothing left to flip; the second call must stay silent.
	changed, err = svc.MarkMessagesAsRead(ctx, bob.ID, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Len(t, an.Events(), before+1)
}

func TestUnreadCountDerivedFromMessages(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestChatService(db, nil, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")
	carol := seedServiceUser(t, db, "carol")

	convAB, err := svc.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	convAC, err := svc.GetOrCreateConversation(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, bob.ID, convAB.ID, "from bob")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, carol.ID, convAC.ID, "from carol")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, alice.ID, convAB.ID, "own message does not count")
	require.NoError(t, err)

	unread, err := svc.GetUnreadMessageCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	_, err = svc.MarkMessagesAsRead(ctx, alice.ID, convAB.ID)
	require.NoError(t, err)

	unread, err = svc.GetUnreadMessageCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestGetConversationMessagesRequiresParticipant(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestChatService(db, nil, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")
	carol := seedServiceUser(t, db, "carol")
	conv, err := svc.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, alice.ID, conv.ID, "hi")
	require.NoError(t, err)

	msgs, err := svc.GetConversationMessages(ctx, bob.ID, conv.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = svc.GetConversationMessages(ctx, carol.ID, conv.ID, 50, 0)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "UNAUTHORIZED"))
}

func TestGetUserConversationsSummaries(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestChatService(db, nil, nil)
	ctx := context.Background()

	alice := seedServiceUser(t, db, "alice")
	bob := seedServiceUser(t, db, "bob")
	conv, err := svc.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, bob.ID, conv.ID, "latest")
	require.NoError(t, err)

	convs, err := svc.GetUserConversations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "latest", convs[0].LastMessageContent)
	assert.Equal(t, 1, convs[0].UnreadCount)
	assert.Equal(t, bob.ID, convs[0].Other(alice.ID))
}
