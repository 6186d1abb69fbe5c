package polls

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livepoll-server/internal/core"
	"github.com/vovakirdan/livepoll-server/internal/store"
	"github.com/vovakirdan/livepoll-server/internal/store/sqlite"
)

type recordingBroadcaster struct {
	mu      sync.Mutex
	created []*core.PollSummary
	deleted []int64
}

func (b *recordingBroadcaster) BroadcastPollCreated(p *core.PollSummary) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, p)
	return 1
}

func (b *recordingBroadcaster) BroadcastPollDeleted(id int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, id)
	return 1
}

func newTestService(t *testing.T) (*Service, *recordingBroadcaster, *store.User) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	user, err := st.CreateUser(context.Background(), "Bob", "bob@example.com", "hash")
	require.NoError(t, err)

	bc := &recordingBroadcaster{}
	return New(st, bc, nil), bc, user
}

func TestCreateAnnouncesPoll(t *testing.T) {
	svc, bc, user := newTestService(t)

	poll, err := svc.Create(context.Background(), CreateInput{
		CreatorID:   user.ID,
		Question:    "  Lunch?  ",
		IsPublished: true,
		Options:     []string{"pizza", " ", "sushi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lunch?", poll.Question)
	require.Len(t, poll.Options, 2)

	require.Len(t, bc.created, 1)
	summary := bc.created[0]
	assert.Equal(t, poll.ID, summary.ID)
	assert.Equal(t, core.Creator{ID: user.ID, Name: "Bob"}, summary.Creator)
	assert.True(t, summary.IsPublished)
	assert.Equal(t, "pizza", summary.Options[0].Text)
	assert.Zero(t, summary.Options[0].Votes)
}

func TestCreateValidation(t *testing.T) {
	svc, bc, user := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{CreatorID: user.ID, Question: "Q?", Options: []string{"only"}})
	assert.ErrorIs(t, err, ErrTooFewOptions)

	_, err = svc.Create(ctx, CreateInput{CreatorID: user.ID, Question: " ", Options: []string{"a", "b"}})
	assert.ErrorIs(t, err, ErrInvalidQuestion)

	_, err = svc.Create(ctx, CreateInput{CreatorID: user.ID + 50, Question: "Q?", Options: []string{"a", "b"}})
	assert.ErrorIs(t, err, ErrCreatorNotFound)

	assert.Empty(t, bc.created)
}

func TestGetAndList(t *testing.T) {
	svc, _, user := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateInput{CreatorID: user.ID, Question: "One?", Options: []string{"a", "b"}})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateInput{CreatorID: user.ID, Question: "Two?", Options: []string{"c", "d"}})
	require.NoError(t, err)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "One?", got.Question)

	_, err = svc.Get(ctx, second.ID+10)
	assert.ErrorIs(t, err, ErrPollNotFound)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
}

func TestDeleteAnnouncesAndForgets(t *testing.T) {
	svc, bc, user := newTestService(t)
	ctx := context.Background()

	poll, err := svc.Create(ctx, CreateInput{CreatorID: user.ID, Question: "Gone?", Options: []string{"a", "b"}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, poll.ID))
	assert.Equal(t, []int64{poll.ID}, bc.deleted)

	assert.ErrorIs(t, svc.Delete(ctx, poll.ID), ErrPollNotFound)
	assert.Len(t, bc.deleted, 1)
}

func TestDeleteAsRequiresCreator(t *testing.T) {
	svc, bc, user := newTestService(t)
	ctx := context.Background()

	poll, err := svc.Create(ctx, CreateInput{CreatorID: user.ID, Question: "Mine?", Options: []string{"a", "b"}})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteAs(ctx, poll.ID, user.ID+1), ErrNotPollCreator)
	assert.Empty(t, bc.deleted)
	_, err = svc.Get(ctx, poll.ID)
	require.NoError(t, err, "refused delete keeps the poll")

	require.NoError(t, svc.DeleteAs(ctx, poll.ID, user.ID))
	assert.Equal(t, []int64{poll.ID}, bc.deleted)
	assert.ErrorIs(t, svc.DeleteAs(ctx, poll.ID, user.ID), ErrPollNotFound)
}

func TestDeleteDropsRoomOnHub(t *testing.T) {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "Bob", "bob@example.com", "hash")
	require.NoError(t, err)

	hub := core.NewHub(nil, nil)
	svc := New(st, hub, nil)

	poll, err := svc.Create(ctx, CreateInput{CreatorID: user.ID, Question: "Room?", Options: []string{"a", "b"}})
	require.NoError(t, err)

	c := core.NewClient("c1", 8)
	sess, err := hub.Connect(c)
	require.NoError(t, err)
	require.NoError(t, sess.Handle(&core.Command{Kind: core.CommandJoinPoll, Poll: core.RoomID(poll.ID)}))
	require.Len(t, hub.Rooms().MembersOf(core.RoomID(poll.ID)), 1)

	require.NoError(t, svc.Delete(ctx, poll.ID))
	assert.Empty(t, hub.Rooms().MembersOf(core.RoomID(poll.ID)))

	var kinds []core.EventKind
	for len(c.Events) > 0 {
		kinds = append(kinds, (<-c.Events).Kind)
	}
	assert.Contains(t, kinds, core.EventPollDeleted)
}
