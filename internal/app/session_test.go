package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votaya-server/internal/domain"
)

func newTestSession(t *testing.T) (*RoomSession, *mockConn) {
	t.Helper()

	creator := newMockConn("c1", domain.Identity{ID: "u1", Name: "Ana"})
	room := domain.NewRoom("ABC234", "Lunch?", []string{"Pizza", "Sushi"}, creator.Identity())
	session := NewRoomSession(room, testLogger())
	session.AddCreator(creator)

	return session, creator
}

func TestSession_Join_BroadcastsToAllIncludingJoiner(t *testing.T) {
	session, creator := newTestSession(t)

	joiner := newMockConn("c2", domain.Identity{ID: "u2", Name: "Ben"})
	state := session.Join(joiner)

	assert.True(t, state.IsOpen)
	assert.Zero(t, state.TotalVoters)
	assert.Equal(t, 2, session.MemberCount())

	for _, conn := range []*mockConn{creator, joiner} {
		joined := framesOf[domain.UserJoinedFrame](conn.sent())
		require.Len(t, joined, 1, "conn %s", conn.ID())
		assert.Equal(t, "Ben", joined[0].UserName)
		assert.Equal(t, 2, joined[0].ClientCount)
	}
}

func TestSession_Join_Idempotent(t *testing.T) {
	session, creator := newTestSession(t)

	joiner := newMockConn("c2", domain.Identity{ID: "u2", Name: "Ben"})
	session.Join(joiner)
	session.Join(joiner)

	assert.Equal(t, 2, session.MemberCount())
	assert.Len(t, framesOf[domain.UserJoinedFrame](creator.sent()), 1)
}

func TestSession_CastVote_BroadcastsCommittedTallies(t *testing.T) {
	session, creator := newTestSession(t)

	voter := newMockConn("c2", domain.Identity{ID: "u2", Name: "Ben"})
	session.Join(voter)

	require.NoError(t, session.CastVote(voter, 1))

	for _, conn := range []*mockConn{creator, voter} {
		updates := framesOf[domain.VoteUpdateFrame](conn.sent())
		require.Len(t, updates, 1, "conn %s", conn.ID())
		assert.Equal(t, 1, updates[0].TotalVoters)
		assert.Equal(t, 0, updates[0].Options[0].Votes)
		assert.Equal(t, 1, updates[0].Options[1].Votes)
	}
}

func TestSession_CastVote_RejectionsProduceNoBroadcast(t *testing.T) {
	session, creator := newTestSession(t)

	voter := newMockConn("c2", domain.Identity{ID: "u2", Name: "Ben"})
	session.Join(voter)
	require.NoError(t, session.CastVote(voter, 0))

	tests := []struct {
		name    string
		conn    *mockConn
		index   int
		wantErr error
	}{
		{"already voted same index", voter, 0, domain.ErrAlreadyVoted},
		{"already voted other index", voter, 1, domain.ErrAlreadyVoted},
		{"invalid option", creator, 7, domain.ErrInvalidOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(framesOf[domain.VoteUpdateFrame](creator.sent()))
			assert.ErrorIs(t, session.CastVote(tt.conn, tt.index), tt.wantErr)
			assert.Len(t, framesOf[domain.VoteUpdateFrame](creator.sent()), before)
		})
	}
}

func TestSession_ConcurrentVotes(t *testing.T) {
	session, creator := newTestSession(t)

	const n = 50
	conns := make([]*mockConn, n)
	for i := range conns {
		conns[i] = newMockConn(
			fmt.Sprintf("conn-%d", i),
			domain.Identity{ID: fmt.Sprintf("user-%d", i), Name: fmt.Sprintf("User %d", i)},
		)
		session.Join(conns[i])
	}

	var wg sync.WaitGroup
	for i, conn := range conns {
		wg.Add(1)
		go func(conn *mockConn, idx int) {
			defer wg.Done()
			assert.NoError(t, session.CastVote(conn, idx%2))
		}(conn, i)
	}
	wg.Wait()

	state := session.State()
	assert.Equal(t, n, state.TotalVoters)
	assert.Equal(t, n, state.Options[0].Votes+state.Options[1].Votes)

	// Each member observes per-option monotonically non-decreasing tallies
	for _, conn := range append(conns, creator) {
		last := make(map[int]int)
		for _, update := range framesOf[domain.VoteUpdateFrame](conn.sent()) {
			for _, opt := range update.Options {
				assert.GreaterOrEqual(t, opt.Votes, last[opt.Index])
				last[opt.Index] = opt.Votes
			}
		}
	}
}

func TestSession_Close(t *testing.T) {
	session, creator := newTestSession(t)

	member := newMockConn("c2", domain.Identity{ID: "u2", Name: "Ben"})
	session.Join(member)
	require.NoError(t, session.CastVote(member, 1))

	require.NoError(t, session.Close("u1"))
	assert.False(t, session.IsOpen())

	for _, conn := range []*mockConn{creator, member} {
		closedFrames := framesOf[domain.PollClosedFrame](conn.sent())
		require.Len(t, closedFrames, 1, "conn %s", conn.ID())
		assert.Equal(t, 1, closedFrames[0].TotalVoters)
		assert.Equal(t, 1, closedFrames[0].FinalResults[1].Votes)
	}
}

func TestSession_Close_NotCreator(t *testing.T) {
	session, creator := newTestSession(t)

	member := newMockConn("c2", domain.Identity{ID: "u2", Name: "Ben"})
	session.Join(member)

	err := session.Close("u2")
	assert.ErrorIs(t, err, domain.ErrNotCreator)
	assert.True(t, session.IsOpen())
	assert.Empty(t, framesOf[domain.PollClosedFrame](creator.sent()))
}

func TestSession_Close_Twice(t *testing.T) {
	session, creator := newTestSession(t)

	require.NoError(t, session.Close("u1"))
	assert.ErrorIs(t, session.Close("u1"), domain.ErrAlreadyClosed)

	// No second poll_closed broadcast
	assert.Len(t, framesOf[domain.PollClosedFrame](creator.sent()), 1)
}

func TestSession_JoinAfterClose_IsPermitted(t *testing.T) {
	session, _ := newTestSession(t)
	require.NoError(t, session.Close("u1"))

	late := newMockConn("c3", domain.Identity{ID: "u3", Name: "Cleo"})
	state := session.Join(late)

	assert.False(t, state.IsOpen)
	assert.Equal(t, 2, session.MemberCount())
}

func TestSession_Disconnect_CreatorClosesPoll(t *testing.T) {
	session, creator := newTestSession(t)

	member := newMockConn("c2", domain.Identity{ID: "u2", Name: "Ben"})
	session.Join(member)
	require.NoError(t, session.CastVote(member, 0))

	empty := session.Disconnect(creator)
	assert.False(t, empty)
	assert.False(t, session.IsOpen())

	closedFrames := framesOf[domain.PollClosedFrame](member.sent())
	require.Len(t, closedFrames, 1)
	assert.Equal(t, 1, closedFrames[0].TotalVoters)
	assert.Equal(t, 1, closedFrames[0].FinalResults[0].Votes)

	// Remaining members also learn about the departure
	left := framesOf[domain.UserLeftFrame](member.sent())
	require.Len(t, left, 1)
	assert.Equal(t, "Ana", left[0].UserName)
	assert.Equal(t, 1, left[0].ClientCount)
}

func TestSession_Disconnect_CreatorAfterClose_NoSecondBroadcast(t *testing.T) {
	session, creator := newTestSession(t)

	member := newMockConn("c2", domain.Identity{ID: "u2", Name: "Ben"})
	session.Join(member)

	require.NoError(t, session.Close("u1"))
	session.Disconnect(creator)

	assert.Len(t, framesOf[domain.PollClosedFrame](member.sent()), 1)
}

func TestSession_Disconnect_MemberBroadcastsUserLeft(t *testing.T) {
	session, creator := newTestSession(t)

	member := newMockConn("c2", domain.Identity{ID: "u2", Name: "Ben"})
	session.Join(member)

	empty := session.Disconnect(member)
	assert.False(t, empty)
	assert.True(t, session.IsOpen(), "non-creator departure must not close the poll")

	left := framesOf[domain.UserLeftFrame](creator.sent())
	require.Len(t, left, 1)
	assert.Equal(t, "Ben", left[0].UserName)
	assert.Equal(t, 1, left[0].ClientCount)
}

func TestSession_Disconnect_LastMemberReportsEmpty(t *testing.T) {
	session, creator := newTestSession(t)

	assert.True(t, session.Disconnect(creator))
	assert.Zero(t, session.MemberCount())
}

func TestSession_Disconnect_NonMemberIsNoop(t *testing.T) {
	session, creator := newTestSession(t)

	stranger := newMockConn("c9", domain.Identity{ID: "u9", Name: "Zoe"})
	assert.False(t, session.Disconnect(stranger))
	assert.Equal(t, 1, session.MemberCount())
	assert.Empty(t, framesOf[domain.UserLeftFrame](creator.sent()))
}

func TestSession_Broadcast_IsolatesFailingPeer(t *testing.T) {
	session, creator := newTestSession(t)

	broken := newMockConn("c2", domain.Identity{ID: "u2", Name: "Ben"})
	session.Join(broken)
	broken.sendErr = errors.New("peer gone")

	healthy := newMockConn("c3", domain.Identity{ID: "u3", Name: "Cleo"})
	session.Join(healthy)

	require.NoError(t, session.CastVote(creator, 0))

	updates := framesOf[domain.VoteUpdateFrame](healthy.sent())
	require.Len(t, updates, 1, "a broken peer must not block delivery to others")
	assert.Equal(t, 1, updates[0].Options[0].Votes)
}
