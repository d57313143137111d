package comments_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yyblog/internal/comments"
	"yyblog/internal/mocks"
	"yyblog/internal/models"
)

const slug = "hello-world"

var article = comments.Article{Slug: slug, Title: "Hello World", OwnerID: "owner"}

func session(id string) *comments.Session {
	return &comments.Session{UserID: id, UserName: "user-" + id, Email: id + "@example.com"}
}

func adminOnly(s *comments.Session) bool {
	return s.UserID == "admin"
}

func newThread(t *testing.T, store *mocks.MockCommentStore, s *comments.Session) (*comments.Thread, *mocks.MockFeedback) {
	t.Helper()
	fb := &mocks.MockFeedback{}
	th := comments.NewThread(article, s, comments.Options{
		Store:    store,
		Feedback: fb,
		IsAdmin:  adminOnly,
	})
	require.NoError(t, th.Load(context.Background()))
	return th, fb
}

// seedLikedComment stores comment 5 with three likes from other users.
func seedLikedComment(store *mocks.MockCommentStore) {
	store.Seed(models.Comment{ID: 5, PostSlug: slug, UserID: "author", UserName: "author", Content: "nice post"})
	store.SeedLike(5, "x")
	store.SeedLike(5, "y")
	store.SeedLike(5, "z")
}

func TestToggleLike_Like(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedLikedComment(store)
	th, fb := newThread(t, store, session("u"))

	res, err := th.ToggleLike(context.Background(), 5, false)

	require.NoError(t, err)
	assert.Equal(t, comments.LikeApplied, res.Outcome)
	assert.True(t, res.Liked)
	assert.Equal(t, 4, res.LikeCount)
	assert.Equal(t, 4, store.LikeRows(5))
	assert.Empty(t, fb.Toasts)
	assert.False(t, th.LikeInFlight(5))

	c := comments.Find(th.Comments(), 5)
	require.NotNil(t, c)
	assert.True(t, c.LikedByMe)
	assert.Equal(t, 4, c.LikeCount)
}

func TestToggleLike_Unlike(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedLikedComment(store)
	store.SeedLike(5, "u")
	th, _ := newThread(t, store, session("u"))

	before := comments.Find(th.Comments(), 5)
	require.True(t, before.LikedByMe)
	require.Equal(t, 4, before.LikeCount)

	res, err := th.ToggleLike(context.Background(), 5, true)

	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, 3, res.LikeCount)
	assert.Equal(t, 3, store.LikeRows(5))
}

func TestToggleLike_UnlikeWithoutRowIsNoop(t *testing.T) {
	store := mocks.NewMockCommentStore()
	store.Seed(models.Comment{ID: 5, PostSlug: slug, UserID: "author", Content: "hi"})
	th, fb := newThread(t, store, session("u"))

	res, err := th.ToggleLike(context.Background(), 5, true)

	require.NoError(t, err)
	assert.False(t, res.Liked)
	// 计数不会低于 0
	assert.Equal(t, 0, res.LikeCount)
	assert.Equal(t, 0, store.LikeRows(5))
	assert.Empty(t, fb.Toasts)
}

func TestToggleLike_RequiresSession(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedLikedComment(store)
	th, fb := newThread(t, store, nil)

	_, err := th.ToggleLike(context.Background(), 5, false)

	assert.ErrorIs(t, err, comments.ErrUnauthorized)
	assert.Equal(t, "请先登录", fb.Last().Message)
	assert.Equal(t, 0, store.CallCount("LikeExists"))
	assert.Equal(t, 0, store.CallCount("InsertLike"))
	assert.Equal(t, 3, comments.Find(th.Comments(), 5).LikeCount)
}

func TestToggleLike_UnknownComment(t *testing.T) {
	store := mocks.NewMockCommentStore()
	th, _ := newThread(t, store, session("u"))

	_, err := th.ToggleLike(context.Background(), 404, false)

	assert.ErrorIs(t, err, comments.ErrCommentNotFound)
	assert.Equal(t, 0, store.CallCount("InsertLike"))
}

func TestToggleLike_StoreFailureRollsBack(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedLikedComment(store)
	th, fb := newThread(t, store, session("u"))
	store.SetFail("InsertLike", errors.New("connection reset"))

	res, err := th.ToggleLike(context.Background(), 5, false)

	var se *comments.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "connection reset", se.Message)
	assert.False(t, res.Liked)
	assert.Equal(t, 3, res.LikeCount)
	assert.Equal(t, mocks.Toast{Message: "操作失败", Severity: comments.SeverityError}, fb.Last())

	c := comments.Find(th.Comments(), 5)
	assert.False(t, c.LikedByMe)
	assert.Equal(t, 3, c.LikeCount)
	assert.False(t, th.LikeInFlight(5))
}

func TestToggleLike_UnlikeFailureRestoresLike(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedLikedComment(store)
	store.SeedLike(5, "u")
	th, _ := newThread(t, store, session("u"))
	store.SetFail("DeleteLike", errors.New("timeout"))

	_, err := th.ToggleLike(context.Background(), 5, true)

	require.Error(t, err)
	c := comments.Find(th.Comments(), 5)
	assert.True(t, c.LikedByMe)
	assert.Equal(t, 4, c.LikeCount)
}

// 同一会话连续两次点赞：第二次检测到已存在的记录，不会重复计数
func TestToggleLike_SecondLikeDetectsExistingRow(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedLikedComment(store)
	th, fb := newThread(t, store, session("u"))

	_, err := th.ToggleLike(context.Background(), 5, false)
	require.NoError(t, err)

	res, err := th.ToggleLike(context.Background(), 5, false)

	require.NoError(t, err)
	assert.Equal(t, comments.LikeAlreadyPresent, res.Outcome)
	assert.True(t, res.Liked)
	assert.Equal(t, 4, res.LikeCount)
	assert.Equal(t, 4, store.LikeRows(5))
	assert.Equal(t, 1, store.CallCount("InsertLike"))
	assert.Equal(t, "你已点赞过", fb.Last().Message)
	assert.Equal(t, comments.SeverityInfo, fb.Last().Severity)
	assert.False(t, th.LikeInFlight(5))
}

func TestToggleLike_OverlappingToggleIsRejected(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedLikedComment(store)
	th, _ := newThread(t, store, session("u"))

	entered := make(chan struct{})
	release := make(chan struct{})
	store.BeforeInsertLike = func(int64, string) {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := th.ToggleLike(context.Background(), 5, false)
		done <- err
	}()

	<-entered
	assert.True(t, th.LikeInFlight(5))
	_, err := th.ToggleLike(context.Background(), 5, false)
	assert.ErrorIs(t, err, comments.ErrLikeInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, th.LikeInFlight(5))
	assert.Equal(t, 4, store.LikeRows(5))
	assert.Equal(t, 4, comments.Find(th.Comments(), 5).LikeCount)
}

func TestToggleLike_InFlightDoesNotBlockOtherComments(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedLikedComment(store)
	store.Seed(models.Comment{ID: 6, PostSlug: slug, UserID: "author", UserName: "author", Content: "second"})
	th, _ := newThread(t, store, session("u"))

	entered := make(chan struct{})
	release := make(chan struct{})
	store.BeforeInsertLike = func(commentID int64, _ string) {
		if commentID != 5 {
			return
		}
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := th.ToggleLike(context.Background(), 5, false)
		done <- err
	}()
	<-entered

	res, err := th.ToggleLike(context.Background(), 6, false)

	require.NoError(t, err)
	assert.Equal(t, comments.LikeApplied, res.Outcome)
	assert.True(t, res.Liked)
	assert.Equal(t, 1, res.LikeCount)
	assert.False(t, th.LikeInFlight(6))
	assert.True(t, th.LikeInFlight(5))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, th.LikeInFlight(5))
	assert.Equal(t, 4, store.LikeRows(5))
	assert.Equal(t, 1, store.LikeRows(6))
}

func TestToggleLike_InFlightClearedOnEveryExit(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedLikedComment(store)
	store.SeedLike(5, "u")
	th, _ := newThread(t, store, session("u"))

	// 界面状态过期：已点赞却再次点赞
	res, err := th.ToggleLike(context.Background(), 5, false)
	require.NoError(t, err)
	assert.Equal(t, comments.LikeAlreadyPresent, res.Outcome)
	assert.False(t, th.LikeInFlight(5))

	store.SetFail("DeleteLike", errors.New("timeout"))
	_, err = th.ToggleLike(context.Background(), 5, true)
	require.Error(t, err)
	assert.False(t, th.LikeInFlight(5))

	store.SetFail("DeleteLike", nil)
	_, err = th.ToggleLike(context.Background(), 5, true)
	require.NoError(t, err)
	assert.False(t, th.LikeInFlight(5))
}

// 两个会话（如两个标签页）同时点赞同一评论：只会写入一条记录，失败的一方回滚后与存储对齐
func TestToggleLike_ConcurrentSessionsPersistOneRow(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedLikedComment(store)
	a, _ := newThread(t, store, session("u"))
	b, _ := newThread(t, store, session("u"))

	var arrived sync.WaitGroup
	arrived.Add(2)
	store.BeforeInsertLike = func(int64, string) {
		arrived.Done()
		arrived.Wait()
	}

	var wg sync.WaitGroup
	results := make([]comments.LikeResult, 2)
	errs := make([]error, 2)
	for i, th := range []*comments.Thread{a, b} {
		wg.Add(1)
		go func(i int, th *comments.Thread) {
			defer wg.Done()
			results[i], errs[i] = th.ToggleLike(context.Background(), 5, false)
		}(i, th)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 4, store.LikeRows(5))
	assert.ElementsMatch(t,
		[]comments.LikeOutcome{comments.LikeApplied, comments.LikeAlreadyPresent},
		[]comments.LikeOutcome{results[0].Outcome, results[1].Outcome})
	for _, res := range results {
		assert.True(t, res.Liked)
		assert.Equal(t, 4, res.LikeCount)
	}
}

func TestToggleLike_ContextFeedbackOverridesDefault(t *testing.T) {
	store := mocks.NewMockCommentStore()
	th, def := newThread(t, store, nil)

	scoped := &mocks.MockFeedback{}
	ctx := comments.WithFeedback(context.Background(), scoped)
	_, err := th.ToggleLike(ctx, 1, false)

	assert.ErrorIs(t, err, comments.ErrUnauthorized)
	assert.Empty(t, def.Toasts)
	require.Len(t, scoped.Toasts, 1)
	assert.Equal(t, "请先登录", scoped.Toasts[0].Message)
}
