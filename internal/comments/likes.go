package comments

import (
	"context"
	"errors"
	"log"
)

type LikeOutcome string

const (
	LikeApplied        LikeOutcome = "applied"
	LikeAlreadyPresent LikeOutcome = "already_liked"
)

// LikeResult is the state of the comment once the toggle has settled.
type LikeResult struct {
	CommentID int64       `json:"comment_id"`
	Liked     bool        `json:"liked"`
	LikeCount int         `json:"like_count"`
	Outcome   LikeOutcome `json:"outcome"`
}

// likeDelta is an optimistic change together with what is needed to undo it.
type likeDelta struct {
	commentID int64
	delta     int
	liked     bool
	prevLiked bool
}

// ToggleLike flips the session user's like on a comment. currentlyLiked is the
// state the caller showed when the user clicked. The tree is updated before
// the store is touched and rolled back if the store fails or reports that the
// like already exists. Two toggles on the same comment never overlap within a
// thread; the second gets ErrLikeInFlight.
func (t *Thread) ToggleLike(ctx context.Context, commentID int64, currentlyLiked bool) (LikeResult, error) {
	if t.session == nil {
		t.toast(ctx, "请先登录", SeverityError)
		return LikeResult{}, ErrUnauthorized
	}

	want := !currentlyLiked
	change := 1
	if !want {
		change = -1
	}

	t.mu.Lock()
	target := Find(t.roots, commentID)
	if target == nil {
		t.mu.Unlock()
		return LikeResult{}, ErrCommentNotFound
	}
	if t.inflight[commentID] {
		t.mu.Unlock()
		return LikeResult{}, ErrLikeInFlight
	}
	d := t.applyLocked(commentID, change, want)
	t.inflight[commentID] = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.inflight, commentID)
		t.mu.Unlock()
	}()

	userID := t.session.UserID
	var err error
	if currentlyLiked {
		err = t.store.DeleteLike(ctx, commentID, userID)
	} else {
		err = t.like(ctx, commentID, userID)
	}

	switch {
	case err == nil:
		return t.likeResult(commentID, LikeApplied), nil
	case errors.Is(err, ErrDuplicateLike):
		t.rollback(d)
		t.reconcileLiked(ctx, commentID)
		t.toast(ctx, "你已点赞过", SeverityInfo)
		return t.likeResult(commentID, LikeAlreadyPresent), nil
	default:
		log.Printf("Like operation failed on comment %d: %v", commentID, err)
		t.rollback(d)
		t.toast(ctx, "操作失败", SeverityError)
		return t.likeResult(commentID, ""), asStoreError("toggle like", err)
	}
}

// like checks for an existing row before inserting; a parallel request from
// another session may still win between the two calls, which the store's
// unique index reports as ErrDuplicateLike.
func (t *Thread) like(ctx context.Context, commentID int64, userID string) error {
	exists, err := t.store.LikeExists(ctx, commentID, userID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateLike
	}
	return t.store.InsertLike(ctx, commentID, userID)
}

func (t *Thread) applyLocked(commentID int64, change int, liked bool) likeDelta {
	d := likeDelta{commentID: commentID, liked: liked}
	c := Find(t.roots, commentID)
	if c == nil {
		return d
	}
	d.prevLiked = c.LikedByMe
	next := c.LikeCount + change
	if next < 0 {
		next = 0
	}
	d.delta = next - c.LikeCount
	c.LikeCount = next
	c.LikedByMe = liked
	return d
}

func (t *Thread) rollback(d likeDelta) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := Find(t.roots, d.commentID)
	if c == nil {
		return
	}
	c.LikeCount -= d.delta
	if c.LikeCount < 0 {
		c.LikeCount = 0
	}
	c.LikedByMe = d.prevLiked
}

// reconcileLiked moves a comment to the state the store holds after a lost
// like race: liked by this user, with the persisted count.
func (t *Thread) reconcileLiked(ctx context.Context, commentID int64) {
	counts, err := t.store.CountLikes(ctx, []int64{commentID})
	t.mu.Lock()
	defer t.mu.Unlock()
	c := Find(t.roots, commentID)
	if c == nil {
		return
	}
	c.LikedByMe = true
	if err != nil {
		log.Printf("Error refreshing like count of comment %d: %v", commentID, err)
		return
	}
	c.LikeCount = counts[commentID]
}

func (t *Thread) likeResult(commentID int64, outcome LikeOutcome) LikeResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	res := LikeResult{CommentID: commentID, Outcome: outcome}
	if c := Find(t.roots, commentID); c != nil {
		res.Liked = c.LikedByMe
		res.LikeCount = c.LikeCount
	}
	return res
}
