package comments

import (
	"context"
	"log"
	"sync"
)

// Options wires a Thread to its collaborators. Store is required.
type Options struct {
	Store    Store
	Notifier Notifier
	Feedback Feedback
	IsAdmin  AdminFunc
}

// Thread is one viewer's in-memory comment section for one article.
// Tree mutations are short critical sections under mu; store round-trips
// always run with mu released.
type Thread struct {
	article  Article
	session  *Session
	admin    bool
	store    Store
	notifier Notifier
	feedback Feedback

	mu       sync.Mutex
	roots    []*Comment
	inflight map[int64]bool
}

// NewThread creates an empty thread. session is nil for anonymous viewers.
func NewThread(article Article, session *Session, opts Options) *Thread {
	t := &Thread{
		article:  article,
		session:  session,
		store:    opts.Store,
		notifier: opts.Notifier,
		feedback: opts.Feedback,
		roots:    []*Comment{},
		inflight: make(map[int64]bool),
	}
	if session != nil && opts.IsAdmin != nil {
		t.admin = opts.IsAdmin(session)
	}
	return t
}

// Load fetches the post's comments and like aggregates and replaces the tree.
func (t *Thread) Load(ctx context.Context) error {
	rows, err := t.store.ListComments(ctx, t.article.Slug)
	if err != nil {
		return t.loadFailed(ctx, "list comments", err)
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	counts := map[int64]int{}
	liked := map[int64]bool{}
	if len(ids) > 0 {
		if counts, err = t.store.CountLikes(ctx, ids); err != nil {
			return t.loadFailed(ctx, "count likes", err)
		}
		if t.session != nil {
			if liked, err = t.store.LikedBy(ctx, t.session.UserID, ids); err != nil {
				return t.loadFailed(ctx, "load liked comments", err)
			}
		}
	}

	roots := BuildTree(rows, counts, liked, t.userID())

	t.mu.Lock()
	t.roots = roots
	t.mu.Unlock()
	return nil
}

func (t *Thread) loadFailed(ctx context.Context, op string, err error) error {
	log.Printf("Error loading comments for %s: %v", t.article.Slug, err)
	t.toast(ctx, "加载评论失败", SeverityError)
	return asStoreError(op, err)
}

// Comments returns a deep copy of the tree with display fields filled in.
func (t *Thread) Comments() []*Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return snapshot(t.roots)
}

// Len returns the number of visible comments, replies included.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Count(t.roots)
}

// LikeInFlight reports whether a like toggle for commentID has not settled yet.
func (t *Thread) LikeInFlight(commentID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight[commentID]
}

func (t *Thread) Article() Article {
	return t.article
}

func (t *Thread) Session() *Session {
	return t.session
}

// IsAdmin reports the admin status resolved when the thread was created.
func (t *Thread) IsAdmin() bool {
	return t.admin
}

func (t *Thread) userID() string {
	if t.session == nil {
		return ""
	}
	return t.session.UserID
}
