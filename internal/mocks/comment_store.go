package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"yyblog/internal/comments"
	"yyblog/internal/models"
)

type likeKey struct {
	commentID int64
	userID    string
}

// MockCommentStore is an in-memory comments.Store. Errors set in Fail are
// returned by the method of the same name.
type MockCommentStore struct {
	mu       sync.Mutex
	comments map[int64]models.Comment
	likes    map[likeKey]bool
	nextID   int64
	clock    time.Time

	Fail  map[string]error
	Calls map[string]int

	// BeforeInsertLike runs before InsertLike takes the lock, letting tests
	// interleave a competing request between the existence check and the insert.
	BeforeInsertLike func(commentID int64, userID string)
}

func NewMockCommentStore() *MockCommentStore {
	return &MockCommentStore{
		comments: make(map[int64]models.Comment),
		likes:    make(map[likeKey]bool),
		nextID:   1,
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Fail:     make(map[string]error),
		Calls:    make(map[string]int),
	}
}

func (m *MockCommentStore) call(name string) error {
	m.Calls[name]++
	return m.Fail[name]
}

// CallCount returns how often a method was invoked.
func (m *MockCommentStore) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[name]
}

// SetFail makes the named method return err (nil clears it).
func (m *MockCommentStore) SetFail(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.Fail, name)
		return
	}
	m.Fail[name] = err
}

// Seed stores a row as-is (keeping its ID and ParentID) for test setup.
func (m *MockCommentStore) Seed(c models.Comment) models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.nextID
	}
	if c.ID >= m.nextID {
		m.nextID = c.ID + 1
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.tick()
	}
	m.comments[c.ID] = c
	return c
}

// SeedLike stores a like row directly.
func (m *MockCommentStore) SeedLike(commentID int64, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.likes[likeKey{commentID, userID}] = true
}

// LikeRows returns the number of like rows stored for a comment.
func (m *MockCommentStore) LikeRows(commentID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.likes {
		if k.commentID == commentID {
			n++
		}
	}
	return n
}

// Has reports whether a comment row exists.
func (m *MockCommentStore) Has(commentID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.comments[commentID]
	return ok
}

func (m *MockCommentStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *MockCommentStore) ListComments(ctx context.Context, postSlug string) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListComments"); err != nil {
		return nil, err
	}

	var rows []models.Comment
	for _, c := range m.comments {
		if c.PostSlug == postSlug {
			rows = append(rows, c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return rows, nil
}

func (m *MockCommentStore) CountLikes(ctx context.Context, commentIDs []int64) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CountLikes"); err != nil {
		return nil, err
	}

	wanted := make(map[int64]bool, len(commentIDs))
	for _, id := range commentIDs {
		wanted[id] = true
	}
	counts := make(map[int64]int)
	for k := range m.likes {
		if wanted[k.commentID] {
			counts[k.commentID]++
		}
	}
	return counts, nil
}

func (m *MockCommentStore) LikedBy(ctx context.Context, userID string, commentIDs []int64) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("LikedBy"); err != nil {
		return nil, err
	}

	liked := make(map[int64]bool)
	for _, id := range commentIDs {
		if m.likes[likeKey{id, userID}] {
			liked[id] = true
		}
	}
	return liked, nil
}

func (m *MockCommentStore) InsertComment(ctx context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("InsertComment"); err != nil {
		return err
	}

	if c.ParentID != nil {
		parent, ok := m.comments[*c.ParentID]
		if !ok || parent.PostSlug != c.PostSlug {
			return comments.ErrParentNotFound
		}
	}
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = m.tick()
	m.comments[c.ID] = *c
	return nil
}

func (m *MockCommentStore) DeleteComment(ctx context.Context, commentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("DeleteComment"); err != nil {
		return err
	}

	// 级联删除所有子回复
	doomed := map[int64]bool{commentID: true}
	for grew := true; grew; {
		grew = false
		for id, c := range m.comments {
			if c.ParentID != nil && doomed[*c.ParentID] && !doomed[id] {
				doomed[id] = true
				grew = true
			}
		}
	}
	for id := range doomed {
		delete(m.comments, id)
	}
	for k := range m.likes {
		if doomed[k.commentID] {
			delete(m.likes, k)
		}
	}
	return nil
}

func (m *MockCommentStore) LikeExists(ctx context.Context, commentID int64, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("LikeExists"); err != nil {
		return false, err
	}
	return m.likes[likeKey{commentID, userID}], nil
}

func (m *MockCommentStore) InsertLike(ctx context.Context, commentID int64, userID string) error {
	if m.BeforeInsertLike != nil {
		m.BeforeInsertLike(commentID, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("InsertLike"); err != nil {
		return err
	}
	if _, ok := m.comments[commentID]; !ok {
		return comments.ErrCommentNotFound
	}
	key := likeKey{commentID, userID}
	if m.likes[key] {
		return comments.ErrDuplicateLike
	}
	m.likes[key] = true
	return nil
}

func (m *MockCommentStore) DeleteLike(ctx context.Context, commentID int64, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("DeleteLike"); err != nil {
		return err
	}
	delete(m.likes, likeKey{commentID, userID})
	return nil
}
