package comments

import (
	"yyblog/internal/models"
)

// BuildTree assembles the flat rows of one post into root comments with their
// replies attached at any depth. rows must be ordered by created_at ascending;
// that order is kept inside every replies slice. likeCounts and likedByMe may
// miss ids (zero values apply); likedByMe is ignored when userID is empty.
//
// A row whose parent is not among rows (already deleted, never existed) is
// returned as a root instead of being dropped.
func BuildTree(rows []models.Comment, likeCounts map[int64]int, likedByMe map[int64]bool, userID string) []*Comment {
	index := make(map[int64]*Comment, len(rows))
	order := make([]*Comment, 0, len(rows))
	for _, row := range rows {
		if _, dup := index[row.ID]; dup {
			continue
		}
		c := decorate(row)
		c.LikeCount = likeCounts[row.ID]
		if userID != "" {
			c.LikedByMe = likedByMe[row.ID]
		}
		index[row.ID] = c
		order = append(order, c)
	}

	isRoot := make(map[int64]bool)
	for _, c := range order {
		if parent := parentOf(index, c); parent != nil {
			parent.Replies = append(parent.Replies, c)
			continue
		}
		isRoot[c.ID] = true
	}

	// 存在 parent_id 环时，环上的评论从根不可达，提升为根以免丢失
	seen := make(map[int64]bool, len(order))
	for _, c := range order {
		if isRoot[c.ID] {
			markReachable(c, seen)
		}
	}
	if len(seen) < len(order) {
		for _, c := range order {
			if seen[c.ID] {
				continue
			}
			parent := parentOf(index, c)
			parent.Replies = removeChild(parent.Replies, c.ID)
			isRoot[c.ID] = true
			markReachable(c, seen)
		}
	}

	roots := make([]*Comment, 0, len(isRoot))
	for _, c := range order {
		if isRoot[c.ID] {
			roots = append(roots, c)
		}
	}
	return roots
}

func parentOf(index map[int64]*Comment, c *Comment) *Comment {
	if c.ParentID == nil || *c.ParentID == c.ID {
		return nil
	}
	return index[*c.ParentID]
}

func markReachable(c *Comment, seen map[int64]bool) {
	if seen[c.ID] {
		return
	}
	seen[c.ID] = true
	for _, r := range c.Replies {
		markReachable(r, seen)
	}
}

func removeChild(list []*Comment, id int64) []*Comment {
	out := list[:0]
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits every comment depth-first in display order until fn returns false.
func Walk(roots []*Comment, fn func(c *Comment) bool) bool {
	for _, c := range roots {
		if !fn(c) {
			return false
		}
		if !Walk(c.Replies, fn) {
			return false
		}
	}
	return true
}

// Find locates a comment by id at any depth.
func Find(roots []*Comment, id int64) *Comment {
	var found *Comment
	Walk(roots, func(c *Comment) bool {
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// Index maps every comment in the tree by id.
func Index(roots []*Comment) map[int64]*Comment {
	index := make(map[int64]*Comment)
	Walk(roots, func(c *Comment) bool {
		index[c.ID] = c
		return true
	})
	return index
}

// Count returns the number of comments in the tree, replies included.
func Count(roots []*Comment) int {
	n := 0
	Walk(roots, func(*Comment) bool {
		n++
		return true
	})
	return n
}

// remove drops the comment with the given id, together with its whole reply
// subtree, from whatever level it sits on. It reports whether anything was removed.
func remove(roots []*Comment, id int64) ([]*Comment, bool) {
	out := make([]*Comment, 0, len(roots))
	removed := false
	for _, c := range roots {
		if c.ID == id {
			removed = true
			continue
		}
		if !removed && len(c.Replies) > 0 {
			var hit bool
			c.Replies, hit = remove(c.Replies, id)
			removed = removed || hit
		}
		out = append(out, c)
	}
	return out, removed
}

// ReplyTarget returns the name shown as "› name" next to c's author: the
// parent's author when the parent is itself a reply, otherwise "".
func ReplyTarget(index map[int64]*Comment, c *Comment) string {
	if c.ParentID == nil {
		return ""
	}
	parent, ok := index[*c.ParentID]
	if !ok || parent.ParentID == nil {
		return ""
	}
	return parent.UserName
}

// IndentLevel caps visual nesting at one level regardless of reply depth.
func IndentLevel(c *Comment) int {
	if c.IsReply() {
		return 1
	}
	return 0
}

// snapshot deep-copies the tree and fills the display-only fields.
func snapshot(roots []*Comment) []*Comment {
	index := Index(roots)
	var clone func(list []*Comment) []*Comment
	clone = func(list []*Comment) []*Comment {
		out := make([]*Comment, 0, len(list))
		for _, c := range list {
			cp := *c
			if c.UserAvatar != nil {
				avatar := *c.UserAvatar
				cp.UserAvatar = &avatar
			}
			if c.ParentID != nil {
				pid := *c.ParentID
				cp.ParentID = &pid
			}
			cp.ReplyTo = ReplyTarget(index, c)
			cp.Indent = IndentLevel(c)
			cp.Replies = clone(c.Replies)
			out = append(out, &cp)
		}
		return out
	}
	return clone(roots)
}
