package comments

import (
	"context"
	"fmt"
	"log"
	"strings"

	"yyblog/internal/models"
)

const anonymousName = "匿名用户"

// SubmitComment posts a new root comment and appends it to the end of the tree.
func (t *Thread) SubmitComment(ctx context.Context, content string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		t.toast(ctx, "请输入评论内容", SeverityError)
		return nil, ErrValidation
	}
	if t.session == nil {
		t.toast(ctx, "请先登录", SeverityError)
		return nil, ErrUnauthorized
	}

	row := t.newRow(content, nil)
	if err := t.store.InsertComment(ctx, row); err != nil {
		log.Printf("Error submitting comment on %s: %v", t.article.Slug, err)
		t.toast(ctx, "发布评论失败", SeverityError)
		return nil, asStoreError("insert comment", err)
	}

	c := decorate(*row)
	t.mu.Lock()
	t.roots = append(t.roots, c)
	out := snapshot([]*Comment{c})[0]
	t.mu.Unlock()

	t.toast(ctx, "评论发布成功！", SeveritySuccess)
	t.notifyOwner(ctx, row)
	return out, nil
}

// SubmitReply posts a reply to a visible comment at any depth and appends it
// to that comment's replies.
func (t *Thread) SubmitReply(ctx context.Context, parentID int64, content string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		t.toast(ctx, "请输入回复内容", SeverityError)
		return nil, ErrValidation
	}
	if t.session == nil {
		t.toast(ctx, "请先登录", SeverityError)
		return nil, ErrUnauthorized
	}

	t.mu.Lock()
	parent := Find(t.roots, parentID)
	t.mu.Unlock()
	if parent == nil {
		t.toast(ctx, "回复的评论不存在", SeverityError)
		return nil, ErrParentNotFound
	}

	row := t.newRow(content, &parentID)
	if err := t.store.InsertComment(ctx, row); err != nil {
		log.Printf("Reply operation failed on comment %d: %v", parentID, err)
		t.toast(ctx, "回复失败", SeverityError)
		return nil, asStoreError("insert reply", err)
	}

	c := decorate(*row)
	t.mu.Lock()
	// 父评论可能在等待期间被删除，此时按孤儿规则挂到根上
	if parent = Find(t.roots, parentID); parent != nil {
		parent.Replies = append(parent.Replies, c)
	} else {
		t.roots = append(t.roots, c)
	}
	out := snapshot([]*Comment{c})[0]
	if parent != nil && parent.ParentID != nil {
		out.ReplyTo = parent.UserName
	}
	t.mu.Unlock()

	t.toast(ctx, "回复成功", SeveritySuccess)
	t.notifyOwner(ctx, row)
	return out, nil
}

// DeleteComment removes a comment and all replies below it. Only admins may
// delete, and only after confirm agrees.
func (t *Thread) DeleteComment(ctx context.Context, commentID int64, confirm ConfirmFunc) error {
	if !t.admin {
		t.toast(ctx, "您没有权限删除评论", SeverityError)
		return ErrForbidden
	}
	if confirm == nil || !confirm("确定要删除这条评论吗？") {
		return ErrNotConfirmed
	}

	if err := t.store.DeleteComment(ctx, commentID); err != nil {
		log.Printf("Error deleting comment %d: %v", commentID, err)
		se := asStoreError("delete comment", err)
		msg := "删除评论失败"
		if se.Message != "" {
			msg += fmt.Sprintf(": %s", se.Message)
		}
		if se.Detail != "" {
			msg += fmt.Sprintf(" (%s)", se.Detail)
		}
		t.toast(ctx, msg, SeverityError)
		return se
	}

	t.mu.Lock()
	t.roots, _ = remove(t.roots, commentID)
	t.mu.Unlock()

	t.toast(ctx, "评论删除成功", SeveritySuccess)
	return nil
}

func (t *Thread) newRow(content string, parentID *int64) *models.Comment {
	name := t.session.UserName
	if name == "" {
		name = anonymousName
	}
	return &models.Comment{
		PostSlug:   t.article.Slug,
		UserID:     t.session.UserID,
		UserName:   name,
		UserAvatar: t.session.Avatar,
		Content:    content,
		IsAdmin:    t.admin,
		ParentID:   parentID,
	}
}

// notifyOwner tells the post owner about a new comment without waiting for it.
func (t *Thread) notifyOwner(ctx context.Context, row *models.Comment) {
	if t.notifier == nil || t.article.OwnerID == "" || t.article.OwnerID == row.UserID {
		return
	}
	notice := NewCommentNotice{
		PostSlug:      t.article.Slug,
		PostTitle:     t.article.Title,
		CommentID:     row.ID,
		Content:       row.Content,
		CommenterName: row.UserName,
		PostOwnerID:   t.article.OwnerID,
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := t.notifier.NotifyComment(bg, notice); err != nil {
			log.Printf("Error creating notification for comment %d: %v", notice.CommentID, err)
		}
	}()
}
