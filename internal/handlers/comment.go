package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"yyblog/internal/comments"
	"yyblog/internal/middleware"
	"yyblog/internal/utils"
)

// ArticleResolver looks up the article a comment section belongs to.
type ArticleResolver interface {
	GetArticle(ctx context.Context, slug string) (comments.Article, error)
}

type CommentHandler struct {
	store    comments.Store
	notifier comments.Notifier
	articles ArticleResolver
	isAdmin  comments.AdminFunc
	threads  *utils.TTLCache[*comments.Thread]
	// 同一 key 的并发加载只构建一个 Thread
	loads singleflight.Group
}

func NewCommentHandler(store comments.Store, notifier comments.Notifier, articles ArticleResolver, isAdmin comments.AdminFunc, threads *utils.TTLCache[*comments.Thread]) *CommentHandler {
	return &CommentHandler{
		store:    store,
		notifier: notifier,
		articles: articles,
		isAdmin:  isAdmin,
		threads:  threads,
	}
}

type contentRequest struct {
	Content string `json:"content" form:"content"`
}

type likeRequest struct {
	// Liked 是用户点击时界面显示的状态
	Liked bool `json:"liked" form:"liked"`
}

func threadKey(s *comments.Session, slug string) string {
	viewer := "anon"
	if s != nil {
		viewer = s.UserID
	}
	return "thread:" + viewer + ":" + slug
}

// thread returns the viewer's cached thread for the post, loading it from the
// store when there is none or when fresh is set. Concurrent misses on the same
// key share one load, so every request of a viewer patches the same Thread and
// its in-flight like flags.
func (h *CommentHandler) thread(ctx context.Context, c *gin.Context, fresh bool) (*comments.Thread, error) {
	slug := c.Param("slug")
	session := middleware.CurrentSession(c)
	key := threadKey(session, slug)

	if !fresh {
		if t, ok := h.threads.Get(key); ok {
			return t, nil
		}
	}

	flight := key
	if fresh {
		flight = "fresh:" + key
	}
	v, err, _ := h.loads.Do(flight, func() (interface{}, error) {
		if !fresh {
			// 等待期间可能已有请求完成加载
			if t, ok := h.threads.Get(key); ok {
				return t, nil
			}
		}
		article, err := h.articles.GetArticle(ctx, slug)
		if err != nil {
			return nil, err
		}
		t := comments.NewThread(article, session, comments.Options{
			Store:    h.store,
			Notifier: h.notifier,
			IsAdmin:  h.isAdmin,
		})
		if err := t.Load(ctx); err != nil {
			return nil, err
		}
		h.threads.Set(key, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*comments.Thread), nil
}

// rendered returns the thread snapshot with content_html filled in.
func rendered(t *comments.Thread) []*comments.Comment {
	roots := t.Comments()
	comments.Walk(roots, func(c *comments.Comment) bool {
		c.ContentHTML = utils.RenderMarkdown(c.Content)
		return true
	})
	return roots
}

func threadBody(t *comments.Thread) gin.H {
	return gin.H{
		"comments": rendered(t),
		"count":    t.Len(),
		"is_admin": t.IsAdmin(),
	}
}

func (h *CommentHandler) begin(c *gin.Context) (context.Context, *toastCollector) {
	fb := &toastCollector{}
	return comments.WithFeedback(c.Request.Context(), fb), fb
}

// List 重新加载文章的评论树
func (h *CommentHandler) List(c *gin.Context) {
	ctx, fb := h.begin(c)
	t, err := h.thread(ctx, c, true)
	if err != nil {
		log.Printf("Error loading comment thread %s: %v", c.Param("slug"), err)
		RenderError(c, err, fb)
		return
	}
	JSON(c, http.StatusOK, threadBody(t), fb)
}

func (h *CommentHandler) Create(c *gin.Context) {
	ctx, fb := h.begin(c)
	var req contentRequest
	if err := c.ShouldBind(&req); err != nil {
		JSON(c, http.StatusBadRequest, gin.H{"error": "invalid request body"}, fb)
		return
	}

	t, err := h.thread(ctx, c, false)
	if err != nil {
		RenderError(c, err, fb)
		return
	}

	comment, err := t.SubmitComment(ctx, req.Content)
	if err != nil {
		RenderError(c, err, fb)
		return
	}
	comment.ContentHTML = utils.RenderMarkdown(comment.Content)

	body := threadBody(t)
	body["comment"] = comment
	JSON(c, http.StatusCreated, body, fb)
}

func (h *CommentHandler) Reply(c *gin.Context) {
	ctx, fb := h.begin(c)
	parentID, ok := utils.ParseID(c.Param("id"))
	if !ok {
		JSON(c, http.StatusBadRequest, gin.H{"error": "invalid comment id"}, fb)
		return
	}
	var req contentRequest
	if err := c.ShouldBind(&req); err != nil {
		JSON(c, http.StatusBadRequest, gin.H{"error": "invalid request body"}, fb)
		return
	}

	t, err := h.thread(ctx, c, false)
	if err != nil {
		RenderError(c, err, fb)
		return
	}

	reply, err := t.SubmitReply(ctx, parentID, req.Content)
	if err != nil {
		RenderError(c, err, fb)
		return
	}
	reply.ContentHTML = utils.RenderMarkdown(reply.Content)

	body := threadBody(t)
	body["comment"] = reply
	JSON(c, http.StatusCreated, body, fb)
}

func (h *CommentHandler) Like(c *gin.Context) {
	ctx, fb := h.begin(c)
	commentID, ok := utils.ParseID(c.Param("id"))
	if !ok {
		JSON(c, http.StatusBadRequest, gin.H{"error": "invalid comment id"}, fb)
		return
	}
	var req likeRequest
	if err := c.ShouldBind(&req); err != nil {
		JSON(c, http.StatusBadRequest, gin.H{"error": "invalid request body"}, fb)
		return
	}

	t, err := h.thread(ctx, c, false)
	if err != nil {
		RenderError(c, err, fb)
		return
	}

	res, err := t.ToggleLike(ctx, commentID, req.Liked)
	if err != nil {
		var se *comments.StoreError
		if errors.As(err, &se) {
			// 回滚后的状态
			JSON(c, statusFor(err), gin.H{"error": err.Error(), "like": res}, fb)
			return
		}
		RenderError(c, err, fb)
		return
	}
	JSON(c, http.StatusOK, gin.H{"like": res}, fb)
}

// Delete 删除评论及其所有回复，需要 ?confirm=true
func (h *CommentHandler) Delete(c *gin.Context) {
	ctx, fb := h.begin(c)
	commentID, ok := utils.ParseID(c.Param("id"))
	if !ok {
		JSON(c, http.StatusBadRequest, gin.H{"error": "invalid comment id"}, fb)
		return
	}

	t, err := h.thread(ctx, c, false)
	if err != nil {
		RenderError(c, err, fb)
		return
	}

	var prompt string
	confirmed := c.Query("confirm") == "true"
	err = t.DeleteComment(ctx, commentID, func(p string) bool {
		prompt = p
		return confirmed
	})
	if errors.Is(err, comments.ErrNotConfirmed) {
		JSON(c, http.StatusPreconditionRequired, gin.H{"error": err.Error(), "confirm": prompt}, fb)
		return
	}
	if err != nil {
		RenderError(c, err, fb)
		return
	}
	JSON(c, http.StatusOK, threadBody(t), fb)
}
