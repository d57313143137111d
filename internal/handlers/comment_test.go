package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yyblog/internal/comments"
	"yyblog/internal/middleware"
	"yyblog/internal/mocks"
	"yyblog/internal/models"
	"yyblog/internal/utils"
)

type stubArticles struct{}

func (stubArticles) GetArticle(ctx context.Context, slug string) (comments.Article, error) {
	return comments.Article{Slug: slug, Title: "Title of " + slug, OwnerID: "owner"}, nil
}

type response struct {
	Comments []*comments.Comment  `json:"comments"`
	Comment  *comments.Comment    `json:"comment"`
	Count    int                  `json:"count"`
	IsAdmin  bool                 `json:"is_admin"`
	Like     *comments.LikeResult `json:"like"`
	Error    string               `json:"error"`
	Confirm  string               `json:"confirm"`
	Toasts   []toast              `json:"toasts"`
}

// newCommentEngine signs requests in as the user named in the X-User header.
func newCommentEngine(store *mocks.MockCommentStore) *gin.Engine {
	return newCommentEngineWith(store, stubArticles{})
}

func newCommentEngineWith(store *mocks.MockCommentStore, articles ArticleResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-User"); id != "" {
			c.Set(middleware.SessionKey, &comments.Session{UserID: id, UserName: "name-" + id})
		}
		c.Next()
	})

	h := NewCommentHandler(store, nil, articles, func(s *comments.Session) bool {
		return s.UserID == "admin"
	}, utils.NewTTLCache[*comments.Thread](10, time.Minute))

	g := r.Group("/api/posts/:slug/comments")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/:id/replies", h.Reply)
	g.POST("/:id/like", h.Like)
	g.DELETE("/:id", h.Delete)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, user, body string) (int, response) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var res response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return w.Code, res
}

func seedPost(store *mocks.MockCommentStore) {
	parent := int64(1)
	store.Seed(models.Comment{ID: 1, PostSlug: "go", UserID: "a", UserName: "Alice", Content: "**hello**"})
	store.Seed(models.Comment{ID: 2, PostSlug: "go", UserID: "b", UserName: "Bob", Content: "hi", ParentID: &parent})
}

func TestCommentHandler_List(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedPost(store)
	r := newCommentEngine(store)

	code, res := do(t, r, http.MethodGet, "/api/posts/go/comments", "", "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, res.Count)
	require.Len(t, res.Comments, 1)
	assert.Contains(t, string(res.Comments[0].ContentHTML), "<strong>hello</strong>")
	require.Len(t, res.Comments[0].Replies, 1)
	assert.Equal(t, 1, res.Comments[0].Replies[0].Indent)
	assert.Empty(t, res.Toasts)
}

func TestCommentHandler_CreateAndReply(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedPost(store)
	r := newCommentEngine(store)

	code, res := do(t, r, http.MethodPost, "/api/posts/go/comments", "u1", `{"content":"nice"}`)
	assert.Equal(t, http.StatusCreated, code)
	require.NotNil(t, res.Comment)
	assert.Equal(t, "name-u1", res.Comment.UserName)
	assert.Equal(t, 3, res.Count)
	require.Len(t, res.Toasts, 1)
	assert.Equal(t, "评论发布成功！", res.Toasts[0].Message)

	code, res = do(t, r, http.MethodPost, "/api/posts/go/comments/2/replies", "u1", `{"content":"agreed"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Bob", res.Comment.ReplyTo)
	assert.Equal(t, 4, res.Count)
}

func TestCommentHandler_Errors(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedPost(store)
	r := newCommentEngine(store)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   string
		code   int
		toast  string
	}{
		{"anonymous comment", http.MethodPost, "/api/posts/go/comments", "", `{"content":"hi"}`, http.StatusUnauthorized, "请先登录"},
		{"empty comment", http.MethodPost, "/api/posts/go/comments", "u1", `{"content":"  "}`, http.StatusBadRequest, "请输入评论内容"},
		{"missing parent", http.MethodPost, "/api/posts/go/comments/99/replies", "u1", `{"content":"hi"}`, http.StatusNotFound, "回复的评论不存在"},
		{"bad id", http.MethodPost, "/api/posts/go/comments/abc/like", "u1", `{"liked":false}`, http.StatusBadRequest, ""},
		{"non-admin delete", http.MethodDelete, "/api/posts/go/comments/1?confirm=true", "u1", "", http.StatusForbidden, "您没有权限删除评论"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, res := do(t, r, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, res.Error)
			if tt.toast != "" {
				require.NotEmpty(t, res.Toasts)
				assert.Equal(t, tt.toast, res.Toasts[len(res.Toasts)-1].Message)
			}
		})
	}
	assert.Equal(t, 0, store.CallCount("InsertComment"))
	assert.Equal(t, 0, store.CallCount("DeleteComment"))
}

func TestCommentHandler_Like(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedPost(store)
	r := newCommentEngine(store)

	code, res := do(t, r, http.MethodPost, "/api/posts/go/comments/2/like", "u1", `{"liked":false}`)
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, res.Like)
	assert.True(t, res.Like.Liked)
	assert.Equal(t, 1, res.Like.LikeCount)
	assert.Equal(t, comments.LikeApplied, res.Like.Outcome)

	// 界面仍显示未点赞时再次点击
	code, res = do(t, r, http.MethodPost, "/api/posts/go/comments/2/like", "u1", `{"liked":false}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, comments.LikeAlreadyPresent, res.Like.Outcome)
	assert.Equal(t, 1, res.Like.LikeCount)
	assert.Equal(t, "你已点赞过", res.Toasts[0].Message)
	assert.Equal(t, 1, store.LikeRows(2))

	code, res = do(t, r, http.MethodPost, "/api/posts/go/comments/2/like", "u1", `{"liked":true}`)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, res.Like.Liked)
	assert.Equal(t, 0, store.LikeRows(2))
}

func TestCommentHandler_DeleteNeedsConfirmation(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedPost(store)
	r := newCommentEngine(store)

	code, res := do(t, r, http.MethodDelete, "/api/posts/go/comments/1", "admin", "")
	assert.Equal(t, http.StatusPreconditionRequired, code)
	assert.Equal(t, "确定要删除这条评论吗？", res.Confirm)
	assert.True(t, store.Has(1))

	code, res = do(t, r, http.MethodDelete, "/api/posts/go/comments/1?confirm=true", "admin", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, res.Comments)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, "评论删除成功", res.Toasts[0].Message)
	assert.False(t, store.Has(1))
	assert.False(t, store.Has(2))
}

func TestCommentHandler_MutationsPatchCachedThread(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedPost(store)
	r := newCommentEngine(store)

	do(t, r, http.MethodGet, "/api/posts/go/comments", "u1", "")
	listCalls := store.CallCount("ListComments")

	_, res := do(t, r, http.MethodPost, "/api/posts/go/comments", "u1", `{"content":"one"}`)
	assert.Equal(t, 3, res.Count)
	_, res = do(t, r, http.MethodPost, "/api/posts/go/comments", "u1", `{"content":"two"}`)
	assert.Equal(t, 4, res.Count)

	assert.Equal(t, listCalls, store.CallCount("ListComments"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(comments.ErrLikeInFlight))
	assert.Equal(t, http.StatusBadGateway, statusFor(&comments.StoreError{Op: "x", Message: "y"}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.Canceled))
}

// gatedArticles blocks every lookup until release is closed.
type gatedArticles struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedArticles) GetArticle(ctx context.Context, slug string) (comments.Article, error) {
	g.calls.Add(1)
	g.entered <- struct{}{}
	<-g.release
	return comments.Article{Slug: slug, Title: slug}, nil
}

func TestCommentHandler_ConcurrentMissesShareOneThread(t *testing.T) {
	store := mocks.NewMockCommentStore()
	seedPost(store)
	articles := &gatedArticles{entered: make(chan struct{}, 2), release: make(chan struct{})}
	r := newCommentEngineWith(store, articles)

	post := func(content string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/posts/go/comments", strings.NewReader(`{"content":"`+content+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User", "u1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	var wg sync.WaitGroup
	recorders := make([]*httptest.ResponseRecorder, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		recorders[0] = post("first")
	}()
	<-articles.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		recorders[1] = post("second")
	}()
	time.Sleep(50 * time.Millisecond)
	close(articles.release)
	wg.Wait()

	assert.Equal(t, int32(1), articles.calls.Load())
	counts := make([]int, 0, 2)
	for _, w := range recorders {
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var res response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		counts = append(counts, res.Count)
	}
	// 两次提交落在同一个 Thread 上
	assert.Contains(t, counts, 4)
	assert.Equal(t, 2, store.CallCount("InsertComment"))
}
