package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"postfeed/filemgr"
	"postfeed/globals"
	"postfeed/models"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gotest.tools/v3/assert"
)

type fakeUploads struct {
	ref   string
	err   error
	saved int
}

func (u *fakeUploads) Save(*multipart.FileHeader) (string, error) {
	u.saved++
	return u.ref, u.err
}

func asUser(r *http.Request, id primitive.ObjectID) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, id.Hex()))
}

func multipartBody(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		assert.NilError(t, mw.WriteField(k, v))
	}
	if withImage {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="img.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		assert.NilError(t, err)
		_, err = part.Write([]byte("png bytes"))
		assert.NilError(t, err)
	}
	assert.NilError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandlerCreatePostMultipart(t *testing.T) {
	f := newFixture()
	owner := f.users.add("Max")
	uploads := &fakeUploads{ref: "uploads/img.png"}
	h := NewHandler(f.svc, uploads)

	body, contentType := multipartBody(t, map[string]string{"title": "Hello", "content": "World"}, true)
	req := asUser(httptest.NewRequest(http.MethodPost, "/feed/post", body), owner.ID)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.CreatePost(rec, req, nil)

	assert.Equal(t, rec.Code, http.StatusCreated)
	got := decode(t, rec)
	assert.Equal(t, got["message"], "Post created!")
	post := got["post"].(map[string]any)
	assert.Equal(t, post["title"], "Hello")
	assert.Equal(t, post["imageUrl"], "uploads/img.png")
	assert.Equal(t, post["creator"], owner.ID.Hex())
	creator := got["creator"].(map[string]any)
	assert.Equal(t, creator["_id"], owner.ID.Hex())
	assert.Equal(t, creator["name"], "Max")
	assert.Equal(t, uploads.saved, 1)
}

func TestHandlerCreatePostWithoutFile(t *testing.T) {
	f := newFixture()
	owner := f.users.add("Max")
	h := NewHandler(f.svc, &fakeUploads{})

	body, contentType := multipartBody(t, map[string]string{"title": "Hello", "content": "World"}, false)
	req := asUser(httptest.NewRequest(http.MethodPost, "/feed/post", body), owner.ID)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.CreatePost(rec, req, nil)

	assert.Equal(t, rec.Code, http.StatusUnprocessableEntity)
	assert.Equal(t, decode(t, rec)["message"], "No file provided.")
	assert.Equal(t, f.posts.writes, 0)
}

func TestHandlerCreatePostUnsupportedImage(t *testing.T) {
	f := newFixture()
	owner := f.users.add("Max")
	h := NewHandler(f.svc, &fakeUploads{err: filemgr.ErrUnsupportedType})

	body, contentType := multipartBody(t, map[string]string{"title": "Hello", "content": "World"}, true)
	req := asUser(httptest.NewRequest(http.MethodPost, "/feed/post", body), owner.ID)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.CreatePost(rec, req, nil)

	assert.Equal(t, rec.Code, http.StatusUnprocessableEntity)
	got := decode(t, rec)
	assert.Equal(t, got["message"], "Unsupported image type.")
	data := got["data"].([]any)
	assert.Equal(t, data[0].(map[string]any)["param"], "image")
}

func TestHandlerCreatePostValidationData(t *testing.T) {
	f := newFixture()
	owner := f.users.add("Max")
	h := NewHandler(f.svc, &fakeUploads{ref: "uploads/img.png"})

	body, contentType := multipartBody(t, map[string]string{"title": "Hi", "content": "World"}, true)
	req := asUser(httptest.NewRequest(http.MethodPost, "/feed/post", body), owner.ID)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.CreatePost(rec, req, nil)

	assert.Equal(t, rec.Code, http.StatusUnprocessableEntity)
	got := decode(t, rec)
	assert.Equal(t, got["message"], "Validation failed, entered data is incorrect.")
	data := got["data"].([]any)
	assert.Equal(t, len(data), 1)
	assert.Equal(t, data[0].(map[string]any)["param"], "title")
}

func TestHandlerCreatePostUnauthenticated(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, &fakeUploads{})

	req := httptest.NewRequest(http.MethodPost, "/feed/post", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.CreatePost(rec, req, nil)

	assert.Equal(t, rec.Code, http.StatusUnauthorized)
}

func TestHandlerGetPosts(t *testing.T) {
	f := newFixture()
	owner := f.users.add("Max")
	base := time.Now()
	for i, title := range []string{"first", "second", "third"} {
		seedPost(t, f, owner, title, base.Add(time.Duration(i)*time.Minute))
	}
	h := NewHandler(f.svc, &fakeUploads{})

	req := asUser(httptest.NewRequest(http.MethodGet, "/feed/posts?page=2", nil), owner.ID)
	rec := httptest.NewRecorder()

	h.GetPosts(rec, req, nil)

	assert.Equal(t, rec.Code, http.StatusOK)
	got := decode(t, rec)
	assert.Equal(t, got["message"], "Posts fetched.")
	assert.Equal(t, got["totalItems"], float64(3))
	posts := got["posts"].([]any)
	assert.Equal(t, len(posts), 1)
	p := posts[0].(map[string]any)
	assert.Equal(t, p["title"], "first")
	assert.Equal(t, p["creator"].(map[string]any)["name"], "Max")
}

func TestHandlerGetPostsEmpty(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, &fakeUploads{})

	rec := httptest.NewRecorder()
	h.GetPosts(rec, httptest.NewRequest(http.MethodGet, "/feed/posts", nil), nil)

	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, strings.Contains(rec.Body.String(), `"posts":[]`), true)
}

func TestHandlerGetPost(t *testing.T) {
	f := newFixture()
	owner := f.users.add("Max")
	seeded := seedPost(t, f, owner, "hello", time.Now())
	h := NewHandler(f.svc, &fakeUploads{})

	rec := httptest.NewRecorder()
	ps := httprouter.Params{{Key: "postId", Value: seeded.ID.Hex()}}
	h.GetPost(rec, httptest.NewRequest(http.MethodGet, "/feed/post/"+seeded.ID.Hex(), nil), ps)

	assert.Equal(t, rec.Code, http.StatusOK)
	got := decode(t, rec)
	assert.Equal(t, got["message"], "Post fetched.")
	assert.Equal(t, got["post"].(map[string]any)["_id"], seeded.ID.Hex())

	rec = httptest.NewRecorder()
	ps = httprouter.Params{{Key: "postId", Value: "garbage"}}
	h.GetPost(rec, httptest.NewRequest(http.MethodGet, "/feed/post/garbage", nil), ps)
	assert.Equal(t, rec.Code, http.StatusNotFound)
	assert.Equal(t, decode(t, rec)["message"], "Post not found.")
}

func TestHandlerUpdatePostJSON(t *testing.T) {
	f := newFixture()
	owner := f.users.add("Max")
	seeded := seedPost(t, f, owner, "hello", time.Now())
	h := NewHandler(f.svc, &fakeUploads{})

	payload := `{"title":"Updated title","content":"Updated content","image":"` + seeded.ImageURL + `"}`
	req := asUser(httptest.NewRequest(http.MethodPut, "/feed/post/"+seeded.ID.Hex(), strings.NewReader(payload)), owner.ID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.UpdatePost(rec, req, httprouter.Params{{Key: "postId", Value: seeded.ID.Hex()}})

	assert.Equal(t, rec.Code, http.StatusOK)
	got := decode(t, rec)
	assert.Equal(t, got["message"], "Post updated.")
	post := got["post"].(map[string]any)
	assert.Equal(t, post["title"], "Updated title")
	assert.Equal(t, post["imageUrl"], seeded.ImageURL)
	assert.Equal(t, len(f.images.list()), 0)
}

func TestHandlerUpdatePostForeignImagePath(t *testing.T) {
	f := newFixture()
	owner := f.users.add("Max")
	seeded := seedPost(t, f, owner, "hello", time.Now())
	h := NewHandler(f.svc, &fakeUploads{})

	payload := `{"title":"Updated title","content":"Updated content","image":"images/someone-else.png"}`
	req := asUser(httptest.NewRequest(http.MethodPut, "/feed/post/"+seeded.ID.Hex(), strings.NewReader(payload)), owner.ID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.UpdatePost(rec, req, httprouter.Params{{Key: "postId", Value: seeded.ID.Hex()}})

	assert.Equal(t, rec.Code, http.StatusUnprocessableEntity)
	assert.Equal(t, decode(t, rec)["message"], "Problems with the image.")
	assert.Equal(t, len(f.images.list()), 0)
}

func TestHandlerUpdatePostForbidden(t *testing.T) {
	f := newFixture()
	owner := f.users.add("Max")
	other := f.users.add("Anna")
	seeded := seedPost(t, f, owner, "hello", time.Now())
	h := NewHandler(f.svc, &fakeUploads{})

	payload := `{"title":"Updated title","content":"Updated content","image":"uploads/other.png"}`
	req := asUser(httptest.NewRequest(http.MethodPut, "/feed/post/"+seeded.ID.Hex(), strings.NewReader(payload)), other.ID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.UpdatePost(rec, req, httprouter.Params{{Key: "postId", Value: seeded.ID.Hex()}})

	assert.Equal(t, rec.Code, http.StatusForbidden)
	assert.Equal(t, decode(t, rec)["message"], "Not authorized.")
}

func TestHandlerUpdatePostBadJSON(t *testing.T) {
	f := newFixture()
	owner := f.users.add("Max")
	h := NewHandler(f.svc, &fakeUploads{})

	req := asUser(httptest.NewRequest(http.MethodPut, "/feed/post/x", strings.NewReader("{")), owner.ID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.UpdatePost(rec, req, httprouter.Params{{Key: "postId", Value: "x"}})

	assert.Equal(t, rec.Code, http.StatusUnprocessableEntity)
}

func TestHandlerDeletePost(t *testing.T) {
	f := newFixture()
	owner := f.users.add("Max")
	seeded := seedPost(t, f, owner, "hello", time.Now())
	h := NewHandler(f.svc, &fakeUploads{})

	req := asUser(httptest.NewRequest(http.MethodDelete, "/feed/post/"+seeded.ID.Hex(), nil), owner.ID)
	rec := httptest.NewRecorder()

	h.DeletePost(rec, req, httprouter.Params{{Key: "postId", Value: seeded.ID.Hex()}})

	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, decode(t, rec)["message"], "Deleted post.")
	events := f.bus.list()
	assert.Equal(t, len(events), 1)
	assert.Equal(t, events[0].event, models.PostEvent{Action: models.ActionDelete, Post: seeded.ID.Hex()})
}
