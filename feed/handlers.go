package feed

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"postfeed/apperr"
	"postfeed/filemgr"
	"postfeed/utils"

	"github.com/julienschmidt/httprouter"
)

const maxUploadSize = 10 << 20

// Uploader stores an uploaded image and returns its reference.
type Uploader interface {
	Save(header *multipart.FileHeader) (string, error)
}

type Handler struct {
	svc     *Service
	uploads Uploader
}

func NewHandler(svc *Service, uploads Uploader) *Handler {
	return &Handler{svc: svc, uploads: uploads}
}

// GetPosts handles GET /feed/posts?page=N
func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := h.svc.ListPosts(r.Context(), utils.ParsePage(r))
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":    "Posts fetched.",
		"posts":      page.Posts,
		"totalItems": page.TotalItems,
	})
}

// CreatePost handles POST /feed/post
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	in, err := h.readInput(w, r)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}

	post, creator, err := h.svc.CreatePost(r.Context(), userID, in)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message": "Post created!",
		"post":    post,
		"creator": creator,
	})
}

// GetPost handles GET /feed/post/:postId
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	post, err := h.svc.GetPost(r.Context(), ps.ByName("postId"))
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Post fetched.", "post": post})
}

// UpdatePost handles PUT /feed/post/:postId
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	in, err := h.readInput(w, r)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}

	post, err := h.svc.UpdatePost(r.Context(), userID, ps.ByName("postId"), in)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Post updated.", "post": post})
}

// DeletePost handles DELETE /feed/post/:postId
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		utils.SendError(w, r, err)
		return
	}
	if err := h.svc.DeletePost(r.Context(), userID, ps.ByName("postId")); err != nil {
		utils.SendError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Deleted post."})
}

// readInput accepts a JSON body or a (multipart) form. A file in the
// "image" form field is stored right away.
func (h *Handler) readInput(w http.ResponseWriter, r *http.Request) (PostInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Title   string `json:"title"`
			Content string `json:"content"`
			Image   string `json:"image"`
		}
		if err := utils.DecodeJSON(r, &body); err != nil {
			return PostInput{}, err
		}
		return PostInput{Title: body.Title, Content: body.Content, ImageURL: body.Image}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return PostInput{}, apperr.Validation("Invalid form data.")
	}

	in := PostInput{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		ImageURL: r.FormValue("image"),
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["image"]) == 0 {
		return in, nil
	}

	ref, err := h.uploads.Save(r.MultipartForm.File["image"][0])
	switch {
	case errors.Is(err, filemgr.ErrUnsupportedType):
		return PostInput{}, apperr.Validation("Unsupported image type.", apperr.FieldError{Field: "image", Message: "Only png, jpg and jpeg files are accepted."})
	case errors.Is(err, filemgr.ErrInvalidImage):
		return PostInput{}, apperr.Validation("Invalid image file.", apperr.FieldError{Field: "image", Message: "The file could not be read as an image."})
	case err != nil:
		return PostInput{}, apperr.Internal("Storing image failed.", err)
	}
	in.Upload = ref
	return in, nil
}
