package handler

import (
	"errors"
	"go-blog-app/internal/data"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/view"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// ImageStore persists uploaded post images.
type ImageStore interface {
	Save(r io.Reader) (string, error)
	Remove(name string) error
}

// BlogHandler holds the dependencies for the post and comment handlers.
type BlogHandler struct {
	posts     service.PostServicer
	comments  service.CommentServicer
	images    ImageStore
	maxUpload int64
	view      *view.View
	log       logger.Logger
}

// NewBlogHandler creates a new BlogHandler. images may be nil, in which
// case uploads are ignored.
func NewBlogHandler(ps service.PostServicer, cs service.CommentServicer, images ImageStore, maxUploadBytes int64, v *view.View, log logger.Logger) *BlogHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}
	return &BlogHandler{
		posts:     ps,
		comments:  cs,
		images:    images,
		maxUpload: maxUploadBytes,
		view:      v,
		log:       log,
	}
}

// index renders the public post feed.
func (h *BlogHandler) index(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.posts.ListPublic(r.Context(), pageNumber(r))
	if err != nil {
		return serviceError(w, r, err, "/")
	}
	return render(h.view, w, r, "index.html", map[string]interface{}{
		"Posts": page.Posts,
		"Page":  page.Page,
	})
}

// categoryPosts renders the visible posts of a published category.
func (h *BlogHandler) categoryPosts(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.posts.ListCategory(r.Context(), chi.URLParam(r, "slug"), pageNumber(r))
	if err != nil {
		return serviceError(w, r, err, "/")
	}
	return render(h.view, w, r, "category.html", map[string]interface{}{
		"Category": page.Category,
		"Posts":    page.Posts,
		"Page":     page.Page,
	})
}

// postDetail renders a post with its comments.
func (h *BlogHandler) postDetail(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, ae := idParam(r, "id")
	if ae != nil {
		return ae
	}
	return h.renderDetail(w, r, id, nil, nil)
}

func (h *BlogHandler) renderDetail(w http.ResponseWriter, r *http.Request, id int64, form map[string]string, errs service.ValidationErrors) *middleware.AppError {
	v := viewer(r)
	post, err := h.posts.GetPost(r.Context(), v, id)
	if err != nil {
		return serviceError(w, r, err, "/")
	}
	comments, err := h.comments.ListForPost(r.Context(), id)
	if err != nil {
		return serviceError(w, r, err, "/")
	}
	vars := map[string]interface{}{
		"Post":     post,
		"Comments": comments,
		"IsOwner":  service.IsOwner(v, post.AuthorID),
	}
	if form != nil {
		vars["Form"] = form
	}
	if errs != nil {
		vars["Errors"] = errs
	}
	return render(h.view, w, r, "detail.html", vars)
}

// createPost shows and processes the new post form.
func (h *BlogHandler) createPost(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !requireLogin(w, r) {
		return nil
	}
	if r.Method == http.MethodPost {
		return h.savePost(w, r, nil)
	}
	form := map[string]string{"pub_date": time.Now().Format(view.InputDateLayout)}
	return h.renderPostForm(w, r, nil, form, nil)
}

// editPost shows and processes the edit form of the viewer's post.
// Other users are sent back to the post.
func (h *BlogHandler) editPost(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, ae := idParam(r, "id")
	if ae != nil {
		return ae
	}
	post, err := h.posts.GetPostForEdit(r.Context(), viewer(r), id)
	if err != nil {
		return serviceError(w, r, err, postURL(id))
	}
	if r.Method == http.MethodPost {
		return h.savePost(w, r, post)
	}
	return h.renderPostForm(w, r, post, postFormValues(post), nil)
}

// deletePost asks for confirmation and deletes the viewer's post.
func (h *BlogHandler) deletePost(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, ae := idParam(r, "id")
	if ae != nil {
		return ae
	}
	v := viewer(r)
	if r.Method != http.MethodPost {
		post, err := h.posts.GetPostForEdit(r.Context(), v, id)
		if err != nil {
			return serviceError(w, r, err, postURL(id))
		}
		return render(h.view, w, r, "delete.html", map[string]interface{}{"Post": post})
	}

	post, err := h.posts.DeletePost(r.Context(), v, id)
	if err != nil {
		return serviceError(w, r, err, postURL(id))
	}
	h.removeImage(post.Image)
	http.Redirect(w, r, profileURL(v.Username), http.StatusFound)
	return nil
}

// savePost handles a submitted post form. existing is nil on create.
func (h *BlogHandler) savePost(w http.ResponseWriter, r *http.Request, existing *data.Post) *middleware.AppError {
	if ae := h.parseMultipart(w, r); ae != nil {
		return ae
	}
	in, form, errs := parsePostForm(r)

	image, err := h.storeImage(r)
	if err != nil {
		msg, ok := imageError(err)
		if !ok {
			return &middleware.AppError{Error: err, Message: "Failed to store image", Code: http.StatusInternalServerError}
		}
		errs.Add("image", msg)
	}
	if len(errs) > 0 {
		h.removeImage(image)
		return h.renderPostForm(w, r, existing, form, errs)
	}
	in.Image = image

	v := viewer(r)
	var post *data.Post
	oldImage := ""
	if existing == nil {
		post, err = h.posts.CreatePost(r.Context(), v, in)
	} else {
		oldImage = existing.Image
		post, err = h.posts.UpdatePost(r.Context(), v, existing.ID, in)
	}
	if err != nil {
		h.removeImage(image)
		if verrs, ok := service.AsValidation(err); ok {
			return h.renderPostForm(w, r, existing, form, verrs)
		}
		redirect := "/"
		if existing != nil {
			redirect = postURL(existing.ID)
		}
		return serviceError(w, r, err, redirect)
	}

	if existing == nil {
		h.log.Info("Post created: " + postURL(post.ID))
		http.Redirect(w, r, profileURL(v.Username), http.StatusFound)
		return nil
	}
	if image != "" && oldImage != "" && oldImage != image {
		h.removeImage(oldImage)
	}
	http.Redirect(w, r, postURL(post.ID), http.StatusFound)
	return nil
}

func (h *BlogHandler) renderPostForm(w http.ResponseWriter, r *http.Request, existing *data.Post, form map[string]string, errs service.ValidationErrors) *middleware.AppError {
	choices, err := h.posts.FormChoices(r.Context(), existing)
	if err != nil {
		return serviceError(w, r, err, "/")
	}
	if errs == nil {
		errs = service.ValidationErrors{}
	}
	action := "/posts/create/"
	if existing != nil {
		action = postURL(existing.ID) + "edit/"
	}
	return render(h.view, w, r, "create.html", map[string]interface{}{
		"IsEdit":  existing != nil,
		"Action":  action,
		"Choices": choices,
		"Form":    form,
		"Errors":  errs,
	})
}

// parseMultipart parses the form body within the upload size limit.
func (h *BlogHandler) parseMultipart(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	err := r.ParseMultipartForm(1 << 20)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &middleware.AppError{Error: err, Message: "Request body too large", Code: http.StatusRequestEntityTooLarge}
	}
	return &middleware.AppError{Error: err, Message: "Bad Request", Code: http.StatusBadRequest}
}

// storeImage saves the uploaded image, if any, and returns its name.
func (h *BlogHandler) storeImage(r *http.Request) (string, error) {
	if h.images == nil || r.MultipartForm == nil {
		return "", nil
	}
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()
	return h.images.Save(file)
}

func (h *BlogHandler) removeImage(name string) {
	if h.images == nil || name == "" {
		return
	}
	if err := h.images.Remove(name); err != nil {
		h.log.Error(err, "Failed to remove image "+name)
	}
}
