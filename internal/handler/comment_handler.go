package handler

import (
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"net/http"
)

// addComment stores a comment on a post. An empty comment redisplays the
// post with the error.
func (h *BlogHandler) addComment(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, ae := idParam(r, "id")
	if ae != nil {
		return ae
	}
	text := r.PostFormValue("text")
	_, err := h.comments.AddComment(r.Context(), viewer(r), id, text)
	if err != nil {
		if verrs, ok := service.AsValidation(err); ok {
			return h.renderDetail(w, r, id, map[string]string{"text": text}, verrs)
		}
		return serviceError(w, r, err, postURL(id))
	}
	http.Redirect(w, r, postURL(id), http.StatusFound)
	return nil
}

// editComment shows and processes the edit form of the viewer's comment.
func (h *BlogHandler) editComment(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	postID, commentID, ae := commentParams(r)
	if ae != nil {
		return ae
	}
	v := viewer(r)
	comment, err := h.comments.GetCommentForEdit(r.Context(), v, postID, commentID)
	if err != nil {
		return serviceError(w, r, err, postURL(postID))
	}

	form := map[string]string{"text": comment.Text}
	errs := service.ValidationErrors{}
	if r.Method == http.MethodPost {
		form["text"] = r.PostFormValue("text")
		_, err := h.comments.UpdateComment(r.Context(), v, postID, commentID, form["text"])
		if err == nil {
			http.Redirect(w, r, postURL(postID), http.StatusFound)
			return nil
		}
		verrs, ok := service.AsValidation(err)
		if !ok {
			return serviceError(w, r, err, postURL(postID))
		}
		errs = verrs
	}
	return render(h.view, w, r, "comment.html", map[string]interface{}{
		"PostID":  postID,
		"Comment": comment,
		"Form":    form,
		"Errors":  errs,
	})
}

// deleteComment asks for confirmation and deletes the viewer's comment.
func (h *BlogHandler) deleteComment(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	postID, commentID, ae := commentParams(r)
	if ae != nil {
		return ae
	}
	v := viewer(r)
	if r.Method == http.MethodPost {
		if err := h.comments.DeleteComment(r.Context(), v, postID, commentID); err != nil {
			return serviceError(w, r, err, postURL(postID))
		}
		http.Redirect(w, r, postURL(postID), http.StatusFound)
		return nil
	}
	comment, err := h.comments.GetCommentForEdit(r.Context(), v, postID, commentID)
	if err != nil {
		return serviceError(w, r, err, postURL(postID))
	}
	return render(h.view, w, r, "comment.html", map[string]interface{}{
		"PostID":  postID,
		"Comment": comment,
		"Delete":  true,
	})
}

func commentParams(r *http.Request) (int64, int64, *middleware.AppError) {
	postID, ae := idParam(r, "id")
	if ae != nil {
		return 0, 0, ae
	}
	commentID, ae := idParam(r, "cid")
	if ae != nil {
		return 0, 0, ae
	}
	return postID, commentID, nil
}
