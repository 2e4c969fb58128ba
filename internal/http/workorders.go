package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/service"
)

type createWorkorderRequest struct {
	QRCode   string `json:"qrcode" binding:"required"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Priority int    `json:"priority"`
}

type editWorkorderRequest struct {
	QRCode   *string                 `json:"qrcode"`
	Title    *string                 `json:"title"`
	Detail   *string                 `json:"detail"`
	Priority *int                    `json:"priority"`
	Status   *domain.WorkorderStatus `json:"status"`
}

type addCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) listWorkorders(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(c, domain.E(domain.KindInvalidInput, "invalid limit", nil))
			return
		}
		limit = n
	}

	page, err := h.workorders.List(c.Request.Context(), c.Query("cursor"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageToResponse(page))
}

func (h *Handler) getWorkorder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	wo, err := h.workorders.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, workorderToResponse(*wo))
}

func (h *Handler) getWorkorderByQRCode(c *gin.Context) {
	wo, err := h.workorders.GetByQRCode(c.Request.Context(), c.Param("qrcode"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, workorderToResponse(*wo))
}

func (h *Handler) createWorkorder(c *gin.Context) {
	var req createWorkorderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	wo, err := h.workorders.Create(c.Request.Context(), viewer(c), service.WorkorderInput{
		QRCode:   req.QRCode,
		Title:    req.Title,
		Detail:   req.Detail,
		Priority: req.Priority,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, workorderToResponse(*wo))
}

func (h *Handler) editWorkorder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req editWorkorderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	wo, err := h.workorders.Edit(c.Request.Context(), id, domain.WorkorderPatch{
		QRCode:   req.QRCode,
		Title:    req.Title,
		Detail:   req.Detail,
		Priority: req.Priority,
		Status:   req.Status,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, workorderToResponse(*wo))
}

func (h *Handler) deleteWorkorder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.workorders.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) listComments(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	comments, err := h.comments.ListByWorkorder(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]CommentResponse, len(comments))
	for i := range comments {
		resp[i] = commentToResponse(comments[i])
	}
	c.JSON(http.StatusOK, resp)
}

// addComment accepts JSON, or a multipart form with a text field and an optional photo file.
func (h *Handler) addComment(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	in := service.CommentInput{WorkorderID: id}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		in.Text = c.PostForm("text")
		header, err := c.FormFile("photo")
		switch {
		case err == nil:
			file, err := header.Open()
			if err != nil {
				h.writeError(c, domain.E(domain.KindInvalidInput, "unreadable photo", err))
				return
			}
			defer file.Close()
			in.Photo = &service.Photo{
				Body:        file,
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
			}
		case !errors.Is(err, http.ErrMissingFile):
			h.writeError(c, domain.E(domain.KindInvalidInput, "invalid multipart form", err))
			return
		}
	} else {
		var req addCommentRequest
		if !h.bindJSON(c, &req) {
			return
		}
		in.Text = req.Text
	}

	comment, err := h.comments.Add(c.Request.Context(), viewer(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentToResponse(*comment))
}

func (h *Handler) deleteComment(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.comments.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
