package http

import (
	"time"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/pagination"
	"workorder-tracker/internal/service"
)

type UserResponse struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Username  string      `json:"username"`
	Phone     string      `json:"phone,omitempty"`
	Role      domain.Role `json:"role"`
	Enrolled  bool        `json:"enrolled"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

type SessionResponse struct {
	Token            string        `json:"token,omitempty"`
	User             *UserResponse `json:"user,omitempty"`
	AuthyID          string        `json:"authy_id,omitempty"`
	Phone            string        `json:"phone,omitempty"`
	ChallengePending bool          `json:"challenge_pending"`
}

type WorkorderResponse struct {
	ID        int64                  `json:"id"`
	QRCode    string                 `json:"qrcode"`
	Title     string                 `json:"title"`
	Detail    string                 `json:"detail"`
	Priority  int                    `json:"priority"`
	Status    domain.WorkorderStatus `json:"status"`
	UserID    int64                  `json:"user_id"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
}

type PageInfo struct {
	HasNextPage bool    `json:"has_next_page"`
	EndCursor   *string `json:"end_cursor"`
}

type WorkorderPageResponse struct {
	Edges    []WorkorderResponse `json:"edges"`
	PageInfo PageInfo            `json:"page_info"`
}

type CommentResponse struct {
	ID          int64  `json:"id"`
	Text        string `json:"text"`
	Image       string `json:"image,omitempty"`
	WorkorderID int64  `json:"workorder_id"`
	UserID      int64  `json:"user_id"`
	CreatedAt   string `json:"created_at"`
}

func userToResponse(user *domain.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Phone:     user.Phone,
		Role:      user.Role,
		Enrolled:  user.Enrolled(),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func sessionToResponse(res *service.SignInResult) SessionResponse {
	return SessionResponse{
		Token:            res.Token,
		User:             userToResponse(res.User),
		AuthyID:          res.AuthyID,
		Phone:            res.MaskedPhone,
		ChallengePending: res.ChallengePending,
	}
}

func workorderToResponse(wo domain.Workorder) WorkorderResponse {
	return WorkorderResponse{
		ID:        wo.ID,
		QRCode:    wo.QRCode,
		Title:     wo.Title,
		Detail:    wo.Detail,
		Priority:  wo.Priority,
		Status:    wo.Status,
		UserID:    wo.UserID,
		CreatedAt: wo.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: wo.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func workordersToResponse(items []domain.Workorder) []WorkorderResponse {
	resp := make([]WorkorderResponse, len(items))
	for i := range items {
		resp[i] = workorderToResponse(items[i])
	}
	return resp
}

func pageToResponse(page pagination.Page[domain.Workorder]) WorkorderPageResponse {
	return WorkorderPageResponse{
		Edges: workordersToResponse(page.Items),
		PageInfo: PageInfo{
			HasNextPage: page.HasNextPage,
			EndCursor:   page.EndCursor,
		},
	}
}

func commentToResponse(comment domain.Comment) CommentResponse {
	return CommentResponse{
		ID:          comment.ID,
		Text:        comment.Text,
		Image:       comment.Image,
		WorkorderID: comment.WorkorderID,
		UserID:      comment.UserID,
		CreatedAt:   comment.CreatedAt.Format(time.RFC3339),
	}
}
