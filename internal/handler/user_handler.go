package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/userman/internal/model"
)

// maxRequestBodyBytes はリクエストボディの上限サイズ。
const maxRequestBodyBytes = 1 << 20

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// ListUsers は有効なユーザーの一覧を返す。
	ListUsers(ctx context.Context) ([]userResponse, error)
	// GetUser は指定IDのユーザーを返す。見つからない場合はnilを返す。
	GetUser(ctx context.Context, id int64) (*userResponse, error)
	// CreateUser はユーザーを作成する。
	CreateUser(ctx context.Context, in model.CreateUserInput) (*userResponse, error)
	// UpdateUser はユーザーを更新する。
	UpdateUser(ctx context.Context, id int64, in model.UpdateUserInput) (*userResponse, error)
	// DeleteUser はユーザーを論理削除する。見つからない場合はfalseを返す。
	DeleteUser(ctx context.Context, id int64) (bool, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// userResponse はユーザー情報のAPIレスポンス。パスワードは含めない。
type userResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	BirthDate civilDate       `json:"birth_date"`
	Phone     *string         `json:"phone"`
	Active    bool            `json:"active"`
	CreatedAt localTimestamp  `json:"created_at"`
	UpdatedAt *localTimestamp `json:"updated_at"`
}

// createUserRequest はユーザー作成リクエストのボディ。
type createUserRequest struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	BirthDate civilDate `json:"birth_date"`
	Phone     *string   `json:"phone"`
}

// updateUserRequest はユーザー更新リクエストのボディ。
// activeを省略した場合はfalseとして扱う。
type updateUserRequest struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	BirthDate civilDate `json:"birth_date"`
	Phone     *string   `json:"phone"`
	Active    bool      `json:"active"`
}

// ListUsers は有効なユーザーの一覧を返す。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []userResponse{}
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUser はユーザー詳細を返す。論理削除済みのユーザーも返す。
// GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if u == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(id))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// CreateUser はユーザーを作成する。
// POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.service.CreateUser(r.Context(), model.CreateUserInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		BirthDate: req.BirthDate.Time(),
		Phone:     req.Phone,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/users/%d", u.ID))
	writeJSON(w, http.StatusCreated, u)
}

// UpdateUser はユーザーを更新する。
// PUT /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.service.UpdateUser(r.Context(), id, model.UpdateUserInput{
		Name:      req.Name,
		Email:     req.Email,
		BirthDate: req.BirthDate.Time(),
		Phone:     req.Phone,
		Active:    req.Active,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUser はユーザーを論理削除する。
// DELETE /api/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteUser(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !deleted {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetupUserRoutes はユーザー管理関連のルーティングを設定したchi.Routerを返す。
func SetupUserRoutes(service UserServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewUserHandler(service)
	mountUserRoutes(r, h, nil)
	return r
}

// mountUserRoutes は/api/users以下のルートを登録する。
// writeMiddlewareが指定された場合は更新系のルートにのみ適用する。
func mountUserRoutes(r chi.Router, h *UserHandler, writeMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/users", func(r chi.Router) {
		writes := r.With()
		if writeMiddleware != nil {
			writes = r.With(writeMiddleware)
		}

		r.Get("/", h.ListUsers)
		writes.Post("/", h.CreateUser)

		r.Route("/{id}", func(r chi.Router) {
			writes := r.With()
			if writeMiddleware != nil {
				writes = r.With(writeMiddleware)
			}

			r.Get("/", h.GetUser)
			writes.Put("/", h.UpdateUser)
			writes.Delete("/", h.DeleteUser)
		})
	})
}

// --- ヘルパー関数 ---

// parseUserID はURLパラメータからユーザーIDを取得する。
// 不正な値の場合は400を書き込みfalseを返す。
func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUserIDError(raw))
		return 0, false
	}
	return id, true
}

// decodeBody はリクエストボディをJSONとしてデコードする。
// 失敗した場合は400を書き込みfalseを返す。
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return false
	}
	return true
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		BirthDate: civilDate(u.BirthDate),
		Phone:     u.Phone,
		Active:    u.Active,
		CreatedAt: localTimestamp(u.CreatedAt),
		UpdatedAt: newLocalTimestamp(u.UpdatedAt),
	}
}
