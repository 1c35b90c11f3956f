package handlers

import (
	"context"
	"net/http"

	"github.com/AnshRaj112/clipstream-backend/internal/httputil"
	"github.com/AnshRaj112/clipstream-backend/internal/middleware"
	"github.com/AnshRaj112/clipstream-backend/internal/models"
	"github.com/AnshRaj112/clipstream-backend/internal/services"
	"github.com/AnshRaj112/clipstream-backend/pkg/apperr"
	"github.com/AnshRaj112/clipstream-backend/pkg/logger"
	"github.com/sirupsen/logrus"
)

type Registrar interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
}

type Accounts interface {
	Login(ctx context.Context, in services.LoginInput) (*models.User, *services.TokenPair, error)
	StartSession(ctx context.Context, u *models.User) (*services.TokenPair, error)
	Logout(ctx context.Context, id string) error
	Refresh(ctx context.Context, presented string) (*models.User, *services.TokenPair, error)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error
	CurrentUser(ctx context.Context, id string) (*models.User, error)
	UpdateDetails(ctx context.Context, id, fullName, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id, localPath string) (*models.User, error)
	UpdateCoverImage(ctx context.Context, id, localPath string) (*models.User, error)
	RemoveCoverImage(ctx context.Context, id string) (*models.User, error)
}

// UserHandler serves the /user routes.
type UserHandler struct {
	registrar Registrar
	accounts  Accounts
	uploads   Uploads
	cookies   Cookies
	log       logrus.FieldLogger
}

func NewUserHandler(registrar Registrar, accounts Accounts, uploads Uploads, cookies Cookies, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{
		registrar: registrar,
		accounts:  accounts,
		uploads:   uploads,
		cookies:   cookies,
		log:       logger.OrDefault(log),
	}
}

// SessionResponse is the data of register, login and refresh responses.
type SessionResponse struct {
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *UserHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, h.log, err)
}

// Register handles POST /user/register (multipart: avatar, coverImage).
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	st := &staged{}
	defer st.cleanup(r)

	if err := h.uploads.parse(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	avatarPath, err := h.uploads.save(r, st, "avatar")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	coverPath, err := h.uploads.save(r, st, "coverImage")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := h.registrar.Register(r.Context(), services.RegisterInput{
		Username:       r.FormValue("username"),
		Email:          r.FormValue("email"),
		FullName:       r.FormValue("fullName"),
		Password:       r.FormValue("password"),
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	pair, err := h.accounts.StartSession(r.Context(), u)
	if err != nil {
		h.log.WithError(err).WithField("user_id", u.ID).Error("registered user but could not start a session")
		h.fail(w, r, err)
		return
	}

	h.cookies.set(w, pair)
	httputil.WriteSuccess(w, http.StatusCreated, SessionResponse{
		User:         u,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "User registered successfully")
}

// Login handles POST /user/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	u, pair, err := h.accounts.Login(r.Context(), services.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.cookies.set(w, pair)
	httputil.WriteSuccess(w, http.StatusOK, SessionResponse{
		User:         u,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "User logged in successfully")
}

// Logout handles GET /user/logout.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, apperr.ErrUnauthorized)
		return
	}
	if err := h.accounts.Logout(r.Context(), u.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.cookies.clear(w)
	httputil.WriteSuccess(w, http.StatusOK, struct{}{}, "User logged out")
}

// RefreshToken handles POST /user/refresh-token. The token is read from the
// cookie, then the JSON body, then a Bearer header.
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var req RefreshRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
		presented = req.RefreshToken
	}
	if presented == "" {
		presented = middleware.BearerToken(r)
	}

	_, pair, err := h.accounts.Refresh(r.Context(), presented)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.cookies.set(w, pair)
	httputil.WriteSuccess(w, http.StatusOK, SessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "Access token refreshed")
}
