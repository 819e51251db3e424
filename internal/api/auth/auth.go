package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/krzysztof-programista/NotesApp/internal/model"
	"github.com/krzysztof-programista/NotesApp/internal/pkg/mailqueue"
	"github.com/krzysztof-programista/NotesApp/internal/pkg/metrics"
	"github.com/krzysztof-programista/NotesApp/internal/pkg/password"
	"github.com/krzysztof-programista/NotesApp/internal/pkg/token"
	"github.com/krzysztof-programista/NotesApp/internal/store"
)

// UserStore 是注册/登录/激活所需的用户目录操作。
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, email, passwordHash string) (*model.User, error)
	Activate(ctx context.Context, id uint) (*model.User, error)
}

// Mailer 发送激活邮件。
type Mailer interface {
	SendActivationLink(toEmail string, activationLink string) error
}

// Handler 提供注册、登录与账号激活接口。
type Handler struct {
	users  UserStore
	tokens *token.Service
	mailer Mailer
	mails  *mailqueue.Queue
	logger *slog.Logger

	activationBaseURL string
	sessionTTL        time.Duration
	activationTTL     time.Duration
}

// NewHandler 创建 Auth Handler。
func NewHandler(users UserStore, tokens *token.Service, mailer Mailer, mails *mailqueue.Queue,
	logger *slog.Logger, activationBaseURL string, sessionTTL, activationTTL time.Duration) *Handler {
	return &Handler{
		users:             users,
		tokens:            tokens,
		mailer:            mailer,
		mails:             mails,
		logger:            logger,
		activationBaseURL: activationBaseURL,
		sessionTTL:        sessionTTL,
		activationTTL:     activationTTL,
	}
}

type registerRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type publicUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Register 创建一个未激活的新账号并异步发送激活邮件。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required."})
		return
	}
	if req.Password != req.PasswordConfirm {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Passwords must be identical."})
		return
	}
	if err := password.Validate(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))

	// 预检查只是快速路径，真正的判定是唯一索引（见 store.Create）
	_, err := h.users.FindByEmail(c.Request.Context(), email)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "A user with this email already exists."})
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("query user failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
		return
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
		return
	}

	user, err := h.users.Create(c.Request.Context(), email, hash)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "A user with this email already exists."})
			return
		}
		h.logger.Error("create user failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
		return
	}

	activationToken, err := h.tokens.Issue(user.ID, user.Email, token.KindActivation, h.activationTTL)
	if err != nil {
		h.logger.Error("sign activation token failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
		return
	}

	// 邮件发送是尽力而为的：失败只记录，不回滚已创建的账号
	h.enqueueActivationMail(user.Email, activationToken)

	metrics.RegistrationsTotal.Inc()
	h.logger.Info("user registered", slog.String("email", email))
	c.JSON(http.StatusOK, gin.H{"message": "Activation email has been sent. Check your inbox to activate your account."})
}

// Login 校验凭据并签发会话令牌。
//
// 不存在的账号和错误的密码返回同样的提示，避免账号枚举。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required."})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.users.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.Error("query user failed", slog.String("email", email), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
			return
		}
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email or password."})
		return
	}

	if !user.IsActivated {
		metrics.LoginsTotal.WithLabelValues("not_activated").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "Account has not been activated yet. Click the link in the activation email."})
		return
	}

	if err := password.Verify(req.Password, user.Password); err != nil {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email or password."})
		return
	}

	sessionToken, err := h.tokens.Issue(user.ID, user.Email, token.KindSession, h.sessionTTL)
	if err != nil {
		h.logger.Error("sign session token failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
		return
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	h.logger.Info("user logged in", slog.String("email", email))
	c.JSON(http.StatusOK, gin.H{
		"token": sessionToken,
		"user":  publicUser{ID: user.ID, Username: user.Email},
	})
}

// Activate 消费激活令牌，将账号从未激活翻转为已激活。
//
// 令牌本身通过校验后还要检查账号状态：已激活的账号
// 即使拿着密码学上仍然有效的令牌也会被拒绝。
func (h *Handler) Activate(c *gin.Context) {
	tokenStr := c.Param("token")

	claims, err := h.tokens.Verify(tokenStr, token.KindActivation)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Activation token has expired. Request a new activation link."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid activation token."})
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid activation token."})
		return
	}

	user, err := h.users.Activate(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		case errors.Is(err, store.ErrAlreadyActivated):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Account is already activated."})
		default:
			h.logger.Error("activate account failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
		}
		return
	}

	metrics.ActivationsTotal.Inc()
	h.logger.Info("account activated", slog.String("email", user.Email))
	c.JSON(http.StatusOK, gin.H{"message": "Account has been successfully activated."})
}

func (h *Handler) enqueueActivationMail(email, activationToken string) {
	link := h.activationBaseURL + activationToken
	enqueued := h.mails.Enqueue(func(ctx context.Context) error {
		if err := h.mailer.SendActivationLink(email, link); err != nil {
			metrics.ActivationMailsTotal.WithLabelValues("failed").Inc()
			return err
		}
		metrics.ActivationMailsTotal.WithLabelValues("sent").Inc()
		return nil
	})
	if !enqueued {
		metrics.ActivationMailsTotal.WithLabelValues("dropped").Inc()
		h.logger.Warn("activation mail dropped", slog.String("email", email))
	}
}
