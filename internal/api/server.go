package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/krzysztof-programista/NotesApp/internal/api/auth"
	"github.com/krzysztof-programista/NotesApp/internal/api/middleware"
	"github.com/krzysztof-programista/NotesApp/internal/config"
	"github.com/krzysztof-programista/NotesApp/internal/model"
	"github.com/krzysztof-programista/NotesApp/internal/pkg/cache"
	"github.com/krzysztof-programista/NotesApp/internal/pkg/mailqueue"
	"github.com/krzysztof-programista/NotesApp/internal/pkg/metrics"
	"github.com/krzysztof-programista/NotesApp/internal/pkg/notify"
	"github.com/krzysztof-programista/NotesApp/internal/pkg/token"
	"github.com/krzysztof-programista/NotesApp/internal/store"
)

// Server 封装了 API 服务所需的依赖和路由处理。
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         *gorm.DB
	rdb        *redis.Client
	router     *gin.Engine
	auth       *auth.Handler
	mails      *mailqueue.Queue
	notes      NoteStore
	notesCache *cache.NotesCache
}

// NoteStore 是笔记接口所需的仓库操作。
type NoteStore interface {
	Create(ctx context.Context, userID uint, title, text string) (*model.Note, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Note, error)
	Update(ctx context.Context, id, callerID uint, title, text string) error
	Delete(ctx context.Context, id, callerID uint) error
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库、执行自动迁移并设置连接池上限
// 2. 连接 Redis
// 3. 初始化令牌服务、邮件队列与 Gin 路由引擎
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Note{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetConnMaxIdleTime(30 * time.Second)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	tokens, err := token.NewService(cfg.Security.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	metrics.InitMetrics(cfg.App.MailWorkers)

	emailNotifier := notify.NewEmailNotifier(&cfg.Email, logger)
	mails := mailqueue.NewQueue(logger, cfg.App.MailWorkers, cfg.App.MailQueueCapacity)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.App.CORSOrigin},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	s := &Server{
		cfg:    cfg,
		logger: logger,
		db:     db,
		rdb:    rdb,
		router: r,
		auth: auth.NewHandler(store.NewUsers(db), tokens, emailNotifier, mails, logger,
			cfg.App.ActivationBaseURL, cfg.Security.SessionTokenTTL, cfg.Security.ActivationTokenTTL),
		mails:      mails,
		notes:      store.NewNotes(db),
		notesCache: cache.NewNotesCache(rdb, cfg.App.NotesCacheTTL),
	}
	s.registerRoutes(tokens)
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// StartMailWorkers 启动邮件投递 worker 池。
func (s *Server) StartMailWorkers(ctx context.Context) {
	s.mails.Start(ctx)
}

// Close 释放服务器持有的资源。
func (s *Server) Close() error {
	s.mails.Shutdown()

	var errs []error
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.rdb.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes(tokens *token.Service) {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	s.router.POST("/register", s.auth.Register)
	s.router.POST("/login", s.auth.Login)
	s.router.GET("/activate/:token", s.auth.Activate)

	authed := s.router.Group("/")
	authed.Use(middleware.Auth(tokens))
	authed.GET("/notes", s.handleListNotes)
	authed.POST("/newNote", s.handleCreateNote)
	authed.PATCH("/editNote", s.handleEditNote)
	authed.DELETE("/deleteNote", s.handleDeleteNote)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type noteResponse struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	NoteText string `json:"note_text"`
}

type createNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type editNoteRequest struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type deleteNoteRequest struct {
	ID uint `json:"id"`
}

func (s *Server) handleListNotes(c *gin.Context) {
	userID := uint(getUserID(c))
	ctx := c.Request.Context()

	if payload, hit, err := s.notesCache.Get(ctx, userID); err == nil && hit {
		metrics.NoteOpsTotal.WithLabelValues("list_cached").Inc()
		c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
		return
	} else if err != nil {
		s.logger.Warn("notes cache read failed", slog.String("error", err.Error()))
	}

	notes, err := s.notes.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("list notes failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
		return
	}

	resp := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, noteResponse{ID: n.ID, Title: n.Title, NoteText: n.NoteText})
	}

	if payload, err := json.Marshal(resp); err == nil {
		if err := s.notesCache.Set(ctx, userID, payload); err != nil {
			s.logger.Warn("notes cache write failed", slog.String("error", err.Error()))
		}
	}

	metrics.NoteOpsTotal.WithLabelValues("list").Inc()
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateNote(c *gin.Context) {
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	userID := uint(getUserID(c))
	note, err := s.notes.Create(c.Request.Context(), userID, req.Title, req.Content)
	if err != nil {
		s.logger.Error("create note failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
		return
	}

	s.invalidateNotesCache(c, userID)

	metrics.NoteOpsTotal.WithLabelValues("create").Inc()
	c.JSON(http.StatusOK, gin.H{
		"message": "Note has been added successfully.",
		"noteId":  note.ID,
	})
}

func (s *Server) handleEditNote(c *gin.Context) {
	var req editNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	userID := uint(getUserID(c))
	if err := s.notes.Update(c.Request.Context(), req.ID, userID, req.Title, req.Content); err != nil {
		s.respondNoteError(c, "update note", err)
		return
	}

	s.invalidateNotesCache(c, userID)

	metrics.NoteOpsTotal.WithLabelValues("edit").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Note has been updated successfully."})
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	var req deleteNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	userID := uint(getUserID(c))
	if err := s.notes.Delete(c.Request.Context(), req.ID, userID); err != nil {
		s.respondNoteError(c, "delete note", err)
		return
	}

	s.invalidateNotesCache(c, userID)

	metrics.NoteOpsTotal.WithLabelValues("delete").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Note has been deleted successfully."})
}

// respondNoteError 统一处理笔记写操作的错误映射。
//
// 归属不符返回 403：笔记的修改和删除必须以鉴权身份为准，
// 不能信任客户端提交的任何 ID。
func (s *Server) respondNoteError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Note not found."})
	case errors.Is(err, store.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"message": "You do not have access to this note."})
	default:
		s.logger.Error(op+" failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error."})
	}
}

func (s *Server) invalidateNotesCache(c *gin.Context, userID uint) {
	if err := s.notesCache.Invalidate(c.Request.Context(), userID); err != nil {
		s.logger.Warn("notes cache invalidate failed", slog.String("error", err.Error()))
	}
}

func getUserID(c *gin.Context) int {
	return c.GetInt("userID")
}
