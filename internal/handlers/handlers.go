package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"sudohumans/api/internal/config"
	"sudohumans/api/internal/docstore"
	"sudohumans/api/internal/middleware"
	"sudohumans/api/internal/repository"
	"sudohumans/api/internal/service"
)

// UserStore is the slice of the user repository the handlers consume.
type UserStore interface {
	Insert(ctx context.Context, doc bson.M) (docstore.Result, error)
	Update(ctx context.Context, id, rev string, doc bson.M) (docstore.Result, error)
	Get(ctx context.Context, id string) (bson.M, error)
	ListPublic(ctx context.Context) ([]bson.M, error)
	Delete(ctx context.Context, id, rev string) (docstore.Result, error)
	FieldInUse(ctx context.Context, field, value string) (bool, error)
}

type CollectiveStore interface {
	Insert(ctx context.Context, doc bson.M) (docstore.Result, error)
	Update(ctx context.Context, id, rev string, doc bson.M) (docstore.Result, error)
	Get(ctx context.Context, id string) (bson.M, error)
	List(ctx context.Context) ([]bson.M, error)
	Delete(ctx context.Context, id, rev string) (docstore.Result, error)
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	auth        Authenticator
	users       UserStore
	collectives CollectiveStore
	db          *docstore.Client
	cache       *redis.Client
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	users *repository.Users,
	collectives *repository.Collectives,
	db *docstore.Client,
	cache *redis.Client,
) HandlerSet {
	auth := service.NewAuthService(users, cache, cfg, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		auth:        auth,
		users:       users,
		collectives: collectives,
		db:          db,
		cache:       cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	v1 := router.Group("/v1")

	v1.GET("/healthz", h.Health)
	v1.POST("/authenticate", h.Authenticate)

	v1.GET("/explorer", h.Explorer)
	v1.GET("/explorer/openapi.json", h.ExplorerDocument)

	collectives := v1.Group("/collectives")
	{
		collectives.POST("", h.CreateCollective)
		collectives.GET("", h.ListCollectives)
		collectives.GET("/:collectiveId", h.GetCollective)
		collectives.PUT("/:collectiveId", h.UpdateCollective)
		collectives.DELETE("/:collectiveId", h.DeleteCollective)
	}

	// Signup is open; everything else on the user surface is admin-only.
	v1.POST("/users", h.CreateUser)

	admin := v1.Group("/users")
	admin.Use(
		middleware.Auth(h.cfg.Security.JWTSecret),
		middleware.RequireAdmin(h.cfg.DefaultUser.Username),
	)
	{
		admin.GET("", h.ListUsers)
		admin.GET("/:userId", h.GetUser)
		admin.PUT("/:userId", h.UpdateUser)
		admin.DELETE("/:userId", h.DeleteUser)
	}
}
