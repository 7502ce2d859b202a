package container

import (
	"context"
	"fmt"
	"time"

	"catalog-backend/internal/config"
	infraCache "catalog-backend/internal/infrastructure/cache"
	"catalog-backend/internal/infrastructure/database"
	"catalog-backend/internal/infrastructure/storage"
	"catalog-backend/pkg/cache"
	"catalog-backend/pkg/jwt"

	catalogHandler "catalog-backend/internal/domains/catalog/handler"
	"catalog-backend/internal/domains/catalog/model"
	catalogRepo "catalog-backend/internal/domains/catalog/repository"
	catalogService "catalog-backend/internal/domains/catalog/service"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// Container is the root of the dependency graph. Initialization order is
// config, infrastructure, repositories, services, handlers; each layer only
// sees the layers below it.
type Container struct {
	Config     *config.Config
	DB         *database.PostgresDB
	Cache      cache.Cache
	JWTManager *jwt.Manager

	Storage     *storage.MinIOStorage
	AsynqClient *asynq.Client

	EntityRepo   catalogRepo.EntityRepository
	MetadataRepo catalogRepo.MetadataRepository
	CategoryRepo catalogRepo.CategoryRepository
	ValueRepo    catalogRepo.ValueRepository
	RelationRepo catalogRepo.RelationRepository
	URLKeyRepo   catalogRepo.URLKeyRepository
	RewriteRepo  catalogRepo.UrlRewriteRepository
	MediaRepo    catalogRepo.MediaRepository

	MetadataCache *catalogService.MetadataCache
	ImportService catalogService.ImportServiceInterface
	MediaService  catalogService.MediaServiceInterface
	BatchReader   *catalogService.BatchReader

	ImportHandler *catalogHandler.ImportHandler
}

// Options toggles the pieces each binary needs. The API server enqueues
// media tasks but never processes them; the worker is the other way round.
type Options struct {
	WithAsynqClient bool
	WithStorage     bool
}

// NewContainer builds the dependency graph and loads the metadata cache.
func NewContainer(opts Options) (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Info().Str("environment", cfg.App.Environment).Msg("Config loaded")

	if err := c.initInfrastructure(opts); err != nil {
		return nil, err
	}
	c.initRepositories()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	c.initHandlers()

	log.Info().Msg("Container initialized")
	return c, nil
}

func (c *Container) initInfrastructure(opts Options) error {
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	redisCache := infraCache.NewRedisCache(
		c.Config.Redis.Host,
		c.Config.Redis.Password,
		c.Config.Redis.DB,
	)
	if err := redisCache.Connect(context.Background()); err != nil {
		// The metadata cache falls back to storage on a cold Redis, so a
		// failed connect is not fatal.
		log.Warn().Err(err).Msg("Redis connection failed")
	}
	c.Cache = redisCache

	c.JWTManager = jwt.NewManager(
		c.Config.JWT.Secret,
		time.Duration(c.Config.JWT.AccessTokenExpiry)*time.Minute,
	)

	if opts.WithStorage {
		minioStorage, err := storage.NewMinIOStorage(c.Config.MinIO)
		if err != nil {
			return fmt.Errorf("failed to init object storage: %w", err)
		}
		c.Storage = minioStorage
	}

	if opts.WithAsynqClient {
		c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     c.Config.Redis.Host,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
	}

	return nil
}

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.EntityRepo = catalogRepo.NewEntityRepository(pool)
	c.MetadataRepo = catalogRepo.NewMetadataRepository(pool)
	c.CategoryRepo = catalogRepo.NewCategoryRepository(pool)
	c.ValueRepo = catalogRepo.NewValueRepository(pool)
	c.RelationRepo = catalogRepo.NewRelationRepository(pool)
	c.URLKeyRepo = catalogRepo.NewURLKeyRepository(pool)
	c.RewriteRepo = catalogRepo.NewUrlRewriteRepository(pool)
	c.MediaRepo = catalogRepo.NewMediaRepository(pool)
}

func (c *Container) initServices() error {
	c.MetadataCache = catalogService.NewMetadataCache(c.MetadataRepo, c.CategoryRepo, c.Cache)
	if err := c.MetadataCache.Load(context.Background()); err != nil {
		return fmt.Errorf("failed to load catalog metadata: %w", err)
	}

	c.ImportService = catalogService.NewImportService(
		c.MetadataCache,
		importDefaults(c.Config.Import),
		c.EntityRepo,
		c.ValueRepo,
		c.RelationRepo,
		c.URLKeyRepo,
		c.RewriteRepo,
		c.AsynqClient,
	)

	if c.Storage != nil {
		c.MediaService = catalogService.NewMediaService(
			c.MediaRepo,
			c.Storage,
			storage.NewImageProcessor(),
		)
	}

	c.BatchReader = catalogService.NewBatchReader()
	return nil
}

func (c *Container) initHandlers() {
	c.ImportHandler = catalogHandler.NewImportHandler(c.ImportService, c.BatchReader)
}

// importDefaults maps the environment configuration onto the pipeline config.
func importDefaults(cfg config.ImportConfig) model.ImportConfig {
	return model.ImportConfig{
		URLKeyScheme:               model.URLKeyScheme(cfg.URLKeyScheme),
		DuplicateStrategy:          model.DuplicateStrategy(cfg.DuplicateStrategy),
		AutoCreateCategories:       cfg.AutoCreateCategories,
		CategoryPathSeparator:      cfg.CategoryPathSeparator,
		SaveRewriteHistory:         cfg.SaveRewriteHistory,
		AutoCreateOptionAttributes: cfg.AutoCreateOptions,
		ProductURLSuffix:           cfg.ProductURLSuffix,
	}
}

// Cleanup releases every held resource. Called during graceful shutdown.
func (c *Container) Cleanup() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close asynq client")
		}
	}

	if c.Cache != nil {
		if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
			if err := rc.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close Redis")
			}
		}
	}

	if c.DB != nil {
		_ = c.DB.Close()
	}

	log.Info().Msg("Container cleanup completed")
}
