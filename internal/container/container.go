package container

import (
	"pugpool/internal/config"
	"pugpool/internal/repository"
	"pugpool/internal/service"
	"pugpool/internal/service/auth"
	"pugpool/pkg/database"
	"pugpool/pkg/logger"
	"pugpool/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB
	RedisClient  *redis.Client
	Repositories *repository.Repositories
	Services     *service.Services
}

// New creates a new dependency injection container around already opened
// database and Redis connections
func New(cfg *config.Config, log *logger.Logger, db *database.PostgresDB, redisClient *redis.Client) *Container {
	repos := &repository.Repositories{
		Player:   repository.NewPlayerRepository(db),
		Match:    repository.NewMatchRepository(db),
		Cooldown: repository.NewCooldownRepository(db),
		Stats:    repository.NewStatsRepository(db),
	}

	services := &service.Services{
		Pool: service.NewPoolService(
			repos.Player,
			repos.Match,
			repos.Cooldown,
			repos.Stats,
			redisClient,
			log.WithComponent("pool"),
			cfg.LeaveCooldown,
		),
		Roster:  service.NewRosterService(repos.Player, log.WithComponent("roster")),
		Stats:   service.NewStatsService(repos.Stats, repos.Player, redisClient, log.WithComponent("stats")),
		Sweeper: service.NewCooldownSweeper(repos.Cooldown, log.WithComponent("sweeper"), cfg.CooldownSweep),
		Token:   auth.NewService(cfg.GatewayTokenSecret, log.WithComponent("auth")),
	}

	return &Container{
		Config:       cfg,
		Logger:       log,
		DB:           db,
		RedisClient:  redisClient,
		Repositories: repos,
		Services:     services,
	}
}

// GetPoolService returns the pool service
func (c *Container) GetPoolService() service.PoolService {
	return c.Services.Pool
}

// GetRosterService returns the roster service
func (c *Container) GetRosterService() service.RosterService {
	return c.Services.Roster
}

// GetStatsService returns the stats service
func (c *Container) GetStatsService() service.StatsService {
	return c.Services.Stats
}

// GetSweeperService returns the cooldown sweeper
func (c *Container) GetSweeperService() service.SweeperService {
	return c.Services.Sweeper
}

// GetTokenService returns the gateway token service
func (c *Container) GetTokenService() service.TokenService {
	return c.Services.Token
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetDB returns the database connection
func (c *Container) GetDB() *database.PostgresDB {
	return c.DB
}

// GetRedisClient returns the Redis client
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// GetRepositories returns the repository aggregate
func (c *Container) GetRepositories() *repository.Repositories {
	return c.Repositories
}
