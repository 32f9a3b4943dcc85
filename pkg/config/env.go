package config

const EnvPrefix = "MPADCS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	LedgerLockLocal = "local"
	LedgerLockRedis = "redis"

	defaultSQLiteDSN = "file:mpadcs.db?_busy_timeout=5000&_foreign_keys=on"
)

const (
	EnvAppEnv       = "MPADCS_APP_ENV"
	EnvPort         = "MPADCS_APP_PORT"
	EnvDBDSN        = "MPADCS_DB_DSN"
	EnvDBDriver     = "MPADCS_DB_DRIVER"
	EnvDBHost       = "MPADCS_DB_HOST"
	EnvDBUser       = "MPADCS_DB_USER"
	EnvDBName       = "MPADCS_DB_NAME"
	EnvRedisURL     = "MPADCS_REDIS_URL"
	EnvJWTSecret    = "MPADCS_JWT_SECRET"
	EnvJWTIssuer    = "MPADCS_JWT_ISSUER"
	EnvJWTExpMins   = "MPADCS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTTL   = "MPADCS_REFRESH_TOKEN_TTL_MINUTES"
	EnvLedgerLock   = "MPADCS_LEDGER_LOCK"
	EnvGeminiAPIKey = "MPADCS_GEMINI_API_KEY"
	EnvGCPProjectID = "MPADCS_GCP_PROJECT_ID"
	EnvInventoryTop = "MPADCS_PUBSUB_INVENTORY_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
