package config

const EnvPrefix = "RENTALCRM"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "RENTALCRM_APP_ENV"
	EnvPort      = "RENTALCRM_APP_PORT"
	EnvLogLevel  = "RENTALCRM_LOG_LEVEL"
	EnvLogFormat = "RENTALCRM_LOG_FORMAT"
	EnvLogFile   = "RENTALCRM_LOG_FILE"

	EnvKVBackend = "RENTALCRM_KV_BACKEND"

	EnvRedisURL  = "RENTALCRM_REDIS_URL"
	EnvRedisAddr = "RENTALCRM_REDIS_ADDR"

	EnvDBDSN    = "RENTALCRM_DB_DSN"
	EnvDBDriver = "RENTALCRM_DB_DRIVER"

	EnvJWTSecret = "RENTALCRM_JWT_SECRET"
	EnvJWTIssuer = "RENTALCRM_JWT_ISSUER"

	EnvTrackingMode         = "RENTALCRM_TRACKING_MODE"
	EnvTrackingTopic        = "RENTALCRM_TRACKING_TOPIC"
	EnvTrackingSubscription = "RENTALCRM_TRACKING_SUBSCRIPTION"

	EnvCRMResolveLock = "RENTALCRM_CRM_RESOLVE_LOCK"
	EnvCRMAllowClear  = "RENTALCRM_CRM_ALLOW_CLEAR"

	EnvGCPProjectID   = "RENTALCRM_GCP_PROJECT_ID"
	EnvTaskAlertTopic = "RENTALCRM_TASK_ALERT_TOPIC"
)

const (
	KVBackendMemory   = "memory"
	KVBackendRedis    = "redis"
	KVBackendPostgres = "postgres"
	KVBackendSQLite   = "sqlite"
)

const (
	TrackingModeSync  = "sync"
	TrackingModeAsync = "async"
)
