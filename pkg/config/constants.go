package config

const (
	EnvPrefix = "AVAILPAYPAL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "AVAILPAYPAL_DB_DSN"
	EnvDBHost = "AVAILPAYPAL_DB_HOST"
	EnvDBUser = "AVAILPAYPAL_DB_USER"
	EnvDBName = "AVAILPAYPAL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
