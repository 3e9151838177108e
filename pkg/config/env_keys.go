package config

const (
	EnvPrefix = "PARTNERLEDGER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PARTNERLEDGER_DB_DSN"
	EnvDBHost = "PARTNERLEDGER_DB_HOST"
	EnvDBUser = "PARTNERLEDGER_DB_USER"
	EnvDBName = "PARTNERLEDGER_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
