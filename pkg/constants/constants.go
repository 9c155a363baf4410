package constants

type ContextKey string

const (
	LoggerKey        ContextKey = "logger"
	ParamsKey        ContextKey = "params"
	PoolKey          ContextKey = "pool"
	TxKey            ContextKey = "tx"
	UserKey          ContextKey = "user"
	PrincipalKey     ContextKey = "principal"
	TenantContextKey ContextKey = "tenant"
	SessionKey       ContextKey = "session"
	TenantTxKey      ContextKey = "tenant_tx"
)

const (
	DefaultModule = "people"
)
