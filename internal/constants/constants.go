package constants

const (
	//分頁
	DefaultPagingSize int = 20
	DefaultPaging     int = 1
	MaxPagingSize     int = 100
)

// for api auth
type ContextKey string

const (
	AuthorizationHeaderKey  ContextKey = "authorization"
	AuthorizationTypeBearer ContextKey = "bearer"
	AuthorizationUserKey    ContextKey = "authorization_user"
	AuthorizationErrKey     ContextKey = "authorization_error"
)

type RequestID string

const (
	RequestIDKey    RequestID = "request_id"
	RequestIDHeader string    = "X-Request-ID"
)

type ENV string

const (
	Debug ENV = "debug"
	Dev   ENV = "development"
	Prod  ENV = "production"
)

type DbDriver string

const (
	DriverPostgres DbDriver = "postgres"
	DriverSqlite   DbDriver = "sqlite"
)

// 商品展示預設值
const (
	DefaultProductCategory   = "General"
	DefaultProductPopularity = 0
)

// kafka event
const (
	EventTypeHeader       = "event_type"
	EventTypeOrderCreated = "order.created"
)
