package apperror

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Chain
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeReceiptLookupFailed      Code = "RECEIPT_LOOKUP_FAILED"
	CodeInvalidPrivateKey        Code = "INVALID_PRIVATE_KEY"
)

// WebSocket
const (
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"
)

// Liquidity and routing
const (
	CodePoolReadFailed    Code = "POOL_READ_FAILED"
	CodePoolListFailed    Code = "POOL_LIST_FAILED"
	CodeNoPathFound       Code = "NO_PATH_FOUND"
	CodeInvalidSwapParams Code = "INVALID_SWAP_PARAMS"
	CodeUnknownToken      Code = "UNKNOWN_TOKEN"
)

// Execution, monitoring and alerting
const (
	CodeRetryExhausted       Code = "RETRY_EXHAUSTED"
	CodeSubmissionFailed     Code = "SUBMISSION_FAILED"
	CodeAlertInvalid         Code = "ALERT_INVALID"
	CodeAnalyticsStoreFailed Code = "ANALYTICS_STORE_FAILED"
	CodePriceFeedFailed      Code = "PRICE_FEED_FAILED"
)

// Advisory and resilience
const (
	CodeAdvisoryFailed       Code = "ADVISORY_FAILED"
	CodeCacheProducerFailure Code = "CACHE_PRODUCER_FAILURE"
	CodeCircuitOpen          Code = "CIRCUIT_OPEN"
)
