package apperror

var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input",
	CodeInvalidState:       "Invalid state for this operation",
	CodeConfigurationError: "Configuration error",
	CodeServiceTimeout:     "Request timed out",
	CodeRateLimitExceeded:  "Rate limit exceeded",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "Unknown error",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeContractCallFailed:       "Contract call failed",
	CodeReceiptLookupFailed:      "Transaction receipt lookup failed",
	CodeInvalidPrivateKey:        "Invalid signing key",

	CodeWebSocketConnectionError: "WebSocket connection failed",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "WebSocket send failed",

	CodePoolReadFailed:    "Failed to read pool state",
	CodePoolListFailed:    "Failed to list pools",
	CodeNoPathFound:       "No swap path found",
	CodeInvalidSwapParams: "Invalid swap parameters",
	CodeUnknownToken:      "Unknown token",

	CodeRetryExhausted:       "Retry attempts exhausted",
	CodeSubmissionFailed:     "Swap failed",
	CodeAlertInvalid:         "Invalid alert definition",
	CodeAnalyticsStoreFailed: "Trade analytics store error",
	CodePriceFeedFailed:      "Price feed error",

	CodeAdvisoryFailed:       "Advisory service error",
	CodeCacheProducerFailure: "Cache producer failed",
	CodeCircuitOpen:          "Circuit breaker is open",
}
