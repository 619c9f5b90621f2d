package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 鉴权错误 100xx
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 面对面收款 400xx 与 payerr 校验码一致
	ErrOrderNotFound = 40401
	ErrPollTimeout   = 40801
	ErrQRCode        = 40901

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003

	// 网关错误，网关自带错误码时优先使用网关错误码
	ErrGateway   = 50201
	ErrTransport = 50202
)
