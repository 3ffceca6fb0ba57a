package classify

import "github.com/vietddude/sessionguard/internal/core/domain"

// Code alias sets. Numeric, prefixed ("M" mobile, "S" store console) and
// legacy key variants all appear in the wild. Matching is done on the
// upper-cased code.
var (
	defaultAccessExpiredCodes = []string{
		"2003", "M2003", "S2003", "ACCESS_TOKEN_EXPIRED", "TOKEN_EXPIRED", "ACCESSTOKENEXPIRED",
	}
	defaultRefreshExpiredCodes = []string{
		"2004", "M2004", "S2004", "REFRESH_TOKEN_EXPIRED", "REFRESHTOKENEXPIRED",
	}
	// Business conflicts the UI resolves on its own (cart holds items from another store).
	defaultSilentCodes = []string{
		"4009", "M4009", "S4009", "CART_DIFFERENT_STORE", "DIFFERENT_STORE_IN_CART",
	}
	defaultInvalidTokenCodes = []string{
		"2001", "M2001", "S2001", "INVALID_TOKEN", "INVALIDTOKEN",
	}
	defaultNoTokenCodes = []string{
		"2002", "M2002", "S2002", "NO_TOKEN", "UNAUTHENTICATED", "LOGIN_REQUIRED",
	}
	defaultPermissionCodes = []string{
		"2005", "M2005", "S2005", "PERMISSION_DENIED", "FORBIDDEN",
	}
)

// DefaultRefreshOperations are the exact names of the refresh call.
var DefaultRefreshOperations = []string{
	"refreshToken", "RefreshToken", "refresh_token", "tokenRefresh", "refreshAccessToken",
}

// Pattern maps a message substring to a category.
type Pattern struct {
	Contains string
	Category domain.ErrorCategory
}

// defaultPatterns is the legacy message table, consulted only after every
// structured code rule failed. Order matters: first match wins.
// The phrase set is not exhaustive; deployments extend it through config.
var defaultPatterns = []Pattern{
	{Contains: "internal server error", Category: domain.ServerError},
	{Contains: "internal error", Category: domain.ServerError},
	{Contains: "서버 오류", Category: domain.ServerError},
	{Contains: "서버에서 오류", Category: domain.ServerError},
	{Contains: "로그인이 필요", Category: domain.LoginNeeded},
	{Contains: "로그인 후 이용", Category: domain.LoginNeeded},
	{Contains: "jwt expired", Category: domain.TokenRefreshNeeded},
	{Contains: "token expired", Category: domain.TokenRefreshNeeded},
	{Contains: "authentication failed", Category: domain.TokenRefreshNeeded},
	{Contains: "unauthorized", Category: domain.TokenRefreshNeeded},
	{Contains: "인증에 실패", Category: domain.TokenRefreshNeeded},
	{Contains: "인증이 만료", Category: domain.TokenRefreshNeeded},
}
