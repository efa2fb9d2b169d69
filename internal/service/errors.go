package service

import "errors"

// 服务层的业务错误。所有错误都在调用点恢复：HTTP/WS 边界把它们
// 映射为用户可见的提示，内存状态保持未变更，进程不会因此退出。
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrFileNotFound         = errors.New("file not found")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrCapacityExceeded     = errors.New("session is full (max 4 participants)")
	ErrDuplicateInvite      = errors.New("this email has already been invited")
	ErrDuplicatePath        = errors.New("a file with this path already exists")
	ErrNotHost              = errors.New("only the session host may perform this action")
	ErrHostCannotLeave      = errors.New("the host cannot leave: delete the session instead")
	ErrInternalServer       = errors.New("internal server error")
	ErrInvalidInput         = errors.New("invalid input")
)
