package engine

import "fmt"

// ValidationError 申请草稿校验失败
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// AuthorizationError 角色不符或非申请人的直属主管
type AuthorizationError struct {
	ActorID string
	Message string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed for actor %q: %s", e.ActorID, e.Message)
}

// InvalidTransitionError 操作在当前状态/步骤下不合法
type InvalidTransitionError struct {
	Status  string
	Step    string
	Message string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from status=%s step=%s: %s", e.Status, e.Step, e.Message)
}

// StateConflictError 乐观并发重试耗尽
type StateConflictError struct {
	RequestID string
	Attempts  int
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("concurrent update conflict on request %q after %d attempts", e.RequestID, e.Attempts)
}

// NotFoundError 申请或员工不存在
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// RepositoryError 仓储依赖失败(如超时)
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s failed: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// DirectoryError 目录依赖失败
type DirectoryError struct {
	Op  string
	Err error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("directory %s failed: %v", e.Op, e.Err)
}

func (e *DirectoryError) Unwrap() error {
	return e.Err
}
