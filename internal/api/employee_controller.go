package api

import (
	"net/http"

	"github.com/arslant84/l1a-test-sub000/internal/directory"
	"github.com/arslant84/l1a-test-sub000/internal/model"
	"github.com/arslant84/l1a-test-sub000/internal/utils"
	"github.com/gin-gonic/gin"
)

// EmployeeController 员工目录控制器,只读
type EmployeeController struct {
	dir directory.Directory
}

// NewEmployeeController 创建员工目录控制器
func NewEmployeeController(dir directory.Directory) *EmployeeController {
	return &EmployeeController{dir: dir}
}

// Get 获取员工详情
func (c *EmployeeController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateEmployeeID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid employee ID", err.Error())
		return
	}

	emp, err := c.dir.GetByID(id)
	if err != nil {
		code, message := statusForError(err)
		Error(ctx, code, message, err.Error())
		return
	}

	Success(ctx, emp)
}

// List 根据角色列出员工
func (c *EmployeeController) List(ctx *gin.Context) {
	role := model.Role(ctx.Query("role"))
	if !role.IsValid() {
		Error(ctx, http.StatusBadRequest, "invalid role", "role query parameter must be one of employee, supervisor, thr, ceo, cm")
		return
	}

	emps, err := c.dir.GetByRole(role)
	if err != nil {
		code, message := statusForError(err)
		Error(ctx, code, message, err.Error())
		return
	}

	Success(ctx, emps)
}

// Manager 获取员工的直属主管
func (c *EmployeeController) Manager(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateEmployeeID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid employee ID", err.Error())
		return
	}

	manager, err := c.dir.ManagerOf(id)
	if err != nil {
		code, message := statusForError(err)
		Error(ctx, code, message, err.Error())
		return
	}

	Success(ctx, manager)
}
