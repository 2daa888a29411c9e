package directory

import (
	"errors"

	"github.com/arslant84/l1a-test-sub000/internal/engine"
	"github.com/arslant84/l1a-test-sub000/internal/model"
	"github.com/arslant84/l1a-test-sub000/internal/repository"
	"gorm.io/gorm"
)

// Directory 员工目录,只读
// 引擎和服务层通过它把 supervisor 步骤解析为具体的审批人
type Directory interface {
	GetByID(id string) (*model.Employee, error)
	GetByRole(role model.Role) ([]*model.Employee, error)
	ManagerOf(employeeID string) (*model.Employee, error)
	DirectReportsOf(managerID string) ([]*model.Employee, error)
}

// gormDirectory 基于员工仓储的目录实现
type gormDirectory struct {
	employees repository.EmployeeRepository
}

// New 创建员工目录
func New(employees repository.EmployeeRepository) Directory {
	return &gormDirectory{employees: employees}
}

// GetByID 根据 ID 查找员工
func (d *gormDirectory) GetByID(id string) (*model.Employee, error) {
	emp, err := d.employees.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &engine.NotFoundError{Resource: "employee", ID: id}
		}
		return nil, &engine.DirectoryError{Op: "get by id", Err: err}
	}
	return emp, nil
}

// GetByRole 根据角色查找员工
func (d *gormDirectory) GetByRole(role model.Role) ([]*model.Employee, error) {
	emps, err := d.employees.FindByRole(role)
	if err != nil {
		return nil, &engine.DirectoryError{Op: "get by role", Err: err}
	}
	return emps, nil
}

// ManagerOf 查找员工的直属主管
func (d *gormDirectory) ManagerOf(employeeID string) (*model.Employee, error) {
	emp, err := d.GetByID(employeeID)
	if err != nil {
		return nil, err
	}
	if emp.ManagerID == nil || *emp.ManagerID == "" {
		return nil, &engine.NotFoundError{Resource: "manager of employee", ID: employeeID}
	}
	return d.GetByID(*emp.ManagerID)
}

// DirectReportsOf 查找某主管的直接下属
func (d *gormDirectory) DirectReportsOf(managerID string) ([]*model.Employee, error) {
	emps, err := d.employees.FindByManagerID(managerID)
	if err != nil {
		return nil, &engine.DirectoryError{Op: "direct reports of", Err: err}
	}
	return emps, nil
}
